package taxonomy

import "strings"

var statusLabels = map[Status]string{
	StatusAvailable:          "Sẵn sàng",
	StatusInUse:              "Đang sử dụng",
	StatusMaintenance:        "Bảo trì",
	StatusBroken:             "Hư hỏng",
	StatusDisabled:           "Ngưng sử dụng",
	StatusPendingLiquidation: "Chờ thanh lý",
	StatusLiquidation:        "Đã thanh lý",
}

var sourceLabels = map[Source]string{
	SourceInternal:    "Nội bộ",
	SourceBorrowed:    "Mượn",
	SourceRented:      "Thuê",
	SourceBorrowedOut: "Cho mượn",
}

// StatusLabel 状态显示名
func StatusLabel(s Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// SourceLabel 来源显示名
func SourceLabel(s Source) string {
	if l, ok := sourceLabels[s]; ok {
		return l
	}
	return string(s)
}

// RowLabel 矩阵行显示名
func RowLabel(r RowKey) string {
	switch r {
	case RowAll:
		return "Tổng cộng"
	case RowNotInUse:
		return "Không sử dụng"
	default:
		return StatusLabel(Status(r))
	}
}

// ColLabel 矩阵列显示名
func ColLabel(c ColKey) string {
	if c == ColAll {
		return "Tổng cộng"
	}
	return SourceLabel(Source(c))
}

// ParseStatusLabel 接受状态键或显示名（导入文件里通常是显示名）
func ParseStatusLabel(v string) (Status, error) {
	if s, err := ParseStatus(v); err == nil {
		return s, nil
	}
	for s, l := range statusLabels {
		if strings.EqualFold(strings.TrimSpace(v), l) {
			return s, nil
		}
	}
	return ParseStatus(v)
}

// ParseSourceLabel 接受来源键或显示名
func ParseSourceLabel(v string) (Source, error) {
	if s, err := ParseSource(v); err == nil {
		return s, nil
	}
	for s, l := range sourceLabels {
		if strings.EqualFold(strings.TrimSpace(v), l) {
			return s, nil
		}
	}
	return ParseSource(v)
}
