package taxonomy

import (
	"fmt"
	"strings"
)

// Status 机器主状态
type Status string

const (
	StatusAvailable          Status = "available"
	StatusInUse              Status = "in_use"
	StatusMaintenance        Status = "maintenance"
	StatusBroken             Status = "broken"
	StatusDisabled           Status = "disabled"
	StatusPendingLiquidation Status = "pending_liquidation"
	StatusLiquidation        Status = "liquidation"
)

// AllStatuses 主状态全集（顺序即矩阵存储下标）
var AllStatuses = []Status{
	StatusAvailable,
	StatusInUse,
	StatusMaintenance,
	StatusBroken,
	StatusDisabled,
	StatusPendingLiquidation,
	StatusLiquidation,
}

// Source 持有来源
type Source string

const (
	SourceInternal    Source = "internal"
	SourceBorrowed    Source = "borrowed"
	SourceRented      Source = "rented"
	SourceBorrowedOut Source = "borrowed_out"
)

// AllSources 来源全集（顺序即矩阵存储下标）
var AllSources = []Source{
	SourceInternal,
	SourceBorrowed,
	SourceRented,
	SourceBorrowedOut,
}

// 矩阵存储维度（必须与 AllStatuses / AllSources 长度一致）
const (
	NumStatuses = 7
	NumSources  = 4
)

// All 行/列哨兵值：不限制该维度
const All = "ALL"

// RowKey 矩阵行键
type RowKey string

const (
	RowAll                RowKey = All
	RowAvailable          RowKey = RowKey(StatusAvailable)
	RowInUse              RowKey = RowKey(StatusInUse)
	RowNotInUse           RowKey = "not_in_use"
	RowPendingLiquidation RowKey = RowKey(StatusPendingLiquidation)
)

// ColKey 矩阵列键
type ColKey string

const (
	ColAll      ColKey = All
	ColInternal ColKey = ColKey(SourceInternal)
	ColBorrowed ColKey = ColKey(SourceBorrowed)
	ColRented   ColKey = ColKey(SourceRented)
)

// Rows 渲染的行配置（liquidation 不在其中，不参与合计）
var Rows = []RowKey{RowAvailable, RowInUse, RowNotInUse, RowPendingLiquidation}

// Cols 渲染的列配置（borrowed_out 已折叠进 internal，不单独成列）
var Cols = []ColKey{ColInternal, ColBorrowed, ColRented}

// NotInUseGroup 合并组：未使用 = 保养 + 故障 + 停用
var NotInUseGroup = []Status{StatusMaintenance, StatusBroken, StatusDisabled}

// InternalGroup 选择 internal 列时需同时匹配借出的机器
var InternalGroup = []Source{SourceInternal, SourceBorrowedOut}

// Index 返回状态的存储下标；未知状态返回 -1
func (s Status) Index() int {
	for i, v := range AllStatuses {
		if v == s {
			return i
		}
	}
	return -1
}

// Valid 是否为已知状态
func (s Status) Valid() bool { return s.Index() >= 0 }

// Index 返回来源的存储下标；未知来源返回 -1
func (s Source) Index() int {
	for i, v := range AllSources {
		if v == s {
			return i
		}
	}
	return -1
}

// Valid 是否为已知来源
func (s Source) Valid() bool { return s.Index() >= 0 }

func normalizeKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// ParseStatus 解析主状态键
func ParseStatus(v string) (Status, error) {
	s := Status(normalizeKey(v))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status: %q", v)
	}
	return s, nil
}

// ParseSource 解析来源键
func ParseSource(v string) (Source, error) {
	s := Source(normalizeKey(v))
	if !s.Valid() {
		return "", fmt.Errorf("unknown source: %q", v)
	}
	return s, nil
}

// IsAll 判断是否为 ALL 哨兵
func IsAll(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), All)
}

// ParseRowKey 解析行键（支持 ALL）
func ParseRowKey(v string) (RowKey, error) {
	if IsAll(v) {
		return RowAll, nil
	}
	k := RowKey(normalizeKey(v))
	if k == RowNotInUse {
		return k, nil
	}
	// 任何主状态都可以作为单值行（包括未渲染的 maintenance 等）
	if Status(k).Valid() {
		return k, nil
	}
	return "", fmt.Errorf("unknown row key: %q", v)
}

// ParseColKey 解析列键（支持 ALL）
func ParseColKey(v string) (ColKey, error) {
	if IsAll(v) {
		return ColAll, nil
	}
	k := ColKey(normalizeKey(v))
	if Source(k).Valid() {
		return k, nil
	}
	return "", fmt.Errorf("unknown column key: %q", v)
}

// Constituents 返回行键对应的主状态集合；ALL 返回 nil
func Constituents(row RowKey) []Status {
	switch row {
	case RowAll:
		return nil
	case RowNotInUse:
		return append([]Status(nil), NotInUseGroup...)
	default:
		return []Status{Status(row)}
	}
}

// Sources 返回列键对应的来源集合；ALL 返回 nil
func Sources(col ColKey) []Source {
	switch col {
	case ColAll:
		return nil
	case ColInternal:
		return append([]Source(nil), InternalGroup...)
	default:
		return []Source{Source(col)}
	}
}
