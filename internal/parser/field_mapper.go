package parser

// HeaderLabel 外部列名与内部字段的对应
type HeaderLabel struct {
	Field string
	// Labels 第一个为标准列名（模板/提示使用），其余为兼容写法
	Labels []string
}

// HeaderTable 外部列名翻译表（顺序即模板列顺序）
var HeaderTable = []HeaderLabel{
	{Field: FieldCode, Labels: []string{"Mã máy", "Mã thiết bị", "Code"}},
	{Field: FieldType, Labels: []string{"Loại máy", "Loại thiết bị", "Type"}},
	{Field: FieldModel, Labels: []string{"Model", "Model máy"}},
	{Field: FieldManufacturer, Labels: []string{"Hãng sản xuất", "Hãng", "Nhà sản xuất"}},
	{Field: FieldSerial, Labels: []string{"Serial", "Số serial", "Số seri"}},
	{Field: FieldPrice, Labels: []string{"Giá", "Giá mua", "Đơn giá"}},
	{Field: FieldRepairCost, Labels: []string{"Chi phí sửa chữa", "Phí sửa chữa"}},
	{Field: FieldDateOfUse, Labels: []string{"Ngày sử dụng", "Ngày đưa vào sử dụng"}},
	{Field: FieldLocation, Labels: []string{"Vị trí", "Địa điểm"}},
	{Field: FieldCurrentStatus, Labels: []string{"Trạng thái"}},
	{Field: FieldBorrowStatus, Labels: []string{"Nguồn", "Nguồn gốc"}},
	{Field: FieldSupplier, Labels: []string{"Nhà cung cấp"}},
	{Field: FieldNote, Labels: []string{"Ghi chú"}},
}

// FieldMapper 表头翻译器
type FieldMapper struct {
	byLabel map[string]string // 规范化列名 → 字段
	byField map[string]string // 字段 → 标准列名
}

// NewFieldMapper 基于 HeaderTable 创建翻译器
func NewFieldMapper() *FieldMapper {
	m := &FieldMapper{
		byLabel: make(map[string]string),
		byField: make(map[string]string),
	}
	for _, h := range HeaderTable {
		for i, l := range h.Labels {
			m.byLabel[NormalizeLabel(l)] = h.Field
			if i == 0 {
				m.byField[h.Field] = l
			}
		}
		// 内部字段键本身也可以作为列名
		m.byLabel[NormalizeLabel(h.Field)] = h.Field
	}
	return m
}

// FieldOf 外部列名对应的内部字段；未知列返回 ""
func (m *FieldMapper) FieldOf(label string) string {
	return m.byLabel[NormalizeLabel(label)]
}

// LabelOf 内部字段的标准列名
func (m *FieldMapper) LabelOf(field string) string {
	if l, ok := m.byField[field]; ok {
		return l
	}
	return field
}

// Map 翻译整行表头
func (m *FieldMapper) Map(headers []string) map[int]FieldMapping {
	mappings := make(map[int]FieldMapping)
	seen := make(map[string]bool)
	for idx, col := range headers {
		field := m.FieldOf(col)
		if field == "" || seen[field] {
			// 重复列只取第一列
			continue
		}
		seen[field] = true
		mappings[idx] = FieldMapping{
			ColumnIndex: idx,
			ColumnName:  col,
			Field:       field,
		}
	}
	return mappings
}

// CheckHeaders 检查必填列，一次性列出全部缺失的列名
func (m *FieldMapper) CheckHeaders(headers []string) error {
	present := make(map[string]bool)
	for _, mp := range m.Map(headers) {
		present[mp.Field] = true
	}

	var missing []string
	for _, f := range RequiredFields {
		if !present[f] {
			missing = append(missing, m.LabelOf(f))
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Missing: missing}
	}
	return nil
}

// TemplateHeaders 模板表头（标准列名）
func TemplateHeaders() []string {
	out := make([]string, 0, len(HeaderTable))
	for _, h := range HeaderTable {
		out = append(out, h.Labels[0])
	}
	return out
}
