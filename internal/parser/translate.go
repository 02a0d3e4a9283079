package parser

import (
	"sort"

	"tpm/internal/model"
	"tpm/internal/taxonomy"
)

// Translator 行翻译器：外部列名 → 内部字段，并做字段类型转换
//
// 转换从不报错：金额无法解析时为 0，日期无法解析时字段缺省。
type Translator struct {
	mapper          *FieldMapper
	defaultCategory string
	columns         map[int]FieldMapping
}

// NewTranslator 创建翻译器；defaultCategory 写入每行的 name_category
func NewTranslator(mapper *FieldMapper, defaultCategory string) *Translator {
	if mapper == nil {
		mapper = NewFieldMapper()
	}
	return &Translator{mapper: mapper, defaultCategory: defaultCategory}
}

// ForHeaders 按表头绑定列，之后按列索引取值；同一字段出现多列时与 FieldMapper.Map 一样取第一列
func (t *Translator) ForHeaders(headers []string) *Translator {
	bound := *t
	bound.columns = t.mapper.Map(headers)
	return &bound
}

// Translate 翻译一行
func (t *Translator) Translate(row RawRow) model.MachineInput {
	var fields map[string]any
	if t.columns != nil && row.Values != nil {
		fields = t.byColumn(row.Values)
	} else {
		fields = t.byLabel(row.Cells)
	}

	return model.MachineInput{
		Line:          row.Line,
		CodeMachine:   TrimString(fields[FieldCode]),
		TypeMachine:   TrimString(fields[FieldType]),
		ModelMachine:  TrimString(fields[FieldModel]),
		Manufacturer:  TrimString(fields[FieldManufacturer]),
		SerialMachine: TrimString(fields[FieldSerial]),
		Price:         ParseMoney(fields[FieldPrice]),
		RepairCost:    ParseMoney(fields[FieldRepairCost]),
		DateOfUse:     ParseDate(fields[FieldDateOfUse]),
		NameLocation:  TrimString(fields[FieldLocation]),
		NameCategory:  t.defaultCategory,
		CurrentStatus: statusValue(TrimString(fields[FieldCurrentStatus])),
		BorrowStatus:  sourceValue(TrimString(fields[FieldBorrowStatus])),
		Supplier:      TrimString(fields[FieldSupplier]),
		Note:          TrimString(fields[FieldNote]),
	}
}

func (t *Translator) byColumn(values []any) map[string]any {
	fields := make(map[string]any, len(t.columns))
	for idx, mp := range t.columns {
		if idx < len(values) && values[idx] != nil {
			fields[mp.Field] = values[idx]
		}
	}
	return fields
}

// byLabel 未绑定表头时按列名取值；列顺序未知，同一字段多列时按列名排序取第一个
func (t *Translator) byLabel(cells map[string]any) map[string]any {
	labels := make([]string, 0, len(cells))
	for label := range cells {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	fields := make(map[string]any, len(cells))
	for _, label := range labels {
		field := t.mapper.FieldOf(label)
		if field == "" {
			continue
		}
		if _, dup := fields[field]; dup {
			continue
		}
		fields[field] = cells[label]
	}
	return fields
}

// statusValue 空值取默认状态；显示名转为状态键；无法识别的原样保留，由批量接口拒绝
func statusValue(v string) string {
	if v == "" {
		return string(taxonomy.StatusAvailable)
	}
	if s, err := taxonomy.ParseStatusLabel(v); err == nil {
		return string(s)
	}
	return v
}

func sourceValue(v string) string {
	if v == "" {
		return string(taxonomy.SourceInternal)
	}
	if s, err := taxonomy.ParseSourceLabel(v); err == nil {
		return string(s)
	}
	return v
}
