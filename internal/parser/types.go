package parser

import (
	"fmt"
	"strings"
)

// 内部字段键
const (
	FieldCode          = "code_machine"
	FieldType          = "type_machine"
	FieldModel         = "model_machine"
	FieldManufacturer  = "manufacturer"
	FieldSerial        = "serial_machine"
	FieldPrice         = "price"
	FieldRepairCost    = "repair_cost"
	FieldDateOfUse     = "date_of_use"
	FieldLocation      = "name_location"
	FieldCategory      = "name_category"
	FieldCurrentStatus = "current_status"
	FieldBorrowStatus  = "borrow_status"
	FieldSupplier      = "supplier"
	FieldNote          = "note"
)

// RequiredFields 必填的内部字段
var RequiredFields = []string{FieldSerial, FieldType}

// RawRow 表格中的一行
//
// 值的类型为 string、float64（数值单元格）或 time.Time（日期格式的单元格）。
// Values 按列索引存放（空单元格为 nil）；Cells 是按表头取值的视图，表头重复时保留第一列。
type RawRow struct {
	Line   int            `json:"line"` // 表格行号，表头为第 1 行
	Cells  map[string]any `json:"cells"`
	Values []any          `json:"-"`
}

// Sheet 读取出的工作表
type Sheet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	Rows    []RawRow `json:"rows"`
}

// FieldMapping 表头翻译结果
type FieldMapping struct {
	ColumnIndex int    `json:"columnIndex"` // Excel 列索引
	ColumnName  string `json:"columnName"`  // Excel 列名
	Field       string `json:"field"`       // 内部字段
}

// SheetRecognitionResult Sheet 识别结果
type SheetRecognitionResult struct {
	SheetName  string  `json:"sheetName"`
	Matched    int     `json:"matched"`
	Confidence float64 `json:"confidence"` // 置信度 0-1
}

// EmptyFileError 文件没有任何数据行
type EmptyFileError struct {
	Sheet string
}

func (e *EmptyFileError) Error() string {
	if e.Sheet == "" {
		return "file has no data rows"
	}
	return fmt.Sprintf("sheet %q has no data rows", e.Sheet)
}

// MissingColumnsError 缺少必填列（列出全部缺失的外部列名）
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}
