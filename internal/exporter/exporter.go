package exporter

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"tpm/internal/model"
	"tpm/internal/parser"
	"tpm/internal/taxonomy"
)

// SheetName 导出与模板使用的 Sheet 名
const SheetName = "Thiết bị"

// 模板下拉列表覆盖的行数
const templateRows = 1000

// ProgressFunc 导出进度回调（0-100）
type ProgressFunc func(percent int, stage string)

func report(progress ProgressFunc, percent int, stage string) {
	if progress == nil {
		return
	}
	progress(min(max(percent, 0), 100), stage)
}

// columnWidth 各字段列宽
var columnWidth = map[string]float64{
	parser.FieldCode:          14,
	parser.FieldType:          20,
	parser.FieldModel:         16,
	parser.FieldManufacturer:  18,
	parser.FieldSerial:        18,
	parser.FieldPrice:         14,
	parser.FieldRepairCost:    16,
	parser.FieldDateOfUse:     14,
	parser.FieldLocation:      16,
	parser.FieldCurrentStatus: 16,
	parser.FieldBorrowStatus:  12,
	parser.FieldSupplier:      18,
	parser.FieldNote:          28,
}

func newWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#9BC2E6", Style: 1},
		},
	})
}

// Template 导入模板：表头 + 示例行 + 状态/来源下拉
func Template() ([]byte, error) {
	f, err := newWorkbook()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	style, err := headerStyle(f)
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, h := range parser.HeaderTable {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetCellValue(SheetName, col+"1", h.Labels[0]); err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, col, col, columnWidth[h.Field]); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(parser.HeaderTable))
	if err := f.SetCellStyle(SheetName, "A1", last+"1", style); err != nil {
		return nil, err
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}

	sample := map[string]any{
		parser.FieldCode:          "M-0001",
		parser.FieldType:          "Máy may 1 kim",
		parser.FieldModel:         "DDL-9000C",
		parser.FieldManufacturer:  "Juki",
		parser.FieldSerial:        "SN-000001",
		parser.FieldPrice:         25000000,
		parser.FieldRepairCost:    0,
		parser.FieldDateOfUse:     "31/10/2025",
		parser.FieldLocation:      "Xưởng 1",
		parser.FieldCurrentStatus: taxonomy.StatusLabel(taxonomy.StatusAvailable),
		parser.FieldBorrowStatus:  taxonomy.SourceLabel(taxonomy.SourceInternal),
		parser.FieldSupplier:      "",
		parser.FieldNote:          "",
	}
	for i, h := range parser.HeaderTable {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		if err := f.SetCellValue(SheetName, cell, sample[h.Field]); err != nil {
			return nil, err
		}
	}

	if err := addDropLists(f); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}

// addDropLists 状态/来源列使用显示名下拉
func addDropLists(f *excelize.File) error {
	statusLabels := make([]string, 0, len(taxonomy.AllStatuses))
	for _, s := range taxonomy.AllStatuses {
		statusLabels = append(statusLabels, taxonomy.StatusLabel(s))
	}
	sourceLabels := make([]string, 0, len(taxonomy.AllSources))
	for _, s := range taxonomy.AllSources {
		sourceLabels = append(sourceLabels, taxonomy.SourceLabel(s))
	}

	lists := map[string][]string{
		parser.FieldCurrentStatus: statusLabels,
		parser.FieldBorrowStatus:  sourceLabels,
	}
	for i, h := range parser.HeaderTable {
		keys, ok := lists[h.Field]
		if !ok {
			continue
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		dv := excelize.NewDataValidation(true)
		dv.Sqref = fmt.Sprintf("%s2:%s%d", col, col, templateRows+1)
		if err := dv.SetDropList(keys); err != nil {
			return fmt.Errorf("drop list %s: %w", h.Field, err)
		}
		if err := f.AddDataValidation(SheetName, dv); err != nil {
			return fmt.Errorf("add validation %s: %w", h.Field, err)
		}
	}
	return nil
}

// cellOf 记录的字段值（导出用显示名与 DD/MM/YYYY 日期，与导入格式一致）
func cellOf(m model.Machine, field string) any {
	switch field {
	case parser.FieldCode:
		return m.CodeMachine
	case parser.FieldType:
		return m.TypeMachine
	case parser.FieldModel:
		return m.ModelMachine
	case parser.FieldManufacturer:
		return m.Manufacturer
	case parser.FieldSerial:
		return m.SerialMachine
	case parser.FieldPrice:
		return m.Price
	case parser.FieldRepairCost:
		return m.RepairCost
	case parser.FieldDateOfUse:
		if m.DateOfUse == nil {
			return ""
		}
		return m.DateOfUse.Format("02/01/2006")
	case parser.FieldLocation:
		return m.NameLocation
	case parser.FieldCurrentStatus:
		return taxonomy.StatusLabel(taxonomy.Status(m.CurrentStatus))
	case parser.FieldBorrowStatus:
		// 导出保留 borrowed_out 原值，不并入 internal
		return taxonomy.SourceLabel(taxonomy.Source(m.BorrowStatus))
	case parser.FieldSupplier:
		return m.Supplier
	case parser.FieldNote:
		return m.Note
	}
	return ""
}

// Machines 导出设备列表
func Machines(list []model.Machine, progress ProgressFunc) ([]byte, error) {
	f, err := newWorkbook()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	style, err := headerStyle(f)
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, fmt.Errorf("open stream writer: %w", err)
	}
	for i, h := range parser.HeaderTable {
		if err := sw.SetColWidth(i+1, i+1, columnWidth[h.Field]); err != nil {
			return nil, err
		}
	}

	header := make([]any, 0, len(parser.HeaderTable))
	for _, h := range parser.HeaderTable {
		header = append(header, excelize.Cell{StyleID: style, Value: h.Labels[0]})
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, err
	}
	report(progress, 5, "header")

	for i, m := range list {
		row := make([]any, 0, len(parser.HeaderTable))
		for _, h := range parser.HeaderTable {
			row = append(row, cellOf(m, h.Field))
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
		if len(list) >= 10 && (i+1)%(len(list)/10) == 0 {
			report(progress, 5+90*(i+1)/len(list), "rows")
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write export: %w", err)
	}
	report(progress, 100, "done")
	return buf.Bytes(), nil
}
