package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReadOptions 读取选项
type ReadOptions struct {
	// MaxRows 数据行上限，0 表示不限制
	MaxRows int
}

// TooManyRowsError 数据行超过上限
type TooManyRowsError struct {
	Rows int
	Max  int
}

func (e *TooManyRowsError) Error() string {
	return fmt.Sprintf("file has %d data rows, limit is %d", e.Rows, e.Max)
}

// ReadWorkbook 读取工作簿：第一行为表头，之后每行一条记录
//
// 含多个 Sheet 时按表头识别选出台账 Sheet（并列取第一个）。
// 日期格式的数值单元格以 time.Time 返回，其余数值单元格为 float64，文本为 string。
func ReadWorkbook(r io.Reader, opts ReadOptions) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &EmptyFileError{}
	}

	mapper := NewFieldMapper()
	recognizer := NewSheetRecognizer(mapper)

	results := make([]SheetRecognitionResult, 0, len(sheets))
	for _, name := range sheets {
		headers, err := readHeaderRow(f, name)
		if err != nil {
			return nil, err
		}
		results = append(results, recognizer.Recognize(name, headers))
	}
	best := recognizer.Best(results)

	return readSheet(f, best.SheetName, opts)
}

func readHeaderRow(f *excelize.File, sheet string) ([]string, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", sheet, err)
	}
	return trimHeaders(cols), nil
}

func readSheet(f *excelize.File, sheet string, opts ReadOptions) (*Sheet, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &EmptyFileError{Sheet: sheet}
	}

	out := &Sheet{
		Name:    sheet,
		Headers: trimHeaders(rows[0]),
	}
	dates := newDateStyles(f)

	for i := 1; i < len(rows); i++ {
		line := i + 1
		cells := make(map[string]any)
		values := make([]any, len(out.Headers))
		for col, raw := range rows[i] {
			if col >= len(out.Headers) || out.Headers[col] == "" {
				continue
			}
			if strings.TrimSpace(raw) == "" {
				continue
			}
			v := cellValue(f, dates, sheet, col+1, line, raw)
			values[col] = v
			if _, dup := cells[out.Headers[col]]; !dup {
				cells[out.Headers[col]] = v
			}
		}
		// 跳过空行
		if len(cells) == 0 {
			continue
		}
		out.Rows = append(out.Rows, RawRow{Line: line, Cells: cells, Values: values})
	}

	if len(out.Rows) == 0 {
		return nil, &EmptyFileError{Sheet: sheet}
	}
	if opts.MaxRows > 0 && len(out.Rows) > opts.MaxRows {
		return nil, &TooManyRowsError{Rows: len(out.Rows), Max: opts.MaxRows}
	}
	return out, nil
}

func trimHeaders(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

// cellValue 按单元格类型还原值
func cellValue(f *excelize.File, dates *dateStyles, sheet string, col, row int, raw string) any {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}

	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return raw
	}

	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return raw
		}
		if dates.isDate(sheet, cell) {
			if t, err := excelize.ExcelDateToTime(v, false); err == nil {
				return t
			}
		}
		return v
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t
		}
		return raw
	default:
		return raw
	}
}

// dateStyles 缓存样式是否为日期格式
type dateStyles struct {
	f     *excelize.File
	cache map[int]bool
}

func newDateStyles(f *excelize.File) *dateStyles {
	return &dateStyles{f: f, cache: make(map[int]bool)}
}

func (d *dateStyles) isDate(sheet, cell string) bool {
	idx, err := d.f.GetCellStyle(sheet, cell)
	if err != nil || idx == 0 {
		return false
	}
	if v, ok := d.cache[idx]; ok {
		return v
	}

	v := false
	if style, err := d.f.GetStyle(idx); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			v = isDateFormat(*style.CustomNumFmt)
		} else {
			v = isBuiltInDateFmt(style.NumFmt)
		}
	}
	d.cache[idx] = v
	return v
}

// isBuiltInDateFmt 内置数字格式中的日期/时间格式
func isBuiltInDateFmt(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat 自定义格式含年或日占位符即视为日期（忽略引号与方括号内的文本）
func isDateFormat(format string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range format {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == '[' && !inQuote:
			inBracket = true
		case r == ']' && !inQuote:
			inBracket = false
		case !inQuote && !inBracket:
			b.WriteRune(r)
		}
	}
	s := strings.ToLower(b.String())
	return strings.ContainsAny(s, "yd")
}

// CheckHeaders 使用默认翻译表检查必填列
func CheckHeaders(headers []string) error {
	return NewFieldMapper().CheckHeaders(headers)
}
