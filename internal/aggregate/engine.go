package aggregate

import (
	"strconv"

	"tpm/internal/taxonomy"
)

// RowView 渲染用的一行
type RowView struct {
	Key    taxonomy.RowKey         `json:"key"`
	Label  string                  `json:"label"`
	Cells  map[taxonomy.ColKey]int `json:"cells"`
	Total  int                     `json:"total"`
	Active bool                    `json:"active"`
	// ActiveCells 当前筛选命中的单元格（由 filter.Highlight 填充）
	ActiveCells map[taxonomy.ColKey]bool `json:"activeCells,omitempty"`
}

// ColView 渲染用的列头
type ColView struct {
	Key    taxonomy.ColKey `json:"key"`
	Label  string          `json:"label"`
	Total  int             `json:"total"`
	Active bool            `json:"active"`
}

// View 可直接渲染的统计矩阵
type View struct {
	Rows        []RowView    `json:"rows"`
	Cols        []ColView    `json:"cols"`
	GrandTotal  int          `json:"grandTotal"`
	TotalActive bool         `json:"totalActive"`
	Folded      StatusMatrix `json:"folded"`
}

// Fold 将 borrowed_out 计入 internal 并清零，返回派生副本
func Fold(raw StatusMatrix) StatusMatrix {
	in := taxonomy.SourceInternal.Index()
	out := taxonomy.SourceBorrowedOut.Index()
	for i := range raw {
		raw[i][in] += raw[i][out]
		raw[i][out] = 0
	}
	return raw
}

// NotInUse 合并组（保养/故障/停用）逐列求和
func NotInUse(m StatusMatrix) StatusCount {
	var sum StatusCount
	for _, s := range taxonomy.NotInUseGroup {
		sum = sum.Add(m.Get(s))
	}
	return sum
}

// rowCount 某渲染行的计数（合并行每次从组成状态重算，不单独存储）
func rowCount(folded StatusMatrix, row taxonomy.RowKey) StatusCount {
	if row == taxonomy.RowNotInUse {
		return NotInUse(folded)
	}
	return folded.Get(taxonomy.Status(row))
}

// Build 由原始矩阵生成渲染矩阵与合计
func Build(raw StatusMatrix) View {
	folded := Fold(raw)

	v := View{
		Rows:   make([]RowView, 0, len(taxonomy.Rows)),
		Cols:   make([]ColView, 0, len(taxonomy.Cols)),
		Folded: folded,
	}

	colTotals := make(map[taxonomy.ColKey]int, len(taxonomy.Cols))
	for _, row := range taxonomy.Rows {
		counts := rowCount(folded, row)
		rv := RowView{
			Key:   row,
			Label: taxonomy.RowLabel(row),
			Cells: make(map[taxonomy.ColKey]int, len(taxonomy.Cols)),
		}
		for _, col := range taxonomy.Cols {
			n := counts.Get(taxonomy.Source(col))
			rv.Cells[col] = n
			rv.Total += n
			colTotals[col] += n
		}
		v.GrandTotal += rv.Total
		v.Rows = append(v.Rows, rv)
	}

	for _, col := range taxonomy.Cols {
		v.Cols = append(v.Cols, ColView{
			Key:   col,
			Label: taxonomy.ColLabel(col),
			Total: colTotals[col],
		})
	}

	return v
}

// Cell 读取单元格；ALL 行/列返回对应合计
func (v View) Cell(row taxonomy.RowKey, col taxonomy.ColKey) int {
	if row == taxonomy.RowAll {
		if col == taxonomy.ColAll {
			return v.GrandTotal
		}
		return v.ColTotal(col)
	}
	if col == taxonomy.ColAll {
		return v.RowTotal(row)
	}
	for _, r := range v.Rows {
		if r.Key == row {
			return r.Cells[col]
		}
	}
	return 0
}

// RowTotal 行合计；未配置的行为 0
func (v View) RowTotal(row taxonomy.RowKey) int {
	for _, r := range v.Rows {
		if r.Key == row {
			return r.Total
		}
	}
	return 0
}

// ColTotal 列合计；未配置的列为 0
func (v View) ColTotal(col taxonomy.ColKey) int {
	for _, c := range v.Cols {
		if c.Key == col {
			return c.Total
		}
	}
	return 0
}

// Display 显示约定：0 显示为 "-"
func Display(n int) string {
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}
