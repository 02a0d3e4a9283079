package filter

import (
	"tpm/internal/aggregate"
	"tpm/internal/taxonomy"
)

// FilterState 列表查询的筛选状态
//
// CurrentStatus / BorrowStatus 是与统计矩阵联动的两个维度；
// 空列表（或仅含 ALL）表示该维度不限制。
type FilterState struct {
	CurrentStatus []taxonomy.Status `json:"current_status"`
	BorrowStatus  []taxonomy.Source `json:"borrow_status"`

	// 与矩阵无关的下拉筛选
	Types         []string `json:"types,omitempty"`
	Models        []string `json:"models,omitempty"`
	Manufacturers []string `json:"manufacturers,omitempty"`
	Locations     []string `json:"locations,omitempty"`
}

// AxisState 单个维度所处的状态
type AxisState int

const (
	Unrestricted AxisState = iota // 不限制
	Single                        // 单值
	MergedGroup                   // 合并组（保养/故障/停用，或 internal+borrowed_out）
	Other                         // 其它任意组合（来自手工下拉筛选）
)

func (a AxisState) String() string {
	switch a {
	case Unrestricted:
		return "unrestricted"
	case Single:
		return "single"
	case MergedGroup:
		return "merged_group"
	default:
		return "other"
	}
}

// Clone 深拷贝
func (s FilterState) Clone() FilterState {
	return FilterState{
		CurrentStatus: append([]taxonomy.Status(nil), s.CurrentStatus...),
		BorrowStatus:  append([]taxonomy.Source(nil), s.BorrowStatus...),
		Types:         append([]string(nil), s.Types...),
		Models:        append([]string(nil), s.Models...),
		Manufacturers: append([]string(nil), s.Manufacturers...),
		Locations:     append([]string(nil), s.Locations...),
	}
}

// Activate 点击矩阵单元格 (row, col) 后的筛选状态；非矩阵筛选原样保留
func Activate(state FilterState, row taxonomy.RowKey, col taxonomy.ColKey) FilterState {
	next := state.Clone()
	next.CurrentStatus = rowAxis(row)
	next.BorrowStatus = colAxis(col)
	return next
}

func rowAxis(row taxonomy.RowKey) []taxonomy.Status {
	if c := taxonomy.Constituents(row); len(c) > 0 {
		return c
	}
	return []taxonomy.Status{}
}

func colAxis(col taxonomy.ColKey) []taxonomy.Source {
	if s := taxonomy.Sources(col); len(s) > 0 {
		return s
	}
	return []taxonomy.Source{}
}

// IsActive 单元格 (row, col) 是否与当前筛选一致
func IsActive(state FilterState, row taxonomy.RowKey, col taxonomy.ColKey) bool {
	return IsRowActive(state, row) && IsColActive(state, col)
}

// IsRowActive 行头是否高亮（不看列维度）
func IsRowActive(state FilterState, row taxonomy.RowKey) bool {
	return equalSets(statusKeys(state.CurrentStatus), statusKeys(rowAxis(row)))
}

// IsColActive 列头是否高亮（不看行维度）
func IsColActive(state FilterState, col taxonomy.ColKey) bool {
	return equalSets(sourceKeys(state.BorrowStatus), sourceKeys(colAxis(col)))
}

// Classify 判断两个维度各自的状态
func Classify(state FilterState) (row, col AxisState) {
	return classify(statusKeys(state.CurrentStatus), statusKeys(taxonomy.NotInUseGroup)),
		classify(sourceKeys(state.BorrowStatus), sourceKeys(taxonomy.InternalGroup))
}

func classify(set map[string]struct{}, group map[string]struct{}) AxisState {
	switch {
	case len(set) == 0:
		return Unrestricted
	case len(set) == 1:
		return Single
	case equalSets(set, group):
		return MergedGroup
	default:
		return Other
	}
}

// Highlight 按当前筛选标记矩阵中的高亮单元格与表头，返回副本
func Highlight(v aggregate.View, state FilterState) aggregate.View {
	rows := make([]aggregate.RowView, len(v.Rows))
	for i, r := range v.Rows {
		r.Active = IsRowActive(state, r.Key)
		r.ActiveCells = make(map[taxonomy.ColKey]bool, len(v.Cols)+1)
		for _, c := range v.Cols {
			if IsActive(state, r.Key, c.Key) {
				r.ActiveCells[c.Key] = true
			}
		}
		if IsActive(state, r.Key, taxonomy.ColAll) {
			r.ActiveCells[taxonomy.ColAll] = true
		}
		rows[i] = r
	}
	cols := make([]aggregate.ColView, len(v.Cols))
	for i, c := range v.Cols {
		c.Active = IsColActive(state, c.Key)
		cols[i] = c
	}
	v.Rows = rows
	v.Cols = cols
	v.TotalActive = IsActive(state, taxonomy.RowAll, taxonomy.ColAll)
	return v
}

// statusKeys 转为集合；ALL 哨兵与空值被忽略
func statusKeys(in []taxonomy.Status) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == "" || taxonomy.IsAll(string(s)) {
			continue
		}
		out[string(s)] = struct{}{}
	}
	return out
}

func sourceKeys(in []taxonomy.Source) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == "" || taxonomy.IsAll(string(s)) {
			continue
		}
		out[string(s)] = struct{}{}
	}
	return out
}

func equalSets(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
