package query

import (
	"net/url"
	"strconv"
	"strings"

	"tpm/internal/filter"
	"tpm/internal/taxonomy"
)

// 分页默认值
const (
	DefaultLimit = 20
	MaxLimit     = 500
)

// 列表接口的参数键
const (
	KeyPage          = "page"
	KeyLimit         = "limit"
	KeySearch        = "search"
	KeyCurrentStatus = "current_status"
	// KeySourceStatus borrow_status 在列表接口上的参数名
	KeySourceStatus = "source_status"
	KeyType         = "type_machine"
	KeyModel        = "model_machine"
	KeyManufacturer = "manufacturer"
	KeyLocation     = "name_location"
)

// Params 列表接口的扁平参数
type Params struct {
	Page          int      `json:"page"`
	Limit         int      `json:"limit"`
	Search        string   `json:"search,omitempty"`
	CurrentStatus []string `json:"current_status,omitempty"`
	BorrowStatus  []string `json:"source_status,omitempty"`
	Types         []string `json:"type_machine,omitempty"`
	Models        []string `json:"model_machine,omitempty"`
	Manufacturers []string `json:"manufacturer,omitempty"`
	Locations     []string `json:"name_location,omitempty"`
}

// Assemble 由筛选状态 + 搜索词 + 分页组装列表参数
func Assemble(state filter.FilterState, search string, page, limit int) Params {
	p := Params{
		Page:          page,
		Limit:         limit,
		Search:        strings.TrimSpace(search),
		CurrentStatus: statusList(state.CurrentStatus),
		BorrowStatus:  sourceList(state.BorrowStatus),
		Types:         cleanList(state.Types),
		Models:        cleanList(state.Models),
		Manufacturers: cleanList(state.Manufacturers),
		Locations:     cleanList(state.Locations),
	}
	p.normalizePaging()
	return p
}

func (p *Params) normalizePaging() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// Offset 分页偏移量
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Values 编码为 URL 参数；多值重复键，空列表不出现
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set(KeyPage, strconv.Itoa(p.Page))
	v.Set(KeyLimit, strconv.Itoa(p.Limit))
	if p.Search != "" {
		v.Set(KeySearch, p.Search)
	}
	addList(v, KeyCurrentStatus, p.CurrentStatus)
	addList(v, KeySourceStatus, p.BorrowStatus)
	addList(v, KeyType, p.Types)
	addList(v, KeyModel, p.Models)
	addList(v, KeyManufacturer, p.Manufacturers)
	addList(v, KeyLocation, p.Locations)
	return v
}

// FromValues 解析 URL 参数（支持重复键与逗号分隔）
func FromValues(v url.Values) Params {
	p := Params{
		Page:          atoi(v.Get(KeyPage)),
		Limit:         atoi(v.Get(KeyLimit)),
		Search:        strings.TrimSpace(v.Get(KeySearch)),
		CurrentStatus: cleanList(splitAll(v[KeyCurrentStatus])),
		BorrowStatus:  cleanList(splitAll(v[KeySourceStatus])),
		Types:         cleanList(v[KeyType]),
		Models:        cleanList(v[KeyModel]),
		Manufacturers: cleanList(v[KeyManufacturer]),
		Locations:     cleanList(v[KeyLocation]),
	}
	p.normalizePaging()
	return p
}

// State 还原矩阵相关的筛选状态（未知状态/来源被丢弃）
func (p Params) State() filter.FilterState {
	st := filter.FilterState{
		Types:         append([]string(nil), p.Types...),
		Models:        append([]string(nil), p.Models...),
		Manufacturers: append([]string(nil), p.Manufacturers...),
		Locations:     append([]string(nil), p.Locations...),
	}
	for _, s := range p.CurrentStatus {
		if v, err := taxonomy.ParseStatus(s); err == nil {
			st.CurrentStatus = append(st.CurrentStatus, v)
		}
	}
	for _, s := range p.BorrowStatus {
		if v, err := taxonomy.ParseSource(s); err == nil {
			st.BorrowStatus = append(st.BorrowStatus, v)
		}
	}
	return st
}

func statusList(in []taxonomy.Status) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return cleanList(out)
}

func sourceList(in []taxonomy.Source) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return cleanList(out)
}

// cleanList 去空白、去重、去 ALL；结果为空时返回 nil
func cleanList(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || taxonomy.IsAll(s) {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func splitAll(in []string) []string {
	var out []string
	for _, s := range in {
		out = append(out, strings.Split(s, ",")...)
	}
	return out
}

func addList(v url.Values, key string, list []string) {
	for _, s := range list {
		v.Add(key, s)
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
