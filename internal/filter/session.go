package filter

import "tpm/internal/taxonomy"

// Session 页面持有的筛选状态
//
// Generation 每次矩阵激活时递增，调用方据此触发重新拉取列表；
// 迟到的旧响应可用 Generation 判定丢弃（后到者生效）。
type Session struct {
	State      FilterState `json:"state"`
	Page       int         `json:"page"`
	Generation uint64      `json:"generation"`
}

// NewSession 初始会话：不限制，第 1 页
func NewSession() *Session {
	return &Session{Page: 1}
}

// Activate 激活矩阵单元格：设置筛选、回到第一页、发出重新拉取信号
func (s *Session) Activate(row taxonomy.RowKey, col taxonomy.ColKey) FilterState {
	s.State = Activate(s.State, row, col)
	s.Page = 1
	s.Generation++
	return s.State.Clone()
}

// SetPage 翻页（不改变筛选）
func (s *Session) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.Page = page
}

// Accept 判断某次拉取的结果是否仍然有效
func (s *Session) Accept(generation uint64) bool {
	return generation == s.Generation
}
