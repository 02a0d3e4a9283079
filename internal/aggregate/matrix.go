package aggregate

import (
	"encoding/json"

	"go.uber.org/zap"

	"tpm/internal/logger"
	"tpm/internal/taxonomy"
)

// StatusCount 按来源计数，下标为 taxonomy.AllSources 的顺序
//
// 数组是值类型：赋值/传参即深拷贝，派生计算天然不会改动调用方数据。
type StatusCount [taxonomy.NumSources]int

// StatusMatrix 按主状态计数，下标为 taxonomy.AllStatuses 的顺序
type StatusMatrix [taxonomy.NumStatuses]StatusCount

// Count 统计接口返回的单条计数 (status, source, n)
type Count struct {
	Status string `json:"status"`
	Source string `json:"source"`
	N      int    `json:"n"`
}

// Get 读取某来源计数；未知来源为 0
func (c StatusCount) Get(src taxonomy.Source) int {
	i := src.Index()
	if i < 0 {
		return 0
	}
	return c[i]
}

// With 返回设置了某来源计数的副本
func (c StatusCount) With(src taxonomy.Source, n int) StatusCount {
	if i := src.Index(); i >= 0 {
		c[i] = clamp(n)
	}
	return c
}

// Add 逐元素相加
func (c StatusCount) Add(o StatusCount) StatusCount {
	for i := range c {
		c[i] += o[i]
	}
	return c
}

// Get 读取某状态的计数行
func (m StatusMatrix) Get(s taxonomy.Status) StatusCount {
	i := s.Index()
	if i < 0 {
		return StatusCount{}
	}
	return m[i]
}

// With 返回设置了某状态计数行的副本
func (m StatusMatrix) With(s taxonomy.Status, c StatusCount) StatusMatrix {
	if i := s.Index(); i >= 0 {
		for j := range c {
			c[j] = clamp(c[j])
		}
		m[i] = c
	}
	return m
}

// FromCounts 由 (status, source, n) 列表构建矩阵，同一坐标累加
func FromCounts(counts []Count) StatusMatrix {
	var m StatusMatrix
	for _, c := range counts {
		s, err := taxonomy.ParseStatus(c.Status)
		if err != nil {
			logger.Log.Warn("skip count with unknown status", zap.String("status", c.Status), zap.Int("n", c.N))
			continue
		}
		src, err := taxonomy.ParseSource(c.Source)
		if err != nil {
			logger.Log.Warn("skip count with unknown source", zap.String("source", c.Source), zap.Int("n", c.N))
			continue
		}
		m[s.Index()][src.Index()] += clamp(c.N)
	}
	return m
}

// MarshalJSON 输出 {"status": {"source": n}}
func (m StatusMatrix) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]int, len(taxonomy.AllStatuses))
	for i, s := range taxonomy.AllStatuses {
		row := make(map[string]int, len(taxonomy.AllSources))
		for j, src := range taxonomy.AllSources {
			row[string(src)] = m[i][j]
		}
		out[string(s)] = row
	}
	return json.Marshal(out)
}

// UnmarshalJSON 缺失键视为 0，未知键忽略，负数截断为 0
func (m *StatusMatrix) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out StatusMatrix
	for sk, row := range raw {
		s, err := taxonomy.ParseStatus(sk)
		if err != nil {
			continue
		}
		for ck, n := range row {
			src, err := taxonomy.ParseSource(ck)
			if err != nil {
				continue
			}
			out[s.Index()][src.Index()] = clamp(n)
		}
	}
	*m = out
	return nil
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
