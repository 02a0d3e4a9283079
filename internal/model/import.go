package model

import "time"

// ImportSuccess 成功创建的一行
type ImportSuccess struct {
	Code   string `json:"code"`
	Type   string `json:"type"`
	Model  string `json:"model"`
	Serial string `json:"serial"`
}

// ImportFailure 失败的一行（本地校验拒绝或批量接口拒绝）
//
// 导入结果中 Line 为表格行号；批量接口返回时为该行在提交列表中的序号（从 1 开始）。
type ImportFailure struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Serial  string `json:"serial"`
	Message string `json:"message"`
}

// ImportResult 单次导入结果；每次导入新建，返回后不再修改
type ImportResult struct {
	SuccessCount int             `json:"successCount"`
	ErrorCount   int             `json:"errorCount"`
	Successes    []ImportSuccess `json:"successes"`
	Errors       []ImportFailure `json:"errors"`
}

// BatchResult 批量创建接口的返回；结构与导入结果一致
type BatchResult = ImportResult

// NewImportResult 空结果（列表非 nil，便于 JSON 输出 []）
func NewImportResult() *ImportResult {
	return &ImportResult{
		Successes: []ImportSuccess{},
		Errors:    []ImportFailure{},
	}
}

// AddSuccess 记录成功行
func (r *ImportResult) AddSuccess(s ImportSuccess) {
	r.Successes = append(r.Successes, s)
	r.SuccessCount = len(r.Successes)
}

// AddFailure 记录失败行
func (r *ImportResult) AddFailure(f ImportFailure) {
	r.Errors = append(r.Errors, f)
	r.ErrorCount = len(r.Errors)
}

// ImportLog 导入运行记录
type ImportLog struct {
	ID           int64      `json:"id"`
	RunID        string     `json:"run_id"`
	Filename     string     `json:"filename"`
	FileSize     int64      `json:"file_size"`
	FileHash     string     `json:"file_hash"`
	TotalRows    int        `json:"total_rows"`
	SuccessCount int        `json:"success_count"`
	ErrorCount   int        `json:"error_count"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// 导入日志状态
const (
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
)
