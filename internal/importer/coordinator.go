package importer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tpm/internal/logger"
	"tpm/internal/model"
	"tpm/internal/parser"
)

// 进度事件类型
const (
	EventStart    = "start"
	EventInfo     = "info"
	EventRejected = "rejected"
	EventSubmit   = "submit"
	EventDone     = "done"
	EventError    = "error"
)

// LogStore 导入运行记录
type LogStore interface {
	CreateImportLog(ctx context.Context, log *model.ImportLog) error
	FinishImportLog(ctx context.Context, log *model.ImportLog) error
}

// Coordinator 导入协调器：单飞保护 + 进度事件 + 运行记录
type Coordinator struct {
	pipeline *Pipeline
	guard    *Guard
	logs     LogStore
}

// NewCoordinator 创建导入协调器；logs 可为 nil
func NewCoordinator(pipeline *Pipeline, logs LogStore) *Coordinator {
	return &Coordinator{
		pipeline: pipeline,
		guard:    &Guard{},
		logs:     logs,
	}
}

// ImportOptions 导入选项
type ImportOptions struct {
	Filename        string
	Data            []byte
	DefaultCategory string
	MaxRows         int
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string    `json:"type"`      // start/info/rejected/submit/done/error
	Message   string    `json:"message"`   // 事件消息
	Data      any       `json:"data"`      // 附加数据
	Timestamp time.Time `json:"timestamp"` // 时间戳
}

// ErrorData error 事件的附加数据
type ErrorData struct {
	Kind    string   `json:"kind"` // empty_file/missing_columns/too_many_rows/submission/internal
	Missing []string `json:"missing,omitempty"`
}

// Busy 是否有导入在执行
func (c *Coordinator) Busy() bool {
	return c.guard.Busy()
}

// Import 执行导入，返回进度通道；已有导入在执行时返回 ErrImportInProgress
//
// 提交阶段不随 ctx 取消：调用方断开后导入仍会完成并记录结果，只是不再推送事件。
func (c *Coordinator) Import(ctx context.Context, opts ImportOptions) (<-chan ProgressEvent, error) {
	release, err := c.guard.Acquire()
	if err != nil {
		return nil, err
	}

	progressChan := make(chan ProgressEvent, 16)
	go func() {
		defer close(progressChan)
		// 通道关闭前释放槽位
		defer release()
		c.doImport(ctx, opts, progressChan)
	}()

	return progressChan, nil
}

func (c *Coordinator) doImport(ctx context.Context, opts ImportOptions, ch chan ProgressEvent) {
	sum := sha256.Sum256(opts.Data)
	runLog := &model.ImportLog{
		RunID:     uuid.NewString(),
		Filename:  opts.Filename,
		FileSize:  int64(len(opts.Data)),
		FileHash:  hex.EncodeToString(sum[:]),
		Status:    model.ImportStatusProcessing,
		CreatedAt: time.Now(),
	}
	work := context.WithoutCancel(ctx)
	c.createLog(work, runLog)

	c.sendProgress(ctx, ch, EventStart, "开始导入 Excel 文件", map[string]string{
		"filename": opts.Filename,
		"run_id":   runLog.RunID,
	})

	prepared, err := c.pipeline.Prepare(bytes.NewReader(opts.Data), Options{
		DefaultCategory: opts.DefaultCategory,
		MaxRows:         opts.MaxRows,
	})
	if err != nil {
		c.fail(ctx, ch, runLog, err)
		return
	}
	runLog.TotalRows = prepared.Total

	c.sendProgress(ctx, ch, EventInfo, fmt.Sprintf("Sheet \"%s\" 共 %d 行", prepared.Sheet, prepared.Total), map[string]any{
		"sheet_name": prepared.Sheet,
		"total_rows": prepared.Total,
		"accepted":   len(prepared.Accepted),
	})

	if len(prepared.Rejected) > 0 {
		c.sendProgress(ctx, ch, EventRejected, fmt.Sprintf("%d 行缺少必填字段", len(prepared.Rejected)), prepared.Rejected)
	}

	if len(prepared.Accepted) > 0 {
		c.sendProgress(ctx, ch, EventSubmit, fmt.Sprintf("正在提交 %d 行", len(prepared.Accepted)), map[string]int{
			"rows": len(prepared.Accepted),
		})
	}

	result, err := c.pipeline.Submit(work, prepared)
	if err != nil {
		c.fail(ctx, ch, runLog, err)
		return
	}

	runLog.SuccessCount = result.SuccessCount
	runLog.ErrorCount = result.ErrorCount
	runLog.Status = model.ImportStatusCompleted
	c.finishLog(work, runLog)

	c.sendProgress(ctx, ch, EventDone, "导入完成", result)
}

// fail 记录失败并发送 error 事件
func (c *Coordinator) fail(ctx context.Context, ch chan ProgressEvent, runLog *model.ImportLog, err error) {
	runLog.Status = model.ImportStatusFailed
	runLog.ErrorMessage = err.Error()
	c.finishLog(context.WithoutCancel(ctx), runLog)

	logger.Warn(ctx, "import failed", zap.String("run_id", runLog.RunID), zap.Error(err))
	c.sendProgress(ctx, ch, EventError, err.Error(), classify(err))
}

// classify 错误分类，供前端区分提示
func classify(err error) ErrorData {
	var (
		empty   *parser.EmptyFileError
		missing *parser.MissingColumnsError
		tooMany *parser.TooManyRowsError
		submit  *SubmissionError
	)
	switch {
	case errors.As(err, &empty):
		return ErrorData{Kind: "empty_file"}
	case errors.As(err, &missing):
		return ErrorData{Kind: "missing_columns", Missing: missing.Missing}
	case errors.As(err, &tooMany):
		return ErrorData{Kind: "too_many_rows"}
	case errors.As(err, &submit):
		return ErrorData{Kind: "submission"}
	default:
		return ErrorData{Kind: "internal"}
	}
}

func (c *Coordinator) createLog(ctx context.Context, runLog *model.ImportLog) {
	if c.logs == nil {
		return
	}
	if err := c.logs.CreateImportLog(ctx, runLog); err != nil {
		logger.Error(ctx, "create import log", err, zap.String("run_id", runLog.RunID))
	}
}

func (c *Coordinator) finishLog(ctx context.Context, runLog *model.ImportLog) {
	if c.logs == nil {
		return
	}
	now := time.Now()
	runLog.CompletedAt = &now
	if err := c.logs.FinishImportLog(ctx, runLog); err != nil {
		logger.Error(ctx, "finish import log", err, zap.String("run_id", runLog.RunID))
	}
}

// sendProgress 发送进度事件；调用方已断开时丢弃
func (c *Coordinator) sendProgress(ctx context.Context, ch chan ProgressEvent, typ, msg string, data any) {
	event := ProgressEvent{
		Type:      typ,
		Message:   msg,
		Data:      data,
		Timestamp: time.Now(),
	}
	select {
	case ch <- event:
	case <-ctx.Done():
	}
}
