package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"tpm/internal/logger"
	"tpm/internal/model"
	"tpm/internal/parser"
)

// BatchCreator 批量创建接口
//
// 返回的失败行 Line 为该行在提交列表中的序号（从 1 开始）。
type BatchCreator interface {
	CreateBatch(ctx context.Context, machines []model.MachineInput) (*model.BatchResult, error)
}

// SubmissionError 批量提交整体失败（网络错误或接口返回失败），不重试
type SubmissionError struct {
	Rows int
	Err  error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %d rows: %v", e.Rows, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Options 单次导入参数
type Options struct {
	DefaultCategory string
	MaxRows         int
}

// Prepared 本地阶段（解析、表头检查、逐行翻译）的产物
type Prepared struct {
	Sheet    string
	Total    int
	Accepted []model.MachineInput
	Rejected []model.ImportFailure
}

// Pipeline 导入流水线：解析 → 表头检查 → 逐行翻译与校验 → 一次批量提交
type Pipeline struct {
	creator  BatchCreator
	mapper   *parser.FieldMapper
	validate *validator.Validate
}

// NewPipeline 创建流水线
func NewPipeline(creator BatchCreator) *Pipeline {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 校验错误使用 json 字段名，便于映射回外部列名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Pipeline{
		creator:  creator,
		mapper:   parser.NewFieldMapper(),
		validate: v,
	}
}

// Run 执行完整导入
func (p *Pipeline) Run(ctx context.Context, r io.Reader, opts Options) (*model.ImportResult, error) {
	prepared, err := p.Prepare(r, opts)
	if err != nil {
		return nil, err
	}
	return p.Submit(ctx, prepared)
}

// Prepare 本地阶段，不做任何网络调用
//
// 空文件或缺少必填列时整次导入失败，不做任何逐行处理。
func (p *Pipeline) Prepare(r io.Reader, opts Options) (*Prepared, error) {
	sheet, err := parser.ReadWorkbook(r, parser.ReadOptions{MaxRows: opts.MaxRows})
	if err != nil {
		return nil, err
	}

	if err := p.mapper.CheckHeaders(sheet.Headers); err != nil {
		return nil, err
	}

	translator := parser.NewTranslator(p.mapper, opts.DefaultCategory).ForHeaders(sheet.Headers)
	outcomes := make([]rowOutcome, len(sheet.Rows))
	for i, row := range sheet.Rows {
		outcomes[i] = p.translate(translator, row)
	}

	accepted, rejected := partition(outcomes)
	return &Prepared{
		Sheet:    sheet.Name,
		Total:    len(sheet.Rows),
		Accepted: accepted,
		Rejected: rejected,
	}, nil
}

// Submit 提交通过本地校验的行；没有可提交的行时不调用接口
func (p *Pipeline) Submit(ctx context.Context, prepared *Prepared) (*model.ImportResult, error) {
	result := model.NewImportResult()

	if len(prepared.Accepted) > 0 {
		remote, err := p.creator.CreateBatch(ctx, prepared.Accepted)
		if err != nil {
			return nil, &SubmissionError{Rows: len(prepared.Accepted), Err: err}
		}
		if remote == nil {
			return nil, &SubmissionError{Rows: len(prepared.Accepted), Err: errors.New("empty response")}
		}

		for _, s := range remote.Successes {
			result.AddSuccess(s)
		}
		for _, f := range remote.Errors {
			f.Line = sheetLine(prepared.Accepted, f.Line)
			result.AddFailure(f)
		}
	}

	for _, f := range prepared.Rejected {
		result.AddFailure(f)
	}

	logger.Info(ctx, "import submitted",
		zap.String("sheet", prepared.Sheet),
		zap.Int("rows", prepared.Total),
		zap.Int("accepted", len(prepared.Accepted)),
		zap.Int("rejected", len(prepared.Rejected)),
		zap.Int("success", result.SuccessCount),
		zap.Int("errors", result.ErrorCount),
	)
	return result, nil
}

// rowOutcome 单行翻译结果：要么是可提交的行，要么是拒绝原因
type rowOutcome struct {
	input     model.MachineInput
	rejection *model.ImportFailure
}

func (p *Pipeline) translate(t *parser.Translator, row parser.RawRow) rowOutcome {
	in := t.Translate(row)
	if err := p.validate.Struct(in); err != nil {
		return rowOutcome{rejection: &model.ImportFailure{
			Line:    row.Line,
			Code:    in.CodeMachine,
			Serial:  in.SerialMachine,
			Message: p.describe(err),
		}}
	}
	return rowOutcome{input: in}
}

// describe 把校验错误转成外部列名的说明
func (p *Pipeline) describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	var missing, invalid []string
	for _, fe := range verrs {
		label := p.mapper.LabelOf(fe.Field())
		if fe.Tag() == "required" {
			missing = append(missing, label)
		} else {
			invalid = append(invalid, label)
		}
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required field: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid value: "+strings.Join(invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

func partition(outcomes []rowOutcome) (accepted []model.MachineInput, rejected []model.ImportFailure) {
	accepted = make([]model.MachineInput, 0, len(outcomes))
	rejected = make([]model.ImportFailure, 0)
	for _, o := range outcomes {
		if o.rejection != nil {
			rejected = append(rejected, *o.rejection)
			continue
		}
		accepted = append(accepted, o.input)
	}
	return accepted, rejected
}

// sheetLine 批量接口的序号 → 表格行号；超出范围时原样返回
func sheetLine(accepted []model.MachineInput, pos int) int {
	if pos >= 1 && pos <= len(accepted) {
		return accepted[pos-1].Line
	}
	return pos
}
