package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"tpm/internal/aggregate"
	"tpm/internal/model"
	"tpm/internal/query"
	"tpm/internal/taxonomy"
)

const dateLayout = "2006-01-02"

const machineColumns = `id, code_machine, type_machine, model_machine, manufacturer, serial_machine,
	price, repair_cost, date_of_use, name_location, name_category,
	current_status, borrow_status, supplier, note, created_at, updated_at`

// CountByStatusSource 按（状态, 来源）分组计数
func (s *Store) CountByStatusSource(ctx context.Context) ([]aggregate.Count, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT current_status, borrow_status, COUNT(1)
		FROM machines
		GROUP BY current_status, borrow_status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count machines: %w", err)
	}
	defer rows.Close()

	var out []aggregate.Count
	for rows.Next() {
		var c aggregate.Count
		if err := rows.Scan(&c.Status, &c.Source, &c.N); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Stats 状态矩阵
func (s *Store) Stats(ctx context.Context) (aggregate.StatusMatrix, error) {
	counts, err := s.CountByStatusSource(ctx)
	if err != nil {
		return aggregate.StatusMatrix{}, err
	}
	return aggregate.FromCounts(counts), nil
}

// CountMachines 台账总数
func (s *Store) CountMachines(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM machines").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count machines: %w", err)
	}
	return n, nil
}

// likeEscaper 搜索词按字面匹配，转义 LIKE 通配符
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// whereClause 列表筛选条件
func whereClause(p query.Params) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if p.Search != "" {
		like := "%" + likeEscaper.Replace(p.Search) + "%"
		clauses = append(clauses, `(code_machine LIKE ? ESCAPE '\' OR serial_machine LIKE ? ESCAPE '\' OR type_machine LIKE ? ESCAPE '\' OR model_machine LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like, like)
	}

	in := func(col string, values []string) {
		if len(values) == 0 {
			return
		}
		marks := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", col, marks))
		for _, v := range values {
			args = append(args, v)
		}
	}
	in("current_status", p.CurrentStatus)
	in("borrow_status", p.BorrowStatus)
	in("type_machine", p.Types)
	in("model_machine", p.Models)
	in("manufacturer", p.Manufacturers)
	in("name_location", p.Locations)

	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListMachines 分页列表，返回当前页与总数
func (s *Store) ListMachines(ctx context.Context, p query.Params) ([]model.Machine, int, error) {
	where, args := whereClause(p)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM machines"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count: %w", err)
	}

	q := "SELECT " + machineColumns + " FROM machines" + where + " ORDER BY id"
	if p.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, p.Limit, p.Offset())
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	list, err := scanMachines(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// AllMachines 按筛选条件返回全部记录（忽略分页，导出使用）
func (s *Store) AllMachines(ctx context.Context, p query.Params) ([]model.Machine, error) {
	p.Page, p.Limit = 1, 0
	list, _, err := s.ListMachines(ctx, p)
	return list, err
}

// GetMachine 按 ID 获取
func (s *Store) GetMachine(ctx context.Context, id int64) (*model.Machine, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+machineColumns+" FROM machines WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	list, err := scanMachines(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("machine %d: %w", id, ErrNotFound)
	}
	return &list[0], nil
}

func scanMachines(rows *sql.Rows) ([]model.Machine, error) {
	out := []model.Machine{}
	for rows.Next() {
		var (
			m   model.Machine
			dou sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.CodeMachine, &m.TypeMachine, &m.ModelMachine, &m.Manufacturer, &m.SerialMachine,
			&m.Price, &m.RepairCost, &dou, &m.NameLocation, &m.NameCategory,
			&m.CurrentStatus, &m.BorrowStatus, &m.Supplier, &m.Note, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan machine: %w", err)
		}
		if dou.Valid {
			if t, err := time.Parse(dateLayout, dou.String); err == nil {
				m.DateOfUse = &t
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func dateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

// checkInput 批量创建的行级校验：必填字段与状态/来源取值
func checkInput(in model.MachineInput) string {
	var missing []string
	if strings.TrimSpace(in.SerialMachine) == "" {
		missing = append(missing, "serial_machine")
	}
	if strings.TrimSpace(in.TypeMachine) == "" {
		missing = append(missing, "type_machine")
	}
	if len(missing) > 0 {
		return "missing required field: " + strings.Join(missing, ", ")
	}
	if in.CurrentStatus != "" {
		if _, err := taxonomy.ParseStatus(in.CurrentStatus); err != nil {
			return fmt.Sprintf("invalid current_status: %s", in.CurrentStatus)
		}
	}
	if in.BorrowStatus != "" {
		if _, err := taxonomy.ParseSource(in.BorrowStatus); err != nil {
			return fmt.Sprintf("invalid borrow_status: %s", in.BorrowStatus)
		}
	}
	if in.Price < 0 || in.RepairCost < 0 {
		return "price and repair_cost must not be negative"
	}
	return ""
}

// CreateBatch 批量创建；逐行插入，单行失败不影响其他行
//
// 失败行的 Line 为该行在 machines 中的序号（从 1 开始）。
func (s *Store) CreateBatch(ctx context.Context, machines []model.MachineInput) (*model.BatchResult, error) {
	result := model.NewImportResult()
	if len(machines) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO machines (
			code_machine, type_machine, model_machine, manufacturer, serial_machine,
			price, repair_cost, date_of_use, name_location, name_category,
			current_status, borrow_status, supplier, note
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, in := range machines {
		in = normalizeInput(in)
		fail := func(msg string) {
			result.AddFailure(model.ImportFailure{
				Line:    i + 1,
				Code:    in.CodeMachine,
				Serial:  in.SerialMachine,
				Message: msg,
			})
		}

		if msg := checkInput(in); msg != "" {
			fail(msg)
			continue
		}

		_, err := stmt.ExecContext(ctx,
			in.CodeMachine, in.TypeMachine, in.ModelMachine, in.Manufacturer, in.SerialMachine,
			in.Price, in.RepairCost, dateValue(in.DateOfUse), in.NameLocation, in.NameCategory,
			in.CurrentStatus, in.BorrowStatus, in.Supplier, in.Note,
		)
		if err != nil {
			if msg, ok := constraintMessage(err, in); ok {
				fail(msg)
				continue
			}
			return nil, fmt.Errorf("failed to insert machine %s: %w", in.SerialMachine, err)
		}

		result.AddSuccess(model.ImportSuccess{
			Code:   in.CodeMachine,
			Type:   in.TypeMachine,
			Model:  in.ModelMachine,
			Serial: in.SerialMachine,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

func normalizeInput(in model.MachineInput) model.MachineInput {
	in.CodeMachine = strings.TrimSpace(in.CodeMachine)
	in.TypeMachine = strings.TrimSpace(in.TypeMachine)
	in.SerialMachine = strings.TrimSpace(in.SerialMachine)
	if in.CurrentStatus == "" {
		in.CurrentStatus = string(taxonomy.StatusAvailable)
	} else if st, err := taxonomy.ParseStatus(in.CurrentStatus); err == nil {
		in.CurrentStatus = string(st)
	}
	if in.BorrowStatus == "" {
		in.BorrowStatus = string(taxonomy.SourceInternal)
	} else if src, err := taxonomy.ParseSource(in.BorrowStatus); err == nil {
		in.BorrowStatus = string(src)
	}
	return in
}

// constraintMessage 约束冲突转为行级错误
func constraintMessage(err error, in model.MachineInput) (string, bool) {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return "", false
	}
	if se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Sprintf("serial_machine %s already exists", in.SerialMachine), true
	}
	return "constraint failed: " + se.Error(), true
}

// 可编辑列
var patchColumns = map[string]bool{
	"code_machine":   true,
	"type_machine":   true,
	"model_machine":  true,
	"manufacturer":   true,
	"price":          true,
	"repair_cost":    true,
	"date_of_use":    true,
	"name_location":  true,
	"current_status": true,
	"borrow_status":  true,
	"supplier":       true,
	"note":           true,
}

// patchUpdates 编辑请求 → 列更新
func patchUpdates(p model.MachinePatch) (map[string]any, error) {
	updates := map[string]any{}
	setStr := func(col string, v *string) {
		if v != nil {
			updates[col] = strings.TrimSpace(*v)
		}
	}
	setStr("code_machine", p.CodeMachine)
	setStr("type_machine", p.TypeMachine)
	setStr("model_machine", p.ModelMachine)
	setStr("manufacturer", p.Manufacturer)
	setStr("name_location", p.NameLocation)
	setStr("supplier", p.Supplier)
	setStr("note", p.Note)
	if p.Price != nil {
		updates["price"] = *p.Price
	}
	if p.RepairCost != nil {
		updates["repair_cost"] = *p.RepairCost
	}
	if p.DateOfUse != nil {
		updates["date_of_use"] = dateValue(p.DateOfUse)
	}
	if p.CurrentStatus != nil {
		st, err := taxonomy.ParseStatus(*p.CurrentStatus)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		updates["current_status"] = string(st)
	}
	if p.BorrowStatus != nil {
		src, err := taxonomy.ParseSource(*p.BorrowStatus)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		updates["borrow_status"] = string(src)
	}
	return updates, nil
}

// UpdateMachine 部分更新，只允许白名单列
func (s *Store) UpdateMachine(ctx context.Context, id int64, patch model.MachinePatch) (*model.Machine, error) {
	updates, err := patchUpdates(patch)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return s.GetMachine(ctx, id)
	}

	cols := make([]string, 0, len(updates))
	for col := range updates {
		if !patchColumns[col] {
			return nil, fmt.Errorf("column %s is not editable", col)
		}
		cols = append(cols, col)
	}
	// 固定列顺序
	sort.Strings(cols)

	setClauses := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		setClauses = append(setClauses, col+" = ?")
		args = append(args, updates[col])
	}
	setClauses = append(setClauses, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE machines SET %s WHERE id = ?", strings.Join(setClauses, ", ")),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("machine %d: %w", id, ErrNotFound)
	}
	return s.GetMachine(ctx, id)
}
