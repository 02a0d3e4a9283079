package store

import (
	"context"
	"database/sql"
	"fmt"

	"tpm/internal/model"
)

// CreateImportLog 创建导入日志，回填 ID
func (s *Store) CreateImportLog(ctx context.Context, log *model.ImportLog) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO import_logs (run_id, filename, file_size, file_hash, status)
		VALUES (?, ?, ?, ?, ?)
	`, log.RunID, log.Filename, log.FileSize, log.FileHash, log.Status)
	if err != nil {
		return fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get import log id: %w", err)
	}
	log.ID = id
	return nil
}

// FinishImportLog 完成导入日志更新（按 run_id）
func (s *Store) FinishImportLog(ctx context.Context, log *model.ImportLog) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_logs SET
			total_rows = ?,
			success_count = ?,
			error_count = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE run_id = ?
	`, log.TotalRows, log.SuccessCount, log.ErrorCount, log.Status, log.ErrorMessage, log.RunID)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

// ListImportLogs 最近的导入记录（新的在前）
func (s *Store) ListImportLogs(ctx context.Context, limit int) ([]model.ImportLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, filename, file_size, file_hash, total_rows, success_count, error_count,
			status, error_message, created_at, completed_at
		FROM import_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import logs: %w", err)
	}
	defer rows.Close()

	out := []model.ImportLog{}
	for rows.Next() {
		var (
			it        model.ImportLog
			completed sql.NullTime
		)
		if err := rows.Scan(&it.ID, &it.RunID, &it.Filename, &it.FileSize, &it.FileHash,
			&it.TotalRows, &it.SuccessCount, &it.ErrorCount,
			&it.Status, &it.ErrorMessage, &it.CreatedAt, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", err)
		}
		if completed.Valid {
			t := completed.Time
			it.CompletedAt = &t
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// LastImportLog 最近一次导入；没有记录时返回 nil
func (s *Store) LastImportLog(ctx context.Context) (*model.ImportLog, error) {
	logs, err := s.ListImportLogs(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, nil
	}
	return &logs[0], nil
}
