// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zhiban/zhiban/pkg/model"
)

// SolveRepository 求解结果仓储
type SolveRepository struct {
	db DB
}

// NewSolveRepository 创建求解结果仓储
func NewSolveRepository(db DB) *SolveRepository {
	return &SolveRepository{db: db}
}

// Create 保存求解结果
func (r *SolveRepository) Create(ctx context.Context, rec *model.SolveRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	solutionJSON, _ := json.Marshal(rec.Solution)

	query := `
		INSERT INTO solve_records (id, run_id, status, total_duties, solution_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.RunID, rec.Status, rec.TotalDuties, solutionJSON, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("保存求解结果失败: %w", err)
	}

	return nil
}

// GetByRunID 根据运行ID获取求解结果
func (r *SolveRepository) GetByRunID(ctx context.Context, runID uuid.UUID) (*model.SolveRecord, error) {
	query := `
		SELECT id, run_id, status, total_duties, solution_json, created_at, updated_at
		FROM solve_records
		WHERE run_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanRecord(r.db.QueryRowContext(ctx, query, runID))
}

// GetLatest 获取最近一次求解结果
func (r *SolveRepository) GetLatest(ctx context.Context) (*model.SolveRecord, error) {
	query := `
		SELECT id, run_id, status, total_duties, solution_json, created_at, updated_at
		FROM solve_records
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanRecord(r.db.QueryRowContext(ctx, query))
}

// List 查询求解历史
func (r *SolveRepository) List(ctx context.Context, filter ListFilter) ([]*model.SolveRecord, int, error) {
	countQuery := `SELECT COUNT(*) FROM solve_records WHERE deleted_at IS NULL`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("查询总数失败: %w", err)
	}

	query := `
		SELECT id, run_id, status, total_duties, solution_json, created_at, updated_at
		FROM solve_records
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var records []*model.SolveRecord
	for rows.Next() {
		rec := &model.SolveRecord{}
		var solutionJSON []byte
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Status, &rec.TotalDuties, &solutionJSON, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("扫描求解结果失败: %w", err)
		}
		json.Unmarshal(solutionJSON, &rec.Solution)
		records = append(records, rec)
	}

	return records, total, nil
}

// Delete 软删除求解结果
func (r *SolveRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE solve_records SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除求解结果失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("求解结果不存在")
	}

	return nil
}

// scanRecord 扫描单行求解结果
func (r *SolveRepository) scanRecord(row *sql.Row) (*model.SolveRecord, error) {
	rec := &model.SolveRecord{}
	var solutionJSON []byte

	err := row.Scan(&rec.ID, &rec.RunID, &rec.Status, &rec.TotalDuties, &solutionJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描求解结果失败: %w", err)
	}

	json.Unmarshal(solutionJSON, &rec.Solution)

	return rec, nil
}
