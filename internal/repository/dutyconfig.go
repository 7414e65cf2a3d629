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

// DutyConfigRepository 值班配置仓储
type DutyConfigRepository struct {
	db DB
}

// NewDutyConfigRepository 创建值班配置仓储
func NewDutyConfigRepository(db DB) *DutyConfigRepository {
	return &DutyConfigRepository{db: db}
}

// Create 创建配置
func (r *DutyConfigRepository) Create(ctx context.Context, rec *model.DutyConfigRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	configJSON, _ := json.Marshal(rec.Config)

	query := `
		INSERT INTO duty_configs (id, name, config_json, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Name, configJSON, rec.IsActive, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建值班配置失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取配置
func (r *DutyConfigRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.DutyConfigRecord, error) {
	query := `
		SELECT id, name, config_json, is_active, created_at, updated_at
		FROM duty_configs
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanConfig(r.db.QueryRowContext(ctx, query, id))
}

// GetActive 获取当前生效的配置
func (r *DutyConfigRepository) GetActive(ctx context.Context) (*model.DutyConfigRecord, error) {
	query := `
		SELECT id, name, config_json, is_active, created_at, updated_at
		FROM duty_configs
		WHERE is_active = TRUE AND deleted_at IS NULL
		ORDER BY updated_at DESC
		LIMIT 1
	`

	return r.scanConfig(r.db.QueryRowContext(ctx, query))
}

// Update 更新配置
func (r *DutyConfigRepository) Update(ctx context.Context, rec *model.DutyConfigRecord) error {
	rec.UpdatedAt = time.Now()

	configJSON, _ := json.Marshal(rec.Config)

	query := `
		UPDATE duty_configs SET
			name = $2, config_json = $3, is_active = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Name, configJSON, rec.IsActive, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新值班配置失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("值班配置不存在")
	}

	return nil
}

// Activate 将某份配置设为生效（其余全部失效）
func (r *DutyConfigRepository) Activate(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE duty_configs SET is_active = FALSE WHERE deleted_at IS NULL`); err != nil {
		return fmt.Errorf("重置生效配置失败: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE duty_configs SET is_active = TRUE, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("设置生效配置失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("值班配置不存在")
	}

	return nil
}

// Delete 软删除配置
func (r *DutyConfigRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE duty_configs SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除值班配置失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("值班配置不存在")
	}

	return nil
}

// List 查询配置列表
func (r *DutyConfigRepository) List(ctx context.Context, filter ListFilter) ([]*model.DutyConfigRecord, int, error) {
	countQuery := `SELECT COUNT(*) FROM duty_configs WHERE deleted_at IS NULL`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("查询总数失败: %w", err)
	}

	query := `
		SELECT id, name, config_json, is_active, created_at, updated_at
		FROM duty_configs
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var records []*model.DutyConfigRecord
	for rows.Next() {
		rec := &model.DutyConfigRecord{}
		var configJSON []byte
		if err := rows.Scan(&rec.ID, &rec.Name, &configJSON, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("扫描配置数据失败: %w", err)
		}
		json.Unmarshal(configJSON, &rec.Config)
		records = append(records, rec)
	}

	return records, total, nil
}

// scanConfig 扫描单行配置数据
func (r *DutyConfigRepository) scanConfig(row *sql.Row) (*model.DutyConfigRecord, error) {
	rec := &model.DutyConfigRecord{}
	var configJSON []byte

	err := row.Scan(&rec.ID, &rec.Name, &configJSON, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描配置数据失败: %w", err)
	}

	json.Unmarshal(configJSON, &rec.Config)

	return rec, nil
}
