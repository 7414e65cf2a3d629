// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zhiban/zhiban/pkg/model"
)

// TeacherRepository 教师课表仓储
type TeacherRepository struct {
	db DB
}

// NewTeacherRepository 创建教师课表仓储
func NewTeacherRepository(db DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// Create 创建教师记录
func (r *TeacherRepository) Create(ctx context.Context, rec *model.TeacherRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	scheduleJSON, _ := json.Marshal(rec.Schedule)
	prefsJSON, _ := json.Marshal(rec.Preferences)
	manualJSON, _ := json.Marshal(rec.ManualDuties)

	query := `
		INSERT INTO teachers (
			id, teacher_code, teacher_name, schedule_json,
			preferences_json, manual_duties_json, is_verified, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.TeacherCode, rec.TeacherName, scheduleJSON,
		prefsJSON, manualJSON, rec.IsVerified, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建教师记录失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取教师记录
func (r *TeacherRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TeacherRecord, error) {
	query := `
		SELECT id, teacher_code, teacher_name, schedule_json,
			preferences_json, manual_duties_json, is_verified, created_at, updated_at
		FROM teachers
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanTeacher(r.db.QueryRowContext(ctx, query, id))
}

// GetByCode 根据编码获取教师记录
func (r *TeacherRepository) GetByCode(ctx context.Context, code string) (*model.TeacherRecord, error) {
	query := `
		SELECT id, teacher_code, teacher_name, schedule_json,
			preferences_json, manual_duties_json, is_verified, created_at, updated_at
		FROM teachers
		WHERE teacher_code = $1 AND deleted_at IS NULL
	`

	return r.scanTeacher(r.db.QueryRowContext(ctx, query, code))
}

// Update 更新教师记录
func (r *TeacherRepository) Update(ctx context.Context, rec *model.TeacherRecord) error {
	rec.UpdatedAt = time.Now()

	scheduleJSON, _ := json.Marshal(rec.Schedule)
	prefsJSON, _ := json.Marshal(rec.Preferences)
	manualJSON, _ := json.Marshal(rec.ManualDuties)

	query := `
		UPDATE teachers SET
			teacher_code = $2, teacher_name = $3, schedule_json = $4,
			preferences_json = $5, manual_duties_json = $6, is_verified = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.TeacherCode, rec.TeacherName, scheduleJSON,
		prefsJSON, manualJSON, rec.IsVerified, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新教师记录失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("教师记录不存在")
	}

	return nil
}

// Delete 软删除教师记录
func (r *TeacherRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE teachers SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除教师记录失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("教师记录不存在")
	}

	return nil
}

// List 查询教师列表
func (r *TeacherRepository) List(ctx context.Context, filter ListFilter) ([]*model.TeacherRecord, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(teacher_name ILIKE $%d OR teacher_code ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	if verified, ok := filter.Extra["is_verified"].(bool); ok {
		conditions = append(conditions, fmt.Sprintf("is_verified = $%d", argIndex))
		args = append(args, verified)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	// 查询总数
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM teachers WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("查询总数失败: %w", err)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "teacher_code"
	}
	orderDir := filter.OrderDir
	if orderDir == "" {
		orderDir = "asc"
	}

	query := fmt.Sprintf(`
		SELECT id, teacher_code, teacher_name, schedule_json,
			preferences_json, manual_duties_json, is_verified, created_at, updated_at
		FROM teachers
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var records []*model.TeacherRecord
	for rows.Next() {
		rec, err := r.scanTeacherRow(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}

	return records, total, nil
}

// ListVerified 获取全部已确认课表的教师（求解器输入）
func (r *TeacherRepository) ListVerified(ctx context.Context) ([]*model.TeacherRecord, error) {
	filter := DefaultListFilter().WithLimit(10000)
	filter.Extra = map[string]interface{}{"is_verified": true}
	records, _, err := r.List(ctx, filter)
	return records, err
}

// scanTeacher 扫描单行教师数据
func (r *TeacherRepository) scanTeacher(row *sql.Row) (*model.TeacherRecord, error) {
	rec := &model.TeacherRecord{}
	var scheduleJSON, prefsJSON, manualJSON []byte

	err := row.Scan(
		&rec.ID, &rec.TeacherCode, &rec.TeacherName, &scheduleJSON,
		&prefsJSON, &manualJSON, &rec.IsVerified, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描教师数据失败: %w", err)
	}

	json.Unmarshal(scheduleJSON, &rec.Schedule)
	json.Unmarshal(prefsJSON, &rec.Preferences)
	json.Unmarshal(manualJSON, &rec.ManualDuties)

	return rec, nil
}

// scanTeacherRow 扫描Rows中的教师数据
func (r *TeacherRepository) scanTeacherRow(rows *sql.Rows) (*model.TeacherRecord, error) {
	rec := &model.TeacherRecord{}
	var scheduleJSON, prefsJSON, manualJSON []byte

	err := rows.Scan(
		&rec.ID, &rec.TeacherCode, &rec.TeacherName, &scheduleJSON,
		&prefsJSON, &manualJSON, &rec.IsVerified, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("扫描教师数据失败: %w", err)
	}

	json.Unmarshal(scheduleJSON, &rec.Schedule)
	json.Unmarshal(prefsJSON, &rec.Preferences)
	json.Unmarshal(manualJSON, &rec.ManualDuties)

	return rec, nil
}
