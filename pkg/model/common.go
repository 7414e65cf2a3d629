// Package model 定义值班排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// Weekdays 排班覆盖的教学日（周一至周五）
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri"}

// IsWeekday 检查是否为合法的教学日代码
func IsWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// 求解状态字符串
const (
	StatusOptimal    = "OPTIMAL"    // 搜索收敛，找到最优解
	StatusFeasible   = "FEASIBLE"   // 时间预算耗尽，返回目前最优可行解
	StatusInfeasible = "INFEASIBLE" // 无可行解
)

// 分配质量标签（用于前端着色）
const (
	AssignOptimal  = "optimal"  // 绿色：软惩罚在阈值内
	AssignWarning  = "warning"  // 黄色：距离远或公平性偏差超容忍
	AssignCritical = "critical" // 红色：多项软惩罚叠加
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JSONMap 用于存储 JSONB 数据
type JSONMap map[string]interface{}
