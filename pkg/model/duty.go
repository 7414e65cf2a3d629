// Package model 定义值班排班引擎的核心数据模型
package model

import (
	"fmt"

	"github.com/google/uuid"
)

// LongBreakMinutes 长课间（午休等）的时长阈值，单位分钟
const LongBreakMinutes = 20

// Zone 值班区域（走廊、操场等）
type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Break 课间（在第 AfterLesson 节课后）
type Break struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AfterLesson int    `json:"afterLesson"`
	Duration    int    `json:"duration"` // 分钟
}

// IsLong 判断是否为长课间（需单独限制周值班次数）
func (b *Break) IsLong() bool {
	return b.Duration >= LongBreakMinutes
}

// Requirements 区域需求映射：zone_id -> break_id -> 需要的教师人数
type Requirements map[string]map[string]int

// Count 返回某 (区域, 课间) 的需求人数，缺省为 0
func (r Requirements) Count(zoneID, breakID string) int {
	if byBreak, ok := r[zoneID]; ok {
		return byBreak[breakID]
	}
	return 0
}

// Rules 数值规则配置
type Rules struct {
	MaxDutiesPerDay      int `json:"max_duties_per_day"`
	MaxLongBreakDuties   int `json:"max_long_break_duties"`   // 每周长课间值班上限
	MaxWeeklyEdgeDuties  int `json:"max_weekly_edge_duties"`  // 每周边缘值班上限（紧邻当日首末节课）
	MaxFairnessDeviation int `json:"max_fairness_deviation"`  // 与目标次数的容忍偏差
	FairnessPriority     int `json:"fairness_priority"`       // 0-100，公平性与就近性的权衡滑杆
}

// DefaultRules 返回默认规则
func DefaultRules() Rules {
	return Rules{
		MaxDutiesPerDay:      2,
		MaxLongBreakDuties:   2,
		MaxWeeklyEdgeDuties:  5,
		MaxFairnessDeviation: 2,
		FairnessPriority:     50,
	}
}

// FairnessWeight 公平性权重：100 + priority ∈ [100, 200]
func (r Rules) FairnessWeight() int {
	return 100 + r.clampPriority()
}

// ProximityWeight 就近性权重：200 - priority ∈ [100, 200]
func (r Rules) ProximityWeight() int {
	return 200 - r.clampPriority()
}

func (r Rules) clampPriority() int {
	if r.FairnessPriority < 0 {
		return 0
	}
	if r.FairnessPriority > 100 {
		return 100
	}
	return r.FairnessPriority
}

// DutyConfig 值班配置（区域、课间、需求、规则、拓扑）
type DutyConfig struct {
	Zones        []Zone              `json:"zones"`
	Breaks       []Break             `json:"breaks"`
	Requirements Requirements        `json:"requirements"`
	Rules        Rules               `json:"rules"`
	Topology     map[string][]string `json:"topology"`  // zone_id -> 教室编号列表
	Proximity    map[string][]string `json:"proximity"` // zone_id -> 最近邻区域ID（近者在前）
}

// Validate 校验配置；配置错误在求解前拒绝，不会被静默归零
func (c *DutyConfig) Validate() error {
	if len(c.Zones) == 0 {
		return fmt.Errorf("缺少区域配置")
	}
	if len(c.Breaks) == 0 {
		return fmt.Errorf("缺少课间配置")
	}
	zoneIDs := make(map[string]bool, len(c.Zones))
	for _, z := range c.Zones {
		if z.ID == "" {
			return fmt.Errorf("区域缺少ID: %q", z.Name)
		}
		if zoneIDs[z.ID] {
			return fmt.Errorf("区域ID重复: %s", z.ID)
		}
		zoneIDs[z.ID] = true
	}
	for _, b := range c.Breaks {
		if b.ID == "" {
			return fmt.Errorf("课间缺少ID: %q", b.Name)
		}
		if b.AfterLesson < 0 {
			return fmt.Errorf("课间 %s 的 afterLesson 为负数", b.ID)
		}
	}
	for zoneID, byBreak := range c.Requirements {
		for breakID, count := range byBreak {
			if count < 0 {
				return fmt.Errorf("区域 %s 课间 %s 的需求人数为负数: %d", zoneID, breakID, count)
			}
		}
	}
	return nil
}

// ZoneByID 查找区域，无则返回 nil
func (c *DutyConfig) ZoneByID(id string) *Zone {
	for i := range c.Zones {
		if c.Zones[i].ID == id {
			return &c.Zones[i]
		}
	}
	return nil
}

// BreakByID 查找课间，无则返回 nil
func (c *DutyConfig) BreakByID(id string) *Break {
	for i := range c.Breaks {
		if c.Breaks[i].ID == id {
			return &c.Breaks[i]
		}
	}
	return nil
}

// BreakByIndex 按 afterLesson 查找课间（前端以节次索引引用课间）
func (c *DutyConfig) BreakByIndex(afterLesson int) *Break {
	for i := range c.Breaks {
		if c.Breaks[i].AfterLesson == afterLesson {
			return &c.Breaks[i]
		}
	}
	return nil
}

// DutyAssignment 求解输出的单条值班分配
type DutyAssignment struct {
	TeacherCode  string   `json:"teacher_code"`
	Day          string   `json:"day"`
	BreakID      string   `json:"break_id"`
	BreakName    string   `json:"break_name"`
	BreakIndex   int      `json:"break_index"`
	ZoneID       string   `json:"zone_id"`
	ZoneName     string   `json:"zone_name"`
	AssignStatus string   `json:"assign_status"` // optimal/warning/critical
	AssignLogs   []string `json:"assign_logs"`
	IsPinned     bool     `json:"is_pinned"`
}

// SolutionStats 求解统计
type SolutionStats struct {
	TotalDuties int    `json:"total_duties"`
	StatusStr   string `json:"status_str"` // OPTIMAL/FEASIBLE/INFEASIBLE
}

// DutyConfigRecord 值班配置持久化记录
type DutyConfigRecord struct {
	BaseModel
	Name     string      `json:"name" db:"name"`
	Config   *DutyConfig `json:"config" db:"config_json"`
	IsActive bool        `json:"is_active" db:"is_active"` // 同一时刻只有一份生效配置
}

// SolveRecord 求解结果持久化记录
type SolveRecord struct {
	BaseModel
	RunID       uuid.UUID        `json:"run_id" db:"run_id"`
	Status      string           `json:"status" db:"status"`
	TotalDuties int              `json:"total_duties" db:"total_duties"`
	Solution    []DutyAssignment `json:"solution" db:"solution_json"`
}
