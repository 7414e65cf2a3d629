// Package constraint 定义约束接口和管理器
package constraint

import (
	"fmt"

	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/roster"
	"github.com/zhiban/zhiban/pkg/topology"
)

// Type 约束类型标识
type Type string

const (
	// 硬约束类型
	TypeAvailability       Type = "availability"
	TypeSinglePlace        Type = "single_place"
	TypeMaxDutiesPerDay    Type = "max_duties_per_day"
	TypeMaxLongBreakDuties Type = "max_long_break_duties"
	TypeMaxWeeklyEdgeDuties Type = "max_weekly_edge_duties"

	// 软约束类型
	TypeFairness       Type = "fairness"
	TypeProximity      Type = "proximity"
	TypeZonePreference Type = "zone_preference"
	TypeCompactness    Type = "compactness"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// Constraint 约束接口
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Weight 返回约束权重
	Weight() int

	// Evaluate 评估整个值班方案
	// 返回：是否满足、惩罚值、违反详情
	Evaluate(ctx *Context) (valid bool, penalty int, details []ViolationDetail)

	// EvaluateAssignment 评估在当前方案上追加单个分配
	// 返回：是否满足、惩罚值
	EvaluateAssignment(ctx *Context, assignment *model.DutyAssignment) (valid bool, penalty int)
}

// ViolationDetail 约束违反详情
type ViolationDetail struct {
	ConstraintType Type   `json:"constraint_type"`
	ConstraintName string `json:"constraint_name"`
	TeacherCode    string `json:"teacher_code,omitempty"`
	Day            string `json:"day,omitempty"`
	Message        string `json:"message"`
	Severity       string `json:"severity"` // error/warning
	Penalty        int    `json:"penalty"`
}

// Context 求解上下文
type Context struct {
	// 输入数据
	Teachers []*model.Teacher
	Config   *model.DutyConfig
	Topo     *topology.Topology
	Avail    *roster.Index
	Targets  map[string]int // teacher_code -> 目标值班次数

	// 当前方案
	Assignments []*model.DutyAssignment

	// 索引缓存
	teacherMap map[string]*model.Teacher
	byTeacher  map[string][]*model.DutyAssignment
	bySlot     map[string][]*model.DutyAssignment // day/break_id/zone_id
}

// NewContext 创建求解上下文
func NewContext(teachers []*model.Teacher, cfg *model.DutyConfig) *Context {
	c := &Context{
		Teachers:    teachers,
		Config:      cfg,
		Topo:        topology.FromConfig(cfg),
		Avail:       roster.NewIndex(teachers),
		Targets:     make(map[string]int),
		Assignments: make([]*model.DutyAssignment, 0),
		teacherMap:  make(map[string]*model.Teacher, len(teachers)),
		byTeacher:   make(map[string][]*model.DutyAssignment),
		bySlot:      make(map[string][]*model.DutyAssignment),
	}
	for _, t := range teachers {
		c.teacherMap[t.TeacherCode] = t
	}
	return c
}

// CloneForEval 复制上下文用于评估邻域解
// 共享只读的输入数据和索引，只重建分配索引，适合并行评估
func (c *Context) CloneForEval(assignments []*model.DutyAssignment) *Context {
	clone := &Context{
		Teachers:   c.Teachers,
		Config:     c.Config,
		Topo:       c.Topo,
		Avail:      c.Avail,
		Targets:    c.Targets,
		teacherMap: c.teacherMap,
	}
	clone.SetAssignments(assignments)
	return clone
}

// slotKey 组合 (日, 课间, 区域) 键
func slotKey(day, breakID, zoneID string) string {
	return day + "/" + breakID + "/" + zoneID
}

// SetAssignments 整体替换当前方案（局部搜索评估邻域解时使用）
func (c *Context) SetAssignments(assignments []*model.DutyAssignment) {
	c.Assignments = assignments
	c.rebuildIndexes()
}

// AddAssignment 追加分配
func (c *Context) AddAssignment(a *model.DutyAssignment) {
	c.Assignments = append(c.Assignments, a)
	c.byTeacher[a.TeacherCode] = append(c.byTeacher[a.TeacherCode], a)
	key := slotKey(a.Day, a.BreakID, a.ZoneID)
	c.bySlot[key] = append(c.bySlot[key], a)
}

// rebuildIndexes 重建分配索引
func (c *Context) rebuildIndexes() {
	c.byTeacher = make(map[string][]*model.DutyAssignment)
	c.bySlot = make(map[string][]*model.DutyAssignment)
	for _, a := range c.Assignments {
		c.byTeacher[a.TeacherCode] = append(c.byTeacher[a.TeacherCode], a)
		key := slotKey(a.Day, a.BreakID, a.ZoneID)
		c.bySlot[key] = append(c.bySlot[key], a)
	}
}

// GetTeacher 获取教师
func (c *Context) GetTeacher(code string) *model.Teacher {
	return c.teacherMap[code]
}

// TeacherAssignments 获取教师的全部值班
func (c *Context) TeacherAssignments(code string) []*model.DutyAssignment {
	return c.byTeacher[code]
}

// SlotAssignments 获取某 (日, 课间, 区域) 的全部值班
func (c *Context) SlotAssignments(day, breakID, zoneID string) []*model.DutyAssignment {
	return c.bySlot[slotKey(day, breakID, zoneID)]
}

// DutyCount 教师当前被分配的值班总数
func (c *Context) DutyCount(code string) int {
	return len(c.byTeacher[code])
}

// DutyCountOnDay 教师某天的值班数
func (c *Context) DutyCountOnDay(code, day string) int {
	count := 0
	for _, a := range c.byTeacher[code] {
		if a.Day == day {
			count++
		}
	}
	return count
}

// LongBreakCount 教师整周的长课间值班数
func (c *Context) LongBreakCount(code string) int {
	count := 0
	for _, a := range c.byTeacher[code] {
		if b := c.Config.BreakByID(a.BreakID); b != nil && b.IsLong() {
			count++
		}
	}
	return count
}

// EdgeCount 教师整周的边缘值班数（课间只有一侧贴着自己的课）
func (c *Context) EdgeCount(code string) int {
	count := 0
	for _, a := range c.byTeacher[code] {
		if b := c.Config.BreakByID(a.BreakID); b != nil && c.Avail.IsEdge(code, a.Day, b) {
			count++
		}
	}
	return count
}

// AssignedAtTime 教师在某 (日, 节次) 时点是否已有值班
// 按 afterLesson 分组：两个课间共享同一节次时教师不能分身
func (c *Context) AssignedAtTime(code, day string, afterLesson int) bool {
	for _, a := range c.byTeacher[code] {
		if a.Day == day && a.BreakIndex == afterLesson {
			return true
		}
	}
	return false
}

// Deviation 教师当前值班数与目标的偏差（可为负）
func (c *Context) Deviation(code string) int {
	return c.DutyCount(code) - c.Targets[code]
}

// TotalRequired 配置的总需求人次（按周：每个教学日重复一遍区域×课间需求）
func (c *Context) TotalRequired() int {
	total := 0
	perDay := 0
	for _, z := range c.Config.Zones {
		for _, b := range c.Config.Breaks {
			perDay += c.Config.Requirements.Count(z.ID, b.ID)
		}
	}
	total = perDay * len(model.Weekdays)
	return total
}

// Result 约束评估结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	TotalPenalty   int               `json:"total_penalty"`
	HardViolations []ViolationDetail `json:"hard_violations"`
	SoftViolations []ViolationDetail `json:"soft_violations"`
	Score          float64           `json:"score"` // 0-100
}

// CalculateScore 计算约束满足度得分
func (r *Result) CalculateScore(maxPenalty int) {
	if maxPenalty == 0 {
		r.Score = 100.0
		return
	}
	r.Score = 100.0 * float64(maxPenalty-r.TotalPenalty) / float64(maxPenalty)
	if r.Score < 0 {
		r.Score = 0
	}
}

// Describe 生成违反详情的简短描述
func (v ViolationDetail) Describe() string {
	if v.TeacherCode == "" {
		return v.Message
	}
	return fmt.Sprintf("[%s] %s", v.TeacherCode, v.Message)
}
