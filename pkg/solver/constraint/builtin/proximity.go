// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/solver/constraint"
)

// ProximityConstraint 就近值班约束（软约束）
// 按落点教室到候选区域的序数距离惩罚：0 = 就在区域内，
// 哨兵值 = 无落点或区域未知（最远）
type ProximityConstraint struct {
	*BaseConstraint
}

// NewProximityConstraint 创建就近约束
// weight 来自规则滑杆：200 - fairness_priority
func NewProximityConstraint(weight int) *ProximityConstraint {
	return &ProximityConstraint{
		BaseConstraint: NewBaseConstraint(
			"就近值班",
			constraint.TypeProximity,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个方案
func (c *ProximityConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	sentinel := ctx.Topo.Sentinel()

	for _, a := range ctx.Assignments {
		dist := c.distance(ctx, a)
		penalty := dist * c.Weight()
		totalPenalty += penalty

		if dist >= sentinel {
			violations = append(violations, c.CreateViolation(
				a.TeacherCode, a.Day,
				fmt.Sprintf("教师 %s 距区域 %s 过远或位置未知", a.TeacherCode, a.ZoneName),
				penalty,
			))
		}
	}

	return true, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *ProximityConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.DutyAssignment) (bool, int) {
	return true, c.distance(ctx, a) * c.Weight()
}

// distance 计算分配的序数距离
func (c *ProximityConstraint) distance(ctx *constraint.Context, a *model.DutyAssignment) int {
	b := ctx.Config.BreakByID(a.BreakID)
	if b == nil {
		return ctx.Topo.Sentinel()
	}
	anchor := ctx.Avail.AnchorRoom(a.TeacherCode, a.Day, b)
	return ctx.Topo.Distance(anchor, a.ZoneID)
}

// ZonePreferenceConstraint 区域偏好约束（软约束，奖励）
// 教师被排到自己偏好的区域时给予负惩罚，按偏好排名递减
type ZonePreferenceConstraint struct {
	*BaseConstraint
}

// NewZonePreferenceConstraint 创建区域偏好约束
// weight 固定高于公平/就近权重的上限，偏好命中优先于两者
func NewZonePreferenceConstraint(weight int) *ZonePreferenceConstraint {
	return &ZonePreferenceConstraint{
		BaseConstraint: NewBaseConstraint(
			"区域偏好",
			constraint.TypeZonePreference,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个方案
func (c *ZonePreferenceConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	totalPenalty := 0
	for _, a := range ctx.Assignments {
		_, penalty := c.EvaluateAssignment(ctx, a)
		totalPenalty += penalty
	}
	return true, totalPenalty, nil
}

// EvaluateAssignment 评估单个分配
func (c *ZonePreferenceConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.DutyAssignment) (bool, int) {
	t := ctx.GetTeacher(a.TeacherCode)
	if t == nil {
		return true, 0
	}
	rank := t.PreferenceRank(a.ZoneID)
	if rank < 0 {
		return true, 0
	}
	n := len(t.Preferences.PreferredZones)
	// 排名第一拿满额奖励，之后线性递减
	return true, -c.Weight() * (n - rank) / n
}

// CompactnessConstraint 课表紧凑性约束（软约束）
// 夹心课间（前后都有课）值班不增加在校时长，给予奖励；
// 边缘课间值班迫使教师早到或晚走，给予惩罚
type CompactnessConstraint struct {
	*BaseConstraint
	sandwichBonus int
}

// NewCompactnessConstraint 创建紧凑性约束
// weight 为边缘惩罚强度，随公平性滑杆升高（越重公平越不接受凑边缘）
func NewCompactnessConstraint(weight int) *CompactnessConstraint {
	return &CompactnessConstraint{
		BaseConstraint: NewBaseConstraint(
			"课表紧凑性",
			constraint.TypeCompactness,
			constraint.CategorySoft,
			weight,
		),
		sandwichBonus: 20,
	}
}

// Evaluate 评估整个方案
func (c *CompactnessConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	totalPenalty := 0
	for _, a := range ctx.Assignments {
		_, penalty := c.EvaluateAssignment(ctx, a)
		totalPenalty += penalty
	}
	return true, totalPenalty, nil
}

// EvaluateAssignment 评估单个分配
func (c *CompactnessConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.DutyAssignment) (bool, int) {
	b := ctx.Config.BreakByID(a.BreakID)
	if b == nil {
		return true, 0
	}
	if ctx.Avail.IsSandwich(a.TeacherCode, a.Day, b) {
		return true, -c.sandwichBonus
	}
	if ctx.Avail.IsEdge(a.TeacherCode, a.Day, b) {
		return true, c.Weight()
	}
	return true, 0
}
