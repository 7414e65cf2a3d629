// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/solver/constraint"
)

// AvailabilityConstraint 在校可用性约束（硬约束）
// 教师只有在课间紧前或紧后有课（人在学校）时才能值班；
// 连堂课中间的课间不能离开教室，同样不可值班。
// 锁定的值班由用户显式覆盖可用性判断，不在此检查。
type AvailabilityConstraint struct {
	*BaseConstraint
	pinned map[string]bool // teacher/day/break_index 锁定白名单
}

// NewAvailabilityConstraint 创建可用性约束
func NewAvailabilityConstraint(pins []model.PinnedDuty) *AvailabilityConstraint {
	pinned := make(map[string]bool, len(pins))
	for _, p := range pins {
		pinned[pinKey(p.TeacherCode, p.Day, p.BreakIndex)] = true
	}
	return &AvailabilityConstraint{
		BaseConstraint: NewBaseConstraint(
			"在校可用性",
			constraint.TypeAvailability,
			constraint.CategoryHard,
			100,
		),
		pinned: pinned,
	}
}

func pinKey(code, day string, breakIndex int) string {
	return fmt.Sprintf("%s/%s/%d", code, day, breakIndex)
}

// Evaluate 评估整个方案
func (c *AvailabilityConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, a := range ctx.Assignments {
		if valid, penalty := c.EvaluateAssignment(ctx, a); !valid {
			isValid = false
			totalPenalty += penalty
			violations = append(violations, c.CreateViolation(
				a.TeacherCode, a.Day,
				fmt.Sprintf("教师 %s 在 %s 第 %d 节后不在校或无法离开教室", a.TeacherCode, a.Day, a.BreakIndex),
				penalty,
			))
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *AvailabilityConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.DutyAssignment) (bool, int) {
	if c.pinned[pinKey(a.TeacherCode, a.Day, a.BreakIndex)] {
		return true, 0
	}
	b := ctx.Config.BreakByID(a.BreakID)
	if b == nil {
		return false, c.Weight()
	}
	if !ctx.Avail.Available(a.TeacherCode, a.Day, b) {
		return false, c.Weight()
	}
	if ctx.Avail.BlockedByDoubleLesson(a.TeacherCode, a.Day, b) {
		return false, c.Weight()
	}
	return true, 0
}

// SinglePlaceConstraint 同一时点只能在一处值班（硬约束）
// 按 afterLesson 分组：两个课间配置了相同节次时视为同时发生
type SinglePlaceConstraint struct {
	*BaseConstraint
}

// NewSinglePlaceConstraint 创建单处值班约束
func NewSinglePlaceConstraint() *SinglePlaceConstraint {
	return &SinglePlaceConstraint{
		BaseConstraint: NewBaseConstraint(
			"单处值班",
			constraint.TypeSinglePlace,
			constraint.CategoryHard,
			100,
		),
	}
}

// Evaluate 评估整个方案
func (c *SinglePlaceConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	// teacher/day/after_lesson -> 出现次数
	seen := make(map[string]int)
	for _, a := range ctx.Assignments {
		seen[pinKey(a.TeacherCode, a.Day, a.BreakIndex)]++
	}

	for key, count := range seen {
		if count > 1 {
			isValid = false
			penalty := c.Weight() * (count - 1)
			totalPenalty += penalty
			violations = append(violations, c.CreateViolation(
				"", "",
				fmt.Sprintf("时点 %s 被同一教师占用 %d 次", key, count),
				penalty,
			))
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *SinglePlaceConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.DutyAssignment) (bool, int) {
	if ctx.AssignedAtTime(a.TeacherCode, a.Day, a.BreakIndex) {
		return false, c.Weight()
	}
	return true, 0
}
