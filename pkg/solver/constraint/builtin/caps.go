// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/solver/constraint"
)

// MaxDutiesPerDayConstraint 每日最大值班次数约束（硬约束）
type MaxDutiesPerDayConstraint struct {
	*BaseConstraint
	maxDuties int
}

// NewMaxDutiesPerDayConstraint 创建每日上限约束
func NewMaxDutiesPerDayConstraint(maxDuties int) *MaxDutiesPerDayConstraint {
	return &MaxDutiesPerDayConstraint{
		BaseConstraint: NewBaseConstraint(
			"每日值班上限",
			constraint.TypeMaxDutiesPerDay,
			constraint.CategoryHard,
			100,
		),
		maxDuties: maxDuties,
	}
}

// Evaluate 评估整个方案
func (c *MaxDutiesPerDayConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, t := range ctx.Teachers {
		for _, day := range model.Weekdays {
			count := ctx.DutyCountOnDay(t.TeacherCode, day)
			if count > c.maxDuties {
				isValid = false
				penalty := c.Weight() * (count - c.maxDuties)
				totalPenalty += penalty
				violations = append(violations, c.CreateViolation(
					t.TeacherCode, day,
					fmt.Sprintf("教师 %s 在 %s 值班 %d 次，超过上限 %d", t.TeacherName, day, count, c.maxDuties),
					penalty,
				))
			}
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *MaxDutiesPerDayConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.DutyAssignment) (bool, int) {
	count := ctx.DutyCountOnDay(a.TeacherCode, a.Day)
	if count+1 > c.maxDuties {
		return false, c.Weight()
	}
	return true, 0
}

// MaxLongBreakDutiesConstraint 每周长课间值班上限约束（硬约束）
// 长课间（午休等）值班负担重，单独限制
type MaxLongBreakDutiesConstraint struct {
	*BaseConstraint
	maxDuties int
}

// NewMaxLongBreakDutiesConstraint 创建长课间上限约束
func NewMaxLongBreakDutiesConstraint(maxDuties int) *MaxLongBreakDutiesConstraint {
	return &MaxLongBreakDutiesConstraint{
		BaseConstraint: NewBaseConstraint(
			"每周长课间上限",
			constraint.TypeMaxLongBreakDuties,
			constraint.CategoryHard,
			100,
		),
		maxDuties: maxDuties,
	}
}

// Evaluate 评估整个方案
func (c *MaxLongBreakDutiesConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, t := range ctx.Teachers {
		count := ctx.LongBreakCount(t.TeacherCode)
		if count > c.maxDuties {
			isValid = false
			penalty := c.Weight() * (count - c.maxDuties)
			totalPenalty += penalty
			violations = append(violations, c.CreateViolation(
				t.TeacherCode, "",
				fmt.Sprintf("教师 %s 本周长课间值班 %d 次，超过上限 %d", t.TeacherName, count, c.maxDuties),
				penalty,
			))
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *MaxLongBreakDutiesConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.DutyAssignment) (bool, int) {
	b := ctx.Config.BreakByID(a.BreakID)
	if b == nil || !b.IsLong() {
		return true, 0
	}
	if ctx.LongBreakCount(a.TeacherCode)+1 > c.maxDuties {
		return false, c.Weight()
	}
	return true, 0
}

// MaxWeeklyEdgeDutiesConstraint 每周边缘值班上限约束（硬约束）
// 边缘值班（课间只有一侧贴课）会拉长教师的在校时间
type MaxWeeklyEdgeDutiesConstraint struct {
	*BaseConstraint
	maxDuties int
}

// NewMaxWeeklyEdgeDutiesConstraint 创建边缘值班上限约束
func NewMaxWeeklyEdgeDutiesConstraint(maxDuties int) *MaxWeeklyEdgeDutiesConstraint {
	return &MaxWeeklyEdgeDutiesConstraint{
		BaseConstraint: NewBaseConstraint(
			"每周边缘值班上限",
			constraint.TypeMaxWeeklyEdgeDuties,
			constraint.CategoryHard,
			100,
		),
		maxDuties: maxDuties,
	}
}

// Evaluate 评估整个方案
func (c *MaxWeeklyEdgeDutiesConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, t := range ctx.Teachers {
		count := ctx.EdgeCount(t.TeacherCode)
		if count > c.maxDuties {
			isValid = false
			penalty := c.Weight() * (count - c.maxDuties)
			totalPenalty += penalty
			violations = append(violations, c.CreateViolation(
				t.TeacherCode, "",
				fmt.Sprintf("教师 %s 本周边缘值班 %d 次，超过上限 %d", t.TeacherName, count, c.maxDuties),
				penalty,
			))
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *MaxWeeklyEdgeDutiesConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.DutyAssignment) (bool, int) {
	b := ctx.Config.BreakByID(a.BreakID)
	if b == nil || !ctx.Avail.IsEdge(a.TeacherCode, a.Day, b) {
		return true, 0
	}
	if ctx.EdgeCount(a.TeacherCode)+1 > c.maxDuties {
		return false, c.Weight()
	}
	return true, 0
}
