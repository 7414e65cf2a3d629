// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/solver/constraint"
)

// FairnessConstraint 值班公平性约束（软约束）
// 惩罚教师值班次数与目标次数的偏差；目标按教学课时占比分摊。
// 容忍范围内线性惩罚，超出 tolerance 后二次加重
type FairnessConstraint struct {
	*BaseConstraint
	tolerance int
}

// NewFairnessConstraint 创建公平性约束
// weight 来自规则滑杆：100 + fairness_priority
func NewFairnessConstraint(weight, tolerance int) *FairnessConstraint {
	return &FairnessConstraint{
		BaseConstraint: NewBaseConstraint(
			"值班公平性",
			constraint.TypeFairness,
			constraint.CategorySoft,
			weight,
		),
		tolerance: tolerance,
	}
}

// deviationPenalty 偏差 dev 对应的惩罚值
func (c *FairnessConstraint) deviationPenalty(dev int) int {
	if dev < 0 {
		dev = -dev
	}
	if dev <= c.tolerance {
		return dev * c.Weight()
	}
	over := dev - c.tolerance
	return c.tolerance*c.Weight() + over*over*c.Weight()
}

// Evaluate 评估整个方案
func (c *FairnessConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, t := range ctx.Teachers {
		dev := ctx.Deviation(t.TeacherCode)
		penalty := c.deviationPenalty(dev)
		if penalty == 0 {
			continue
		}
		totalPenalty += penalty

		absDev := dev
		if absDev < 0 {
			absDev = -absDev
		}
		if absDev > c.tolerance {
			violations = append(violations, c.CreateViolation(
				t.TeacherCode, "",
				fmt.Sprintf("教师 %s 值班 %d 次，目标 %d 次，偏差超出容忍 %d",
					t.TeacherName, ctx.DutyCount(t.TeacherCode), ctx.Targets[t.TeacherCode], c.tolerance),
				penalty,
			))
		}
	}

	return true, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配的边际公平性代价
// 给低于目标的教师加班是改进（负惩罚），给超额的教师加班代价陡增
func (c *FairnessConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.DutyAssignment) (bool, int) {
	dev := ctx.Deviation(a.TeacherCode)
	return true, c.deviationPenalty(dev+1) - c.deviationPenalty(dev)
}

// Tolerance 返回容忍偏差
func (c *FairnessConstraint) Tolerance() int {
	return c.tolerance
}
