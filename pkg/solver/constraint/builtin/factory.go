// Package builtin 提供内置约束实现
package builtin

import (
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/solver/constraint"
)

// PreferenceWeight 区域偏好奖励的固定权重
// 高于公平/就近权重的上限（200），偏好命中时压过两者
const PreferenceWeight = 300

// EdgePenaltyWeight 根据公平性滑杆计算边缘值班惩罚强度
// 滑杆偏向就近（<=50）时保持基础值：位置合适可以接受边缘；
// 偏向公平时线性升高到 50：公平模式下不希望有人白白多留校
func EdgePenaltyWeight(rules model.Rules) int {
	fp := rules.FairnessPriority
	if fp < 0 {
		fp = 0
	}
	if fp > 100 {
		fp = 100
	}
	if fp <= 50 {
		return 10
	}
	return 10 + (fp-50)*4/5
}

// RegisterAll 按规则配置注册全部内置约束
// 硬约束：可用性、单处值班、三类上限；软约束：公平、就近、偏好、紧凑
func RegisterAll(m *constraint.Manager, rules model.Rules, pins []model.PinnedDuty) {
	m.Register(NewAvailabilityConstraint(pins))
	m.Register(NewSinglePlaceConstraint())
	m.Register(NewMaxDutiesPerDayConstraint(rules.MaxDutiesPerDay))
	m.Register(NewMaxLongBreakDutiesConstraint(rules.MaxLongBreakDuties))
	m.Register(NewMaxWeeklyEdgeDutiesConstraint(rules.MaxWeeklyEdgeDuties))

	m.Register(NewFairnessConstraint(rules.FairnessWeight(), rules.MaxFairnessDeviation))
	m.Register(NewProximityConstraint(rules.ProximityWeight()))
	m.Register(NewZonePreferenceConstraint(PreferenceWeight))
	m.Register(NewCompactnessConstraint(EdgePenaltyWeight(rules)))
}

// NewManager 创建并装配好约束的管理器
func NewManager(rules model.Rules, pins []model.PinnedDuty) *constraint.Manager {
	m := constraint.NewManager()
	RegisterAll(m, rules, pins)
	return m
}
