// Package optimizer 提供值班方案优化算法
package optimizer

import (
	"math/rand"

	"github.com/zhiban/zhiban/pkg/model"
)

// MoveType 邻域移动类型
type MoveType int

const (
	MoveSwap    MoveType = iota // 交换两个老师的值班点
	MoveReplace                 // 将值班点换给另一位可用老师
)

// NeighborhoodGenerator 邻域生成器
// 生成的移动保持每个值班点的人数不变：只交换或替换老师，
// 不插入也不移除分配。锁定的分配不参与移动。
type NeighborhoodGenerator struct {
	rng         *rand.Rand
	moveWeights map[MoveType]float64
	// candidates 每个时段可用的老师编码，key 为 day|breakID
	candidates map[string][]string
}

// SlotKey 生成时段键
func SlotKey(day, breakID string) string {
	return day + "|" + breakID
}

// NewNeighborhoodGenerator 创建邻域生成器
// candidates 为每个时段（day|breakID）的可用老师编码列表
func NewNeighborhoodGenerator(seed int64, candidates map[string][]string) *NeighborhoodGenerator {
	return &NeighborhoodGenerator{
		rng:        rand.New(rand.NewSource(seed)),
		candidates: candidates,
		moveWeights: map[MoveType]float64{
			MoveSwap:    0.5, // 50% 交换
			MoveReplace: 0.5, // 50% 替换
		},
	}
}

// GenerateNeighbor 生成邻域解
func (n *NeighborhoodGenerator) GenerateNeighbor(current *Solution) *Solution {
	if current == nil || len(current.Assignments) == 0 {
		return nil
	}

	moveType := n.selectMoveType()

	switch moveType {
	case MoveSwap:
		return n.generateSwapMove(current)
	case MoveReplace:
		return n.generateReplaceMove(current)
	default:
		return n.generateSwapMove(current)
	}
}

// selectMoveType 按权重选择移动类型
func (n *NeighborhoodGenerator) selectMoveType() MoveType {
	r := n.rng.Float64()
	cumulative := 0.0

	for moveType, weight := range n.moveWeights {
		cumulative += weight
		if r < cumulative {
			return moveType
		}
	}

	return MoveSwap
}

// movableIndices 返回未锁定的分配下标
func movableIndices(assignments []*model.DutyAssignment) []int {
	indices := make([]int, 0, len(assignments))
	for i, a := range assignments {
		if !a.IsPinned {
			indices = append(indices, i)
		}
	}
	return indices
}

// generateSwapMove 生成交换移动
// 交换两个未锁定分配上的老师
func (n *NeighborhoodGenerator) generateSwapMove(current *Solution) *Solution {
	movable := movableIndices(current.Assignments)
	if len(movable) < 2 {
		return nil
	}

	neighbor := current.Clone()

	// 随机选择两个未锁定的分配
	i := movable[n.rng.Intn(len(movable))]
	j := movable[n.rng.Intn(len(movable))]
	for j == i {
		j = movable[n.rng.Intn(len(movable))]
	}

	a, b := neighbor.Assignments[i], neighbor.Assignments[j]
	if a.TeacherCode == b.TeacherCode {
		return nil
	}

	// 交换老师编码
	a.TeacherCode, b.TeacherCode = b.TeacherCode, a.TeacherCode

	return neighbor
}

// generateReplaceMove 生成替换移动
// 将某个值班点换给当前时段另一位可用的老师
func (n *NeighborhoodGenerator) generateReplaceMove(current *Solution) *Solution {
	movable := movableIndices(current.Assignments)
	if len(movable) == 0 {
		return nil
	}

	neighbor := current.Clone()

	idx := movable[n.rng.Intn(len(movable))]
	assignment := neighbor.Assignments[idx]

	pool := n.candidates[SlotKey(assignment.Day, assignment.BreakID)]
	if len(pool) == 0 {
		return nil
	}

	// 排除同一时段已在值班的老师，避免重复占位
	onDuty := make(map[string]bool)
	for _, a := range neighbor.Assignments {
		if a.Day == assignment.Day && a.BreakID == assignment.BreakID {
			onDuty[a.TeacherCode] = true
		}
	}

	var alternatives []string
	for _, code := range pool {
		if !onDuty[code] {
			alternatives = append(alternatives, code)
		}
	}
	if len(alternatives) == 0 {
		return nil
	}

	assignment.TeacherCode = alternatives[n.rng.Intn(len(alternatives))]

	return neighbor
}

// GenerateBatch 批量生成邻域解
func (n *NeighborhoodGenerator) GenerateBatch(current *Solution, count int) []*Solution {
	results := make([]*Solution, 0, count)

	for i := 0; i < count; i++ {
		neighbor := n.GenerateNeighbor(current)
		if neighbor != nil {
			results = append(results, neighbor)
		}
	}

	return results
}

// SetMoveWeights 设置移动类型权重
func (n *NeighborhoodGenerator) SetMoveWeights(weights map[MoveType]float64) {
	n.moveWeights = weights
}
