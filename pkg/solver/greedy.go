// Package solver 提供值班求解器
package solver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/zhiban/zhiban/pkg/logger"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/solver/constraint"
)

// Solver 求解器接口
type Solver interface {
	// Solve 生成值班方案
	Solve(ctx context.Context, dutyCtx *constraint.Context) (*Result, error)

	// Name 返回求解器名称
	Name() string
}

// Result 求解结果
type Result struct {
	Assignments      []*model.DutyAssignment `json:"assignments"`
	Statistics       *Statistics             `json:"statistics"`
	ConstraintResult *constraint.Result      `json:"constraint_result"`
	Duration         time.Duration           `json:"duration"`
	Success          bool                    `json:"success"`
	Message          string                  `json:"message,omitempty"`
}

// Statistics 求解统计
type Statistics struct {
	TotalAssignments int     `json:"total_assignments"`
	FilledSlots      int     `json:"filled_slots"`
	TotalSlots       int     `json:"total_slots"`
	FillRate         float64 `json:"fill_rate"`
	Iterations       int     `json:"iterations"`
}

// slotDemand 某 (日, 课间, 区域) 的剩余需求
type slotDemand struct {
	Day      string
	Break    model.Break
	Zone     model.Zone
	Required int
	eligible int // 可用候选数，最少者优先排
}

// GreedySolver 贪心求解器
// 按需求紧张度逐个填充值班点，每次选边际惩罚最小的可用老师
type GreedySolver struct {
	constraintManager *constraint.Manager
	logger            *logger.SolverLogger
	maxIterations     int
}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver(cm *constraint.Manager) *GreedySolver {
	return &GreedySolver{
		constraintManager: cm,
		logger:            logger.NewSolverLogger(),
		maxIterations:     10000,
	}
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return "GreedySolver"
}

// SetMaxIterations 设置最大迭代次数
func (s *GreedySolver) SetMaxIterations(max int) {
	s.maxIterations = max
}

// dayOrder 教学日在一周中的序号
func dayOrder(day string) int {
	for i, d := range model.Weekdays {
		if d == day {
			return i
		}
	}
	return len(model.Weekdays)
}

// Solve 使用贪心算法生成值班方案
// 进入前已放置的锁定分配保持不动，只补齐剩余需求
func (s *GreedySolver) Solve(ctx context.Context, dutyCtx *constraint.Context) (*Result, error) {
	startTime := time.Now()

	result := &Result{
		Assignments: make([]*model.DutyAssignment, 0),
		Statistics:  &Statistics{},
		Success:     false,
	}

	if len(dutyCtx.Teachers) == 0 {
		return result, fmt.Errorf("没有可排班的老师")
	}

	demands := s.buildDemands(dutyCtx)
	result.Statistics.TotalSlots = len(demands)

	if len(demands) == 0 {
		result.ConstraintResult = s.constraintManager.Evaluate(dutyCtx)
		result.Success = result.ConstraintResult.IsValid
		result.Message = "没有需要补齐的值班需求"
		result.Duration = time.Since(startTime)
		return result, nil
	}

	// 最难先排：候选最少的时段优先，其余按日、节次、区域保证确定性
	sort.Slice(demands, func(i, j int) bool {
		di, dj := demands[i], demands[j]
		if di.eligible != dj.eligible {
			return di.eligible < dj.eligible
		}
		if dayOrder(di.Day) != dayOrder(dj.Day) {
			return dayOrder(di.Day) < dayOrder(dj.Day)
		}
		if di.Break.AfterLesson != dj.Break.AfterLesson {
			return di.Break.AfterLesson < dj.Break.AfterLesson
		}
		return di.Zone.ID < dj.Zone.ID
	})

	iterations := 0
	filledSlots := 0

	for _, demand := range demands {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		assignedCount := 0

		for assignedCount < demand.Required {
			iterations++
			if iterations > s.maxIterations {
				break
			}

			best := s.pickBest(dutyCtx, demand)
			if best == nil {
				break
			}

			dutyCtx.AddAssignment(best)
			result.Assignments = append(result.Assignments, best)
			assignedCount++
		}

		if assignedCount >= demand.Required {
			filledSlots++
		} else {
			s.logger.ConstraintViolation("需求填充",
				fmt.Sprintf("时段 %s/%s/%s 缺 %d 人", demand.Day, demand.Break.ID, demand.Zone.ID, demand.Required-assignedCount))
		}
	}

	// 评估最终结果
	result.ConstraintResult = s.constraintManager.Evaluate(dutyCtx)
	result.Success = result.ConstraintResult.IsValid && filledSlots == len(demands)
	result.Duration = time.Since(startTime)

	result.Statistics.TotalAssignments = len(result.Assignments)
	result.Statistics.FilledSlots = filledSlots
	result.Statistics.Iterations = iterations

	if len(demands) > 0 {
		result.Statistics.FillRate = float64(filledSlots) / float64(len(demands)) * 100
	}

	if !result.Success {
		if filledSlots < len(demands) {
			result.Message = fmt.Sprintf("有 %d 个时段无法满足人数需求", len(demands)-filledSlots)
		} else {
			result.Message = fmt.Sprintf("存在 %d 个硬约束违反", len(result.ConstraintResult.HardViolations))
		}
	} else {
		result.Message = fmt.Sprintf("排班成功，满足率 %.1f%%", result.Statistics.FillRate)
	}

	return result, nil
}

// buildDemands 根据配置和已放置的锁定分配计算剩余需求
func (s *GreedySolver) buildDemands(dutyCtx *constraint.Context) []*slotDemand {
	cfg := dutyCtx.Config
	var demands []*slotDemand

	for _, day := range model.Weekdays {
		for bi := range cfg.Breaks {
			b := cfg.Breaks[bi]
			for zi := range cfg.Zones {
				z := cfg.Zones[zi]
				required := cfg.Requirements.Count(z.ID, b.ID)
				if required <= 0 {
					continue
				}

				// 扣除已放置的锁定分配
				remaining := required - len(dutyCtx.SlotAssignments(day, b.ID, z.ID))
				if remaining <= 0 {
					continue
				}

				demands = append(demands, &slotDemand{
					Day:      day,
					Break:    b,
					Zone:     z,
					Required: remaining,
					eligible: s.countEligible(dutyCtx, day, &b),
				})
			}
		}
	}

	return demands
}

// countEligible 统计某时段的可用老师数
func (s *GreedySolver) countEligible(dutyCtx *constraint.Context, day string, b *model.Break) int {
	count := 0
	for _, t := range dutyCtx.Teachers {
		if dutyCtx.Avail.Available(t.TeacherCode, day, b) && !dutyCtx.Avail.BlockedByDoubleLesson(t.TeacherCode, day, b) {
			count++
		}
	}
	return count
}

// pickBest 为某个需求挑选边际惩罚最小的可用老师
// 返回 nil 表示没有满足硬约束的候选
func (s *GreedySolver) pickBest(dutyCtx *constraint.Context, demand *slotDemand) *model.DutyAssignment {
	type scored struct {
		assignment *model.DutyAssignment
		penalty    int
	}

	var candidates []scored

	for _, t := range dutyCtx.Teachers {
		assignment := &model.DutyAssignment{
			TeacherCode: t.TeacherCode,
			Day:         demand.Day,
			BreakID:     demand.Break.ID,
			BreakName:   demand.Break.Name,
			BreakIndex:  demand.Break.AfterLesson,
			ZoneID:      demand.Zone.ID,
			ZoneName:    demand.Zone.Name,
		}

		canAssign, _ := s.constraintManager.CanAssign(dutyCtx, assignment)
		if !canAssign {
			continue
		}

		_, penalty, _ := s.constraintManager.EvaluateAssignment(dutyCtx, assignment)
		candidates = append(candidates, scored{assignment: assignment, penalty: penalty})
	}

	if len(candidates) == 0 {
		return nil
	}

	// 惩罚小的优先，同分时按老师编码保证确定性
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].penalty != candidates[j].penalty {
			return candidates[i].penalty < candidates[j].penalty
		}
		return candidates[i].assignment.TeacherCode < candidates[j].assignment.TeacherCode
	})

	return candidates[0].assignment
}
