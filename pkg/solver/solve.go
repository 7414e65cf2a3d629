package solver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/zhiban/zhiban/pkg/errors"
	"github.com/zhiban/zhiban/pkg/logger"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/roster"
	"github.com/zhiban/zhiban/pkg/solver/constraint"
	"github.com/zhiban/zhiban/pkg/solver/constraint/builtin"
	"github.com/zhiban/zhiban/pkg/solver/optimizer"
)

// Input 求解输入
type Input struct {
	Teachers []*model.Teacher  `json:"teachers"`
	Config   *model.DutyConfig `json:"config"`
	// Pinned 额外的锁定值班，与老师自带的 ManualDuties 合并
	Pinned []model.PinnedDuty `json:"pinned,omitempty"`
}

// Output 求解输出
type Output struct {
	RunID       string                  `json:"run_id"`
	Status      string                  `json:"status"` // success/failed
	Assignments []*model.DutyAssignment `json:"solution"`
	Stats       *model.SolutionStats    `json:"stats"`
	Objective   float64                 `json:"objective"`
	Duration    time.Duration           `json:"duration"`
	Message     string                  `json:"message,omitempty"`
}

// Options 求解引擎选项
type Options struct {
	Optimization       *optimizer.OptimizationConfig
	EnableOptimization bool
}

// DefaultOptions 默认引擎选项
func DefaultOptions() *Options {
	return &Options{
		Optimization:       optimizer.DefaultOptConfig(),
		EnableOptimization: true,
	}
}

// Engine 值班求解引擎
// 流程：校验输入 → 放置锁定值班 → 供给预检 → 贪心构造 → 局部搜索优化 → 标注结果
type Engine struct {
	opts   *Options
	logger *logger.SolverLogger
}

// NewEngine 创建求解引擎
func NewEngine(opts *Options) *Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Optimization == nil {
		opts.Optimization = optimizer.DefaultOptConfig()
	}
	return &Engine{
		opts:   opts,
		logger: logger.NewSolverLogger(),
	}
}

// Solve 求解一周的值班方案
// 不可行是正常结果而非错误：status_str 为 INFEASIBLE 并附带原因
func (e *Engine) Solve(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	runID := uuid.New().String()

	out := &Output{
		RunID:       runID,
		Status:      "failed",
		Assignments: make([]*model.DutyAssignment, 0),
		Stats:       &model.SolutionStats{StatusStr: model.StatusInfeasible},
	}

	if input == nil || input.Config == nil {
		return nil, errors.InvalidInput("config", "值班配置不能为空")
	}
	if err := input.Config.Validate(); err != nil {
		return nil, err
	}
	if len(input.Teachers) == 0 {
		return nil, errors.InvalidInput("teachers", "老师列表不能为空")
	}

	cfg := input.Config

	// 收集并校验锁定值班
	pins, err := collectPins(input)
	if err != nil {
		return nil, err
	}

	// 构建求解上下文和约束管理器
	dutyCtx := constraint.NewContext(input.Teachers, cfg)
	dutyCtx.Targets = roster.Targets(input.Teachers, dutyCtx.TotalRequired())

	manager := builtin.NewManager(cfg.Rules, pins)

	e.logger.StartSolve(runID, len(input.Teachers), dutyCtx.TotalRequired())

	// 放置锁定值班（锁定覆盖可用性，占用该时段的需求名额）
	pinned, msg := placePins(dutyCtx, cfg, pins)
	if msg != "" {
		out.Duration = time.Since(start)
		out.Message = msg
		e.logger.Infeasible(runID, msg)
		return out, nil
	}

	// 供给预检：每个时段的可用人数必须覆盖需求
	if msg := e.precheckSupply(dutyCtx, pins); msg != "" {
		out.Duration = time.Since(start)
		out.Message = msg
		e.logger.Infeasible(runID, msg)
		return out, nil
	}

	// 贪心构造初始解
	greedy := NewGreedySolver(manager)
	greedyResult, err := greedy.Solve(ctx, dutyCtx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNoFeasibleSolution, "贪心构造失败")
	}

	assignments := append(pinned, greedyResult.Assignments...)

	if !greedyResult.Success {
		out.Duration = time.Since(start)
		out.Message = greedyResult.Message
		e.logger.Infeasible(runID, greedyResult.Message)
		return out, nil
	}

	statusStr := model.StatusOptimal
	objective := float64(greedyResult.ConstraintResult.TotalPenalty)

	// 局部搜索优化
	if e.opts.EnableOptimization && len(assignments) > 1 {
		assignments, objective, statusStr = e.optimize(ctx, dutyCtx, manager, assignments, objective)
	}

	// 标注每个分配的状态和诊断日志
	dutyCtx.SetAssignments(assignments)
	annotate(dutyCtx, assignments)
	sortAssignments(assignments)

	out.Status = "success"
	out.Assignments = assignments
	out.Objective = objective
	out.Duration = time.Since(start)
	out.Stats = &model.SolutionStats{
		TotalDuties: len(assignments),
		StatusStr:   statusStr,
	}
	out.Message = fmt.Sprintf("共生成 %d 个值班", len(assignments))

	e.logger.SolveComplete(runID, statusStr, out.Duration, objective)

	return out, nil
}

// collectPins 合并并校验锁定值班
func collectPins(input *Input) ([]model.PinnedDuty, error) {
	var pins []model.PinnedDuty
	for _, t := range input.Teachers {
		pins = append(pins, t.ManualDuties...)
	}
	pins = append(pins, input.Pinned...)

	cfg := input.Config
	teacherSet := make(map[string]bool, len(input.Teachers))
	for _, t := range input.Teachers {
		teacherSet[t.TeacherCode] = true
	}

	seen := make(map[string]bool)
	for _, p := range pins {
		if !teacherSet[p.TeacherCode] {
			return nil, errors.InvalidPin(p.TeacherCode, "老师不存在")
		}
		if !model.IsWeekday(p.Day) {
			return nil, errors.InvalidPin(p.TeacherCode, fmt.Sprintf("无效的教学日: %s", p.Day))
		}
		if cfg.BreakByIndex(p.BreakIndex) == nil {
			return nil, errors.InvalidPin(p.TeacherCode, fmt.Sprintf("节次 %d 没有对应课间", p.BreakIndex))
		}
		if cfg.ZoneByID(p.ZoneID) == nil {
			return nil, errors.InvalidPin(p.TeacherCode, fmt.Sprintf("区域不存在: %s", p.ZoneID))
		}

		// 同一老师同一时点只能锁定一次
		key := fmt.Sprintf("%s/%s/%d", p.TeacherCode, p.Day, p.BreakIndex)
		if seen[key] {
			return nil, errors.InvalidPin(p.TeacherCode, fmt.Sprintf("时点 %s 第%d节后重复锁定", p.Day, p.BreakIndex))
		}
		seen[key] = true
	}

	return pins, nil
}

// placePins 将锁定值班放入当前方案
// 返回放置的分配；若锁定数超过时段需求则返回不可行原因
func placePins(dutyCtx *constraint.Context, cfg *model.DutyConfig, pins []model.PinnedDuty) ([]*model.DutyAssignment, string) {
	placed := make([]*model.DutyAssignment, 0, len(pins))

	for _, p := range pins {
		b := cfg.BreakByIndex(p.BreakIndex)
		z := cfg.ZoneByID(p.ZoneID)

		required := cfg.Requirements.Count(z.ID, b.ID)
		occupied := len(dutyCtx.SlotAssignments(p.Day, b.ID, z.ID))
		if occupied >= required {
			return nil, fmt.Sprintf("锁定值班超过时段需求: %s/%s/%s 需求 %d 人", p.Day, b.ID, z.ID, required)
		}

		assignment := &model.DutyAssignment{
			TeacherCode: p.TeacherCode,
			Day:         p.Day,
			BreakID:     b.ID,
			BreakName:   b.Name,
			BreakIndex:  b.AfterLesson,
			ZoneID:      z.ID,
			ZoneName:    z.Name,
			IsPinned:    true,
		}
		dutyCtx.AddAssignment(assignment)
		placed = append(placed, assignment)
	}

	return placed, ""
}

// precheckSupply 供给预检
// 对每个 (日, 课间) 比较需求人数与可用老师数；锁定的老师即使无课也算可用
func (e *Engine) precheckSupply(dutyCtx *constraint.Context, pins []model.PinnedDuty) string {
	cfg := dutyCtx.Config

	pinnedAt := make(map[string]int)
	for _, p := range pins {
		pinnedAt[p.Day+"/"+fmt.Sprint(p.BreakIndex)]++
	}

	for _, day := range model.Weekdays {
		for bi := range cfg.Breaks {
			b := cfg.Breaks[bi]

			required := 0
			for _, z := range cfg.Zones {
				required += cfg.Requirements.Count(z.ID, b.ID)
			}
			if required == 0 {
				continue
			}

			available := 0
			for _, t := range dutyCtx.Teachers {
				if dutyCtx.Avail.Available(t.TeacherCode, day, &b) && !dutyCtx.Avail.BlockedByDoubleLesson(t.TeacherCode, day, &b) {
					available++
				}
			}
			// 锁定覆盖可用性
			available += pinnedAt[day+"/"+fmt.Sprint(b.AfterLesson)]

			if available < required {
				appErr := errors.InsufficientSupply(day, b.ID, required, available)
				return appErr.Message
			}
		}
	}

	return ""
}

// managerEvaluator 用约束管理器评估邻域解
type managerEvaluator struct {
	manager *constraint.Manager
	base    *constraint.Context
}

func (e *managerEvaluator) Evaluate(assignments []*model.DutyAssignment) (float64, int) {
	evalCtx := e.base.CloneForEval(assignments)
	r := e.manager.Evaluate(evalCtx)
	return float64(r.TotalPenalty), len(r.HardViolations)
}

// optimize 对初始解做局部搜索优化
func (e *Engine) optimize(ctx context.Context, dutyCtx *constraint.Context, manager *constraint.Manager, assignments []*model.DutyAssignment, objective float64) ([]*model.DutyAssignment, float64, string) {
	// 每个时段的可替换候选（可用且无连堂课冲突）
	candidates := make(map[string][]string)
	for _, day := range model.Weekdays {
		for bi := range dutyCtx.Config.Breaks {
			b := dutyCtx.Config.Breaks[bi]
			var pool []string
			for _, t := range dutyCtx.Teachers {
				if dutyCtx.Avail.Available(t.TeacherCode, day, &b) && !dutyCtx.Avail.BlockedByDoubleLesson(t.TeacherCode, day, &b) {
					pool = append(pool, t.TeacherCode)
				}
			}
			if len(pool) > 0 {
				candidates[optimizer.SlotKey(day, b.ID)] = pool
			}
		}
	}

	evaluator := &managerEvaluator{manager: manager, base: dutyCtx}
	moves := optimizer.NewNeighborhoodGenerator(e.opts.Optimization.Seed, candidates)
	localSearch := optimizer.NewLocalSearchOptimizer(e.opts.Optimization, evaluator, moves)

	initial := &optimizer.Solution{
		Assignments: assignments,
		Score:       objective,
		Feasible:    true,
	}

	best, termination := localSearch.Optimize(ctx, initial)

	statusStr := model.StatusOptimal
	if termination != optimizer.TerminatedConverged {
		// 时间预算耗尽或被取消，解可行但不保证收敛
		statusStr = model.StatusFeasible
	}

	return best.Assignments, best.Score, statusStr
}

// annotate 标注每个分配的状态和诊断日志
func annotate(dutyCtx *constraint.Context, assignments []*model.DutyAssignment) {
	cfg := dutyCtx.Config
	tolerance := cfg.Rules.MaxFairnessDeviation

	for _, a := range assignments {
		a.AssignLogs = a.AssignLogs[:0]

		b := cfg.BreakByID(a.BreakID)
		farFromAnchor := false
		overDeviation := false

		if a.IsPinned {
			a.AssignLogs = append(a.AssignLogs, "用户锁定的值班")
		}

		if b != nil {
			anchor := dutyCtx.Avail.AnchorRoom(a.TeacherCode, a.Day, b)
			dist := dutyCtx.Topo.Distance(anchor, a.ZoneID)
			switch {
			case dist >= dutyCtx.Topo.Sentinel():
				farFromAnchor = true
				a.AssignLogs = append(a.AssignLogs, "远离任课教室落点")
			case dist > 0:
				a.AssignLogs = append(a.AssignLogs, fmt.Sprintf("距离落点 %d 个区域", dist))
			}

			if dutyCtx.Avail.IsEdge(a.TeacherCode, a.Day, b) {
				a.AssignLogs = append(a.AssignLogs, "边缘课间值班")
			}
		}

		if dev := dutyCtx.Deviation(a.TeacherCode); dev > tolerance || dev < -tolerance {
			overDeviation = true
			a.AssignLogs = append(a.AssignLogs,
				fmt.Sprintf("值班次数偏离目标: 当前 %d, 目标 %d", dutyCtx.DutyCount(a.TeacherCode), dutyCtx.Targets[a.TeacherCode]))
		}

		switch {
		case farFromAnchor && overDeviation:
			a.AssignStatus = model.AssignCritical
		case len(a.AssignLogs) > 0:
			a.AssignStatus = model.AssignWarning
		default:
			a.AssignStatus = model.AssignOptimal
		}
	}
}

// sortAssignments 按日、节次、区域、老师排序，保证输出稳定
func sortAssignments(assignments []*model.DutyAssignment) {
	sort.Slice(assignments, func(i, j int) bool {
		a, b := assignments[i], assignments[j]
		if dayOrder(a.Day) != dayOrder(b.Day) {
			return dayOrder(a.Day) < dayOrder(b.Day)
		}
		if a.BreakIndex != b.BreakIndex {
			return a.BreakIndex < b.BreakIndex
		}
		if a.ZoneID != b.ZoneID {
			return a.ZoneID < b.ZoneID
		}
		return a.TeacherCode < b.TeacherCode
	})
}
