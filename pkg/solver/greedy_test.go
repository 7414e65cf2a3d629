package solver

import (
	"context"
	"testing"

	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/solver/constraint"
	"github.com/zhiban/zhiban/pkg/solver/constraint/builtin"
)

func TestGreedySolver_Solve(t *testing.T) {
	cfg := solveConfig()
	teachers := solveTeachers()

	dutyCtx := constraint.NewContext(teachers, cfg)
	dutyCtx.Targets = map[string]int{"T001": 3, "T002": 2}
	manager := builtin.NewManager(cfg.Rules, nil)

	solver := NewGreedySolver(manager)
	result, err := solver.Solve(context.Background(), dutyCtx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !result.Success {
		t.Fatalf("Expected success, got message: %s", result.Message)
	}
	if result.Statistics.FilledSlots != 5 {
		t.Errorf("Expected 5 filled slots, got %d", result.Statistics.FilledSlots)
	}
	if result.Statistics.FillRate != 100.0 {
		t.Errorf("Expected fill rate 100, got %.1f", result.Statistics.FillRate)
	}
	if !result.ConstraintResult.IsValid {
		t.Error("Expected no hard violations")
	}
}

func TestGreedySolver_BuildDemands_SubtractsPins(t *testing.T) {
	cfg := solveConfig()
	dutyCtx := constraint.NewContext(solveTeachers(), cfg)

	// 周一的需求已被锁定占满
	dutyCtx.AddAssignment(&model.DutyAssignment{
		TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1", IsPinned: true,
	})

	solver := NewGreedySolver(builtin.NewManager(cfg.Rules, nil))
	demands := solver.buildDemands(dutyCtx)

	if len(demands) != 4 {
		t.Fatalf("Expected 4 remaining demands, got %d", len(demands))
	}
	for _, d := range demands {
		if d.Day == "Mon" {
			t.Errorf("Expected Mon demand consumed by pin, got %d remaining", d.Required)
		}
	}
}

func TestGreedySolver_PickBest_NoCandidate(t *testing.T) {
	cfg := solveConfig()
	// 只有一位老师且当天没课
	teachers := []*model.Teacher{{TeacherCode: "T001", TeacherName: "张老师"}}
	dutyCtx := constraint.NewContext(teachers, cfg)

	solver := NewGreedySolver(builtin.NewManager(cfg.Rules, nil))
	demand := &slotDemand{
		Day:      "Mon",
		Break:    cfg.Breaks[0],
		Zone:     cfg.Zones[0],
		Required: 1,
	}

	if best := solver.pickBest(dutyCtx, demand); best != nil {
		t.Errorf("Expected no candidate, got %s", best.TeacherCode)
	}
}

func TestGreedySolver_NoTeachers(t *testing.T) {
	cfg := solveConfig()
	dutyCtx := constraint.NewContext(nil, cfg)

	solver := NewGreedySolver(builtin.NewManager(cfg.Rules, nil))
	if _, err := solver.Solve(context.Background(), dutyCtx); err == nil {
		t.Error("Expected error without teachers")
	}
}

func TestDayOrder(t *testing.T) {
	if dayOrder("Mon") != 0 || dayOrder("Fri") != 4 {
		t.Error("Expected weekday ordering Mon..Fri")
	}
	if dayOrder("Sun") != len(model.Weekdays) {
		t.Errorf("Expected unknown day to sort last, got %d", dayOrder("Sun"))
	}
}
