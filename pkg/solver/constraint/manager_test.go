package constraint

import (
	"testing"

	"github.com/zhiban/zhiban/pkg/model"
)

func TestManager_Register(t *testing.T) {
	manager := NewManager()

	c := &MockConstraint{
		name:     "test",
		typ:      Type("test_type"),
		category: CategoryHard,
	}
	manager.Register(c)

	constraints := manager.GetAll()
	if len(constraints) != 1 {
		t.Errorf("Expected 1 constraint, got %d", len(constraints))
	}
}

func TestManager_Register_ReplacesSameType(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "old", typ: Type("t"), category: CategoryHard})
	manager.Register(&MockConstraint{name: "new", typ: Type("t"), category: CategoryHard})

	if manager.Count() != 1 {
		t.Errorf("Expected 1 constraint after replace, got %d", manager.Count())
	}
	if got := manager.GetConstraint(Type("t")); got == nil || got.Name() != "new" {
		t.Error("Expected replacement to win")
	}
}

func TestManager_Register_Ordering(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "soft_heavy", typ: Type("s1"), category: CategorySoft, weight: 300})
	manager.Register(&MockConstraint{name: "hard_light", typ: Type("h1"), category: CategoryHard, weight: 50})
	manager.Register(&MockConstraint{name: "hard_heavy", typ: Type("h2"), category: CategoryHard, weight: 100})

	// 硬约束在前，同类别按权重降序
	all := manager.GetAll()
	if all[0].Name() != "hard_heavy" || all[1].Name() != "hard_light" || all[2].Name() != "soft_heavy" {
		t.Errorf("Expected hard_heavy/hard_light/soft_heavy, got %s/%s/%s",
			all[0].Name(), all[1].Name(), all[2].Name())
	}
}

func TestManager_Unregister(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "c1", typ: Type("c1"), category: CategoryHard})
	manager.Unregister(Type("c1"))

	if manager.Count() != 0 {
		t.Errorf("Expected 0 constraints after unregister, got %d", manager.Count())
	}
}

func TestManager_GetByCategory(t *testing.T) {
	manager := NewManager()

	hard := &MockConstraint{name: "hard1", typ: Type("hard1"), category: CategoryHard}
	soft := &MockConstraint{name: "soft1", typ: Type("soft1"), category: CategorySoft}
	manager.Register(hard)
	manager.Register(soft)

	hardConstraints := manager.GetByCategory(CategoryHard)
	if len(hardConstraints) != 1 {
		t.Errorf("Expected 1 hard constraint, got %d", len(hardConstraints))
	}

	softConstraints := manager.GetByCategory(CategorySoft)
	if len(softConstraints) != 1 {
		t.Errorf("Expected 1 soft constraint, got %d", len(softConstraints))
	}
}

func TestManager_Evaluate(t *testing.T) {
	manager := NewManager()

	// 注册一个通过的约束
	pass := &MockConstraint{
		name:     "pass",
		typ:      Type("pass_type"),
		category: CategoryHard,
		pass:     true,
	}
	manager.Register(pass)

	ctx := NewContext(testTeachers(), testConfig())

	result := manager.Evaluate(ctx)

	if !result.IsValid {
		t.Error("Expected valid result")
	}
	if result.TotalPenalty != 0 {
		t.Errorf("Expected 0 penalty, got %d", result.TotalPenalty)
	}
	if result.Score != 100.0 {
		t.Errorf("Expected score 100, got %.1f", result.Score)
	}
}

func TestManager_Evaluate_HardViolation(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{
		name:     "fail_hard",
		typ:      Type("fail_hard"),
		category: CategoryHard,
		penalty:  500,
	})
	manager.Register(&MockConstraint{
		name:     "fail_soft",
		typ:      Type("fail_soft"),
		category: CategorySoft,
		penalty:  30,
	})

	ctx := NewContext(testTeachers(), testConfig())
	result := manager.Evaluate(ctx)

	if result.IsValid {
		t.Error("Expected invalid result on hard violation")
	}
	if len(result.HardViolations) != 1 {
		t.Errorf("Expected 1 hard violation, got %d", len(result.HardViolations))
	}
	if len(result.SoftViolations) != 1 {
		t.Errorf("Expected 1 soft violation, got %d", len(result.SoftViolations))
	}
	if result.TotalPenalty != 530 {
		t.Errorf("Expected total penalty 530, got %d", result.TotalPenalty)
	}
}

func TestManager_EvaluateAssignment(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "fail", typ: Type("fail"), category: CategorySoft, penalty: 40})
	manager.Register(&MockConstraint{name: "pass", typ: Type("pass"), category: CategoryHard, pass: true, penalty: 10})

	ctx := NewContext(testTeachers(), testConfig())
	a := &model.DutyAssignment{TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"}

	valid, penalty, violations := manager.EvaluateAssignment(ctx, a)

	// 软约束违反不阻断分配，惩罚照常累加
	if !valid {
		t.Error("Expected soft violation not to invalidate assignment")
	}
	if penalty != 50 {
		t.Errorf("Expected penalty 50, got %d", penalty)
	}
	if len(violations) != 1 {
		t.Errorf("Expected 1 violation, got %d", len(violations))
	}
}

func TestManager_CanAssign(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "soft_fail", typ: Type("s"), category: CategorySoft, penalty: 99})

	ctx := NewContext(testTeachers(), testConfig())
	a := &model.DutyAssignment{TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"}

	// 只有硬约束能否决分配
	if ok, _ := manager.CanAssign(ctx, a); !ok {
		t.Error("Expected soft violation not to block assignment")
	}

	manager.Register(&MockConstraint{name: "hard_fail", typ: Type("h"), category: CategoryHard})
	ok, reason := manager.CanAssign(ctx, a)
	if ok {
		t.Error("Expected hard violation to block assignment")
	}
	if reason == "" {
		t.Error("Expected a reason for the rejection")
	}
}

func TestManager_Clear(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "test", typ: Type("test"), category: CategoryHard})
	manager.Clear()

	if len(manager.GetAll()) != 0 {
		t.Error("Expected 0 constraints after clear")
	}
}

func TestManager_Count(t *testing.T) {
	manager := NewManager()

	if manager.Count() != 0 {
		t.Error("Expected 0 count for empty manager")
	}

	manager.Register(&MockConstraint{name: "c1", typ: Type("c1"), category: CategoryHard})
	manager.Register(&MockConstraint{name: "c2", typ: Type("c2"), category: CategorySoft})

	if manager.Count() != 2 {
		t.Errorf("Expected 2 count, got %d", manager.Count())
	}
}

// MockConstraint 用于测试的模拟约束
type MockConstraint struct {
	name     string
	typ      Type
	category Category
	weight   int
	pass     bool
	penalty  int
}

func (m *MockConstraint) Name() string       { return m.name }
func (m *MockConstraint) Type() Type         { return m.typ }
func (m *MockConstraint) Category() Category { return m.category }
func (m *MockConstraint) Weight() int {
	if m.weight == 0 {
		return 100
	}
	return m.weight
}

func (m *MockConstraint) Evaluate(ctx *Context) (bool, int, []ViolationDetail) {
	if m.pass {
		return true, 0, nil
	}
	return false, m.penalty, []ViolationDetail{
		{ConstraintName: m.name, Message: "违反约束", Penalty: m.penalty},
	}
}

func (m *MockConstraint) EvaluateAssignment(ctx *Context, assignment *model.DutyAssignment) (bool, int) {
	return m.pass, m.penalty
}
