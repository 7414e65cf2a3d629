package constraint

import (
	"testing"

	"github.com/zhiban/zhiban/pkg/model"
)

func testConfig() *model.DutyConfig {
	return &model.DutyConfig{
		Zones: []model.Zone{{ID: "z1", Name: "一楼走廊"}, {ID: "z2", Name: "二楼走廊"}},
		Breaks: []model.Break{
			{ID: "b1", Name: "第一课间", AfterLesson: 1, Duration: 10},
			{ID: "b2", Name: "午休", AfterLesson: 4, Duration: 40},
		},
		Requirements: model.Requirements{
			"z1": {"b1": 1, "b2": 1},
		},
		Rules:     model.DefaultRules(),
		Topology:  map[string][]string{"z1": {"R101"}, "z2": {"R201"}},
		Proximity: map[string][]string{"z1": {"z2"}, "z2": {"z1"}},
	}
}

func testTeachers() []*model.Teacher {
	return []*model.Teacher{
		{
			TeacherCode: "T001",
			TeacherName: "张老师",
			Schedule: []model.LessonSlot{
				{Day: "Mon", LessonIndex: 1, RoomCode: "R101", Subject: "数学", GroupCode: "C1"},
				{Day: "Mon", LessonIndex: 2, RoomCode: "R101", Subject: "数学", GroupCode: "C2"},
			},
		},
		{
			TeacherCode: "T002",
			TeacherName: "李老师",
			Schedule: []model.LessonSlot{
				{Day: "Mon", LessonIndex: 2, RoomCode: "R201", Subject: "语文", GroupCode: "C1"},
			},
		},
	}
}

func TestContext_Indexes(t *testing.T) {
	ctx := NewContext(testTeachers(), testConfig())

	if got := ctx.GetTeacher("T001"); got == nil || got.TeacherName != "张老师" {
		t.Errorf("Expected teacher T001, got %v", got)
	}
	if got := ctx.GetTeacher("T999"); got != nil {
		t.Error("Expected nil for unknown teacher")
	}

	ctx.SetAssignments([]*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
		{TeacherCode: "T001", Day: "Tue", BreakID: "b2", BreakIndex: 4, ZoneID: "z1"},
		{TeacherCode: "T002", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z2"},
	})

	if got := ctx.DutyCount("T001"); got != 2 {
		t.Errorf("Expected 2 duties, got %d", got)
	}
	if got := ctx.DutyCountOnDay("T001", "Mon"); got != 1 {
		t.Errorf("Expected 1 duty on Mon, got %d", got)
	}
	if got := len(ctx.SlotAssignments("Mon", "b1", "z1")); got != 1 {
		t.Errorf("Expected 1 assignment in slot, got %d", got)
	}
	if got := len(ctx.SlotAssignments("Mon", "b1", "z9")); got != 0 {
		t.Errorf("Expected empty slot, got %d", got)
	}
}

func TestContext_AddAssignment(t *testing.T) {
	ctx := NewContext(testTeachers(), testConfig())

	ctx.AddAssignment(&model.DutyAssignment{
		TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1",
	})

	if got := ctx.DutyCount("T001"); got != 1 {
		t.Errorf("Expected 1 duty after add, got %d", got)
	}
	if got := len(ctx.SlotAssignments("Mon", "b1", "z1")); got != 1 {
		t.Errorf("Expected slot index updated, got %d", got)
	}
}

func TestContext_LongBreakCount(t *testing.T) {
	ctx := NewContext(testTeachers(), testConfig())
	ctx.SetAssignments([]*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
		{TeacherCode: "T001", Day: "Tue", BreakID: "b2", BreakIndex: 4, ZoneID: "z1"},
		{TeacherCode: "T001", Day: "Wed", BreakID: "b2", BreakIndex: 4, ZoneID: "z1"},
	})

	// b2 为40分钟长课间，b1 不是
	if got := ctx.LongBreakCount("T001"); got != 2 {
		t.Errorf("Expected 2 long break duties, got %d", got)
	}
}

func TestContext_EdgeCount(t *testing.T) {
	ctx := NewContext(testTeachers(), testConfig())
	ctx.SetAssignments([]*model.DutyAssignment{
		// T001 周一第1课间被前后两节课夹住，不算边缘
		{TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
		// T002 周一第1课间只有紧后一节课，算边缘
		{TeacherCode: "T002", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z2"},
	})

	if got := ctx.EdgeCount("T001"); got != 0 {
		t.Errorf("Expected 0 edge duties for T001, got %d", got)
	}
	if got := ctx.EdgeCount("T002"); got != 1 {
		t.Errorf("Expected 1 edge duty for T002, got %d", got)
	}
}

func TestContext_AssignedAtTime(t *testing.T) {
	ctx := NewContext(testTeachers(), testConfig())
	ctx.SetAssignments([]*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
	})

	// 同一节次判重，跨区域也算占用
	if !ctx.AssignedAtTime("T001", "Mon", 1) {
		t.Error("Expected T001 assigned at Mon afterLesson 1")
	}
	if ctx.AssignedAtTime("T001", "Mon", 4) {
		t.Error("Expected T001 free at Mon afterLesson 4")
	}
	if ctx.AssignedAtTime("T001", "Tue", 1) {
		t.Error("Expected T001 free on Tue")
	}
}

func TestContext_Deviation(t *testing.T) {
	ctx := NewContext(testTeachers(), testConfig())
	ctx.Targets = map[string]int{"T001": 3}
	ctx.SetAssignments([]*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
	})

	if got := ctx.Deviation("T001"); got != -2 {
		t.Errorf("Expected deviation -2, got %d", got)
	}
}

func TestContext_TotalRequired(t *testing.T) {
	ctx := NewContext(testTeachers(), testConfig())

	// 每日 2 人次 × 5 个教学日
	if got := ctx.TotalRequired(); got != 10 {
		t.Errorf("Expected 10 total required, got %d", got)
	}
}

func TestContext_CloneForEval(t *testing.T) {
	ctx := NewContext(testTeachers(), testConfig())
	ctx.Targets = map[string]int{"T001": 2}
	base := []*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
	}
	ctx.SetAssignments(base)

	clone := ctx.CloneForEval([]*model.DutyAssignment{
		{TeacherCode: "T002", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
	})

	// 克隆持有自己的方案索引，原上下文不受影响
	if got := clone.DutyCount("T002"); got != 1 {
		t.Errorf("Expected 1 duty in clone, got %d", got)
	}
	if got := clone.DutyCount("T001"); got != 0 {
		t.Errorf("Expected 0 duties for T001 in clone, got %d", got)
	}
	if got := ctx.DutyCount("T001"); got != 1 {
		t.Errorf("Expected original context unchanged, got %d", got)
	}
	// 只读输入共享
	if clone.Targets["T001"] != 2 {
		t.Error("Expected clone to share targets")
	}
}

func TestResult_CalculateScore(t *testing.T) {
	r := &Result{TotalPenalty: 50}
	r.CalculateScore(200)
	if r.Score != 75.0 {
		t.Errorf("Expected score 75, got %.1f", r.Score)
	}

	r = &Result{TotalPenalty: 0}
	r.CalculateScore(0)
	if r.Score != 100.0 {
		t.Errorf("Expected score 100 with zero max penalty, got %.1f", r.Score)
	}

	r = &Result{TotalPenalty: 500}
	r.CalculateScore(200)
	if r.Score != 0 {
		t.Errorf("Expected score clamped to 0, got %.1f", r.Score)
	}
}
