package solver

import (
	"context"
	"strings"
	"testing"

	"github.com/zhiban/zhiban/pkg/errors"
	"github.com/zhiban/zhiban/pkg/model"
)

// weekLessons 构造整周第1、2节连排的课表（每个课间都是夹心）
func weekLessons(room string) []model.LessonSlot {
	var schedule []model.LessonSlot
	for _, day := range model.Weekdays {
		schedule = append(schedule,
			model.LessonSlot{Day: day, LessonIndex: 1, RoomCode: room, Subject: "数学", GroupCode: "A" + day},
			model.LessonSlot{Day: day, LessonIndex: 2, RoomCode: room, Subject: "数学", GroupCode: "B" + day},
		)
	}
	return schedule
}

func solveConfig() *model.DutyConfig {
	return &model.DutyConfig{
		Zones:  []model.Zone{{ID: "z1", Name: "一楼走廊"}, {ID: "z2", Name: "二楼走廊"}},
		Breaks: []model.Break{{ID: "b1", Name: "第一课间", AfterLesson: 1, Duration: 10}},
		Requirements: model.Requirements{
			"z1": {"b1": 1},
		},
		Rules:     model.DefaultRules(),
		Topology:  map[string][]string{"z1": {"R101"}, "z2": {"R201"}},
		Proximity: map[string][]string{"z1": {"z2"}, "z2": {"z1"}},
	}
}

func solveTeachers() []*model.Teacher {
	return []*model.Teacher{
		{TeacherCode: "T001", TeacherName: "张老师", Schedule: weekLessons("R101")},
		{TeacherCode: "T002", TeacherName: "李老师", Schedule: weekLessons("R201")},
	}
}

func greedyEngine() *Engine {
	return NewEngine(&Options{EnableOptimization: false})
}

func TestEngine_Solve_Basic(t *testing.T) {
	engine := greedyEngine()
	out, err := engine.Solve(context.Background(), &Input{
		Teachers: solveTeachers(),
		Config:   solveConfig(),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if out.Stats.StatusStr != model.StatusOptimal {
		t.Errorf("Expected status %s, got %s", model.StatusOptimal, out.Stats.StatusStr)
	}
	if out.Status != "success" {
		t.Errorf("Expected success status, got %s", out.Status)
	}
	if len(out.Assignments) != 5 {
		t.Fatalf("Expected 5 assignments, got %d", len(out.Assignments))
	}
	if out.Stats.TotalDuties != 5 {
		t.Errorf("Expected 5 total duties, got %d", out.Stats.TotalDuties)
	}

	// 每个教学日恰好一人
	byDay := make(map[string]int)
	for _, a := range out.Assignments {
		byDay[a.Day]++
		if a.ZoneID != "z1" || a.BreakID != "b1" {
			t.Errorf("Expected duty in z1/b1, got %s/%s", a.ZoneID, a.BreakID)
		}
	}
	for _, day := range model.Weekdays {
		if byDay[day] != 1 {
			t.Errorf("Expected 1 duty on %s, got %d", day, byDay[day])
		}
	}
}

func TestEngine_Solve_FairnessProximityTradeoff(t *testing.T) {
	engine := greedyEngine()
	out, err := engine.Solve(context.Background(), &Input{
		Teachers: solveTeachers(),
		Config:   solveConfig(),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// T001 教室就在 z1，前三天由他承担；目标次数（各3次）耗尽后
	// 公平性惩罚反超就近优势，后两天轮到 T002
	want := map[string]string{
		"Mon": "T001", "Tue": "T001", "Wed": "T001",
		"Thu": "T002", "Fri": "T002",
	}
	for _, a := range out.Assignments {
		if a.TeacherCode != want[a.Day] {
			t.Errorf("Expected %s on %s, got %s", want[a.Day], a.Day, a.TeacherCode)
		}
	}
}

func TestEngine_Solve_Deterministic(t *testing.T) {
	run := func() *Output {
		engine := NewEngine(nil)
		out, err := engine.Solve(context.Background(), &Input{
			Teachers: solveTeachers(),
			Config:   solveConfig(),
		})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		return out
	}

	first := run()
	second := run()

	if len(first.Assignments) != len(second.Assignments) {
		t.Fatalf("Expected same assignment count, got %d and %d",
			len(first.Assignments), len(second.Assignments))
	}
	for i := range first.Assignments {
		a, b := first.Assignments[i], second.Assignments[i]
		if a.TeacherCode != b.TeacherCode || a.Day != b.Day || a.ZoneID != b.ZoneID {
			t.Errorf("Expected identical runs, got %s/%s/%s vs %s/%s/%s",
				a.Day, a.ZoneID, a.TeacherCode, b.Day, b.ZoneID, b.TeacherCode)
		}
	}
}

func TestEngine_Solve_Annotations(t *testing.T) {
	engine := greedyEngine()
	out, err := engine.Solve(context.Background(), &Input{
		Teachers: solveTeachers(),
		Config:   solveConfig(),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, a := range out.Assignments {
		switch a.TeacherCode {
		case "T001":
			// 教室就在区域内，无需诊断
			if a.AssignStatus != model.AssignOptimal {
				t.Errorf("Expected optimal status for T001 on %s, got %s", a.Day, a.AssignStatus)
			}
		case "T002":
			// 落点在隔壁区域，提示距离
			if a.AssignStatus != model.AssignWarning {
				t.Errorf("Expected warning status for T002 on %s, got %s", a.Day, a.AssignStatus)
			}
			found := false
			for _, log := range a.AssignLogs {
				if strings.Contains(log, "距离落点") {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected distance log for T002 on %s, got %v", a.Day, a.AssignLogs)
			}
		}
	}
}

func TestEngine_Solve_Infeasible(t *testing.T) {
	cfg := solveConfig()
	cfg.Requirements = model.Requirements{"z1": {"b1": 2}}

	teachers := []*model.Teacher{
		{TeacherCode: "T001", TeacherName: "张老师", Schedule: weekLessons("R101")},
		{TeacherCode: "T002", TeacherName: "李老师"}, // 没有课表，不可用
	}

	engine := greedyEngine()
	out, err := engine.Solve(context.Background(), &Input{Teachers: teachers, Config: cfg})
	if err != nil {
		t.Fatalf("Expected infeasible as a result, not an error, got %v", err)
	}

	if out.Stats.StatusStr != model.StatusInfeasible {
		t.Errorf("Expected status %s, got %s", model.StatusInfeasible, out.Stats.StatusStr)
	}
	if out.Status != "failed" {
		t.Errorf("Expected failed status on infeasible result, got %s", out.Status)
	}
	if out.Message == "" {
		t.Error("Expected a message explaining infeasibility")
	}
	if len(out.Assignments) != 0 {
		t.Errorf("Expected no assignments, got %d", len(out.Assignments))
	}
}

func TestEngine_Solve_PinnedHonored(t *testing.T) {
	teachers := append(solveTeachers(),
		&model.Teacher{TeacherCode: "T003", TeacherName: "王老师"}) // 无课表

	engine := NewEngine(nil)
	out, err := engine.Solve(context.Background(), &Input{
		Teachers: teachers,
		Config:   solveConfig(),
		Pinned: []model.PinnedDuty{
			{TeacherCode: "T003", Day: "Mon", BreakIndex: 1, ZoneID: "z1"},
		},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var monday *model.DutyAssignment
	for _, a := range out.Assignments {
		if a.Day == "Mon" {
			monday = a
		}
	}
	if monday == nil {
		t.Fatal("Expected an assignment on Mon")
	}
	// 锁定覆盖可用性：T003 无课也必须原样保留
	if monday.TeacherCode != "T003" || !monday.IsPinned {
		t.Errorf("Expected pinned T003 on Mon, got %s (pinned=%v)", monday.TeacherCode, monday.IsPinned)
	}

	found := false
	for _, log := range monday.AssignLogs {
		if log == "用户锁定的值班" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected pinned log, got %v", monday.AssignLogs)
	}
}

func TestEngine_Solve_PinOverflow(t *testing.T) {
	engine := greedyEngine()
	out, err := engine.Solve(context.Background(), &Input{
		Teachers: solveTeachers(),
		Config:   solveConfig(),
		Pinned: []model.PinnedDuty{
			{TeacherCode: "T001", Day: "Mon", BreakIndex: 1, ZoneID: "z1"},
			{TeacherCode: "T002", Day: "Mon", BreakIndex: 1, ZoneID: "z1"},
		},
	})
	if err != nil {
		t.Fatalf("Expected infeasible as a result, not an error, got %v", err)
	}

	if out.Stats.StatusStr != model.StatusInfeasible {
		t.Errorf("Expected status %s, got %s", model.StatusInfeasible, out.Stats.StatusStr)
	}
	if !strings.Contains(out.Message, "锁定值班超过时段需求") {
		t.Errorf("Expected overflow message, got %s", out.Message)
	}
}

func TestEngine_Solve_InvalidPins(t *testing.T) {
	tests := []struct {
		name string
		pin  model.PinnedDuty
	}{
		{"unknown teacher", model.PinnedDuty{TeacherCode: "T999", Day: "Mon", BreakIndex: 1, ZoneID: "z1"}},
		{"bad day", model.PinnedDuty{TeacherCode: "T001", Day: "Sun", BreakIndex: 1, ZoneID: "z1"}},
		{"no break at index", model.PinnedDuty{TeacherCode: "T001", Day: "Mon", BreakIndex: 9, ZoneID: "z1"}},
		{"unknown zone", model.PinnedDuty{TeacherCode: "T001", Day: "Mon", BreakIndex: 1, ZoneID: "z9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := greedyEngine()
			_, err := engine.Solve(context.Background(), &Input{
				Teachers: solveTeachers(),
				Config:   solveConfig(),
				Pinned:   []model.PinnedDuty{tt.pin},
			})
			if err == nil {
				t.Fatal("Expected an error")
			}
			if errors.GetCode(err) != errors.CodeInvalidPin {
				t.Errorf("Expected code %s, got %s", errors.CodeInvalidPin, errors.GetCode(err))
			}
		})
	}
}

func TestEngine_Solve_DuplicatePin(t *testing.T) {
	engine := greedyEngine()
	_, err := engine.Solve(context.Background(), &Input{
		Teachers: solveTeachers(),
		Config:   solveConfig(),
		Pinned: []model.PinnedDuty{
			{TeacherCode: "T001", Day: "Mon", BreakIndex: 1, ZoneID: "z1"},
			{TeacherCode: "T001", Day: "Mon", BreakIndex: 1, ZoneID: "z2"},
		},
	})
	if err == nil {
		t.Fatal("Expected an error for duplicate pin")
	}
	if errors.GetCode(err) != errors.CodeInvalidPin {
		t.Errorf("Expected code %s, got %s", errors.CodeInvalidPin, errors.GetCode(err))
	}
}

func TestEngine_Solve_InputValidation(t *testing.T) {
	engine := greedyEngine()

	if _, err := engine.Solve(context.Background(), nil); err == nil {
		t.Error("Expected error for nil input")
	}
	if _, err := engine.Solve(context.Background(), &Input{Teachers: solveTeachers()}); err == nil {
		t.Error("Expected error for missing config")
	}
	if _, err := engine.Solve(context.Background(), &Input{Config: solveConfig()}); err == nil {
		t.Error("Expected error for empty teacher list")
	}
}

func TestSortAssignments(t *testing.T) {
	assignments := []*model.DutyAssignment{
		{TeacherCode: "T002", Day: "Tue", BreakIndex: 1, ZoneID: "z1"},
		{TeacherCode: "T001", Day: "Mon", BreakIndex: 4, ZoneID: "z1"},
		{TeacherCode: "T002", Day: "Mon", BreakIndex: 1, ZoneID: "z1"},
		{TeacherCode: "T001", Day: "Mon", BreakIndex: 1, ZoneID: "z1"},
		{TeacherCode: "T001", Day: "Mon", BreakIndex: 1, ZoneID: "z2"},
	}

	sortAssignments(assignments)

	want := []struct {
		day     string
		index   int
		zone    string
		teacher string
	}{
		{"Mon", 1, "z1", "T001"},
		{"Mon", 1, "z1", "T002"},
		{"Mon", 1, "z2", "T001"},
		{"Mon", 4, "z1", "T001"},
		{"Tue", 1, "z1", "T002"},
	}
	for i, w := range want {
		a := assignments[i]
		if a.Day != w.day || a.BreakIndex != w.index || a.ZoneID != w.zone || a.TeacherCode != w.teacher {
			t.Errorf("Position %d: expected %s/%d/%s/%s, got %s/%d/%s/%s",
				i, w.day, w.index, w.zone, w.teacher, a.Day, a.BreakIndex, a.ZoneID, a.TeacherCode)
		}
	}
}
