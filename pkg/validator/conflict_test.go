package validator

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
		Requirements: model.Requirements{"z1": {"b1": 1}},
		Rules:        model.DefaultRules(),
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
				{Day: "Tue", LessonIndex: 1, RoomCode: "R101", Subject: "数学", GroupCode: "C3"},
			},
		},
		{
			TeacherCode: "T002",
			TeacherName: "李老师",
			Schedule: []model.LessonSlot{
				// 连堂课
				{Day: "Mon", LessonIndex: 1, RoomCode: "R201", Subject: "语文", GroupCode: "C1"},
				{Day: "Mon", LessonIndex: 2, RoomCode: "R201", Subject: "语文", GroupCode: "C1"},
			},
		},
	}
}

// hasConflict 查找某类型的冲突
func hasConflict(conflicts []Conflict, typ ConflictType) bool {
	for _, c := range conflicts {
		if c.Type == typ {
			return true
		}
	}
	return false
}

func TestDetectAll_CleanPlan(t *testing.T) {
	detector := NewConflictDetector(nil)

	assignments := []*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
	}
	// 周二到周五的需求未覆盖，只验证周一无老师级冲突
	conflicts := detector.DetectAll(assignments, testTeachers(), testConfig())

	for _, c := range conflicts {
		if c.Type != ConflictCoverage {
			t.Errorf("Expected only coverage gaps, got %s: %s", c.Type, c.Message)
		}
	}
}

func TestDetectAll_DoubleBooking(t *testing.T) {
	detector := NewConflictDetector(nil)

	// 同一节次排在两个区域
	assignments := []*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
		{TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z2"},
	}
	conflicts := detector.DetectAll(assignments, testTeachers(), testConfig())

	if !hasConflict(conflicts, ConflictDoubleBooking) {
		t.Error("Expected double booking conflict")
	}
}

func TestDetectAll_Absence(t *testing.T) {
	detector := NewConflictDetector(nil)

	// 周三没课
	assignments := []*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Wed", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
	}
	conflicts := detector.DetectAll(assignments, testTeachers(), testConfig())

	if !hasConflict(conflicts, ConflictAvailability) {
		t.Error("Expected availability conflict")
	}
}

func TestDetectAll_PinnedSkipsAbsence(t *testing.T) {
	detector := NewConflictDetector(nil)

	// 锁定值班覆盖可用性
	assignments := []*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Wed", BreakID: "b1", BreakIndex: 1, ZoneID: "z1", IsPinned: true},
	}
	conflicts := detector.DetectAll(assignments, testTeachers(), testConfig())

	if hasConflict(conflicts, ConflictAvailability) {
		t.Error("Expected pinned duty to skip availability check")
	}
}

func TestDetectAll_DoubleLesson(t *testing.T) {
	detector := NewConflictDetector(nil)

	assignments := []*model.DutyAssignment{
		{TeacherCode: "T002", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
	}
	conflicts := detector.DetectAll(assignments, testTeachers(), testConfig())

	if !hasConflict(conflicts, ConflictDoubleLesson) {
		t.Error("Expected double lesson conflict")
	}
}

func TestDetectAll_DailyCap(t *testing.T) {
	cfg := testConfig()
	cfg.Rules.MaxDutiesPerDay = 1
	detector := NewConflictDetector(nil)

	assignments := []*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
		{TeacherCode: "T001", Day: "Mon", BreakID: "b2", BreakIndex: 4, ZoneID: "z1"},
	}
	conflicts := detector.DetectAll(assignments, testTeachers(), cfg)

	if !hasConflict(conflicts, ConflictDailyCap) {
		t.Error("Expected daily cap conflict")
	}
}

func TestDetectAll_LongBreakCap(t *testing.T) {
	cfg := testConfig()
	cfg.Rules.MaxLongBreakDuties = 1
	detector := NewConflictDetector(nil)

	assignments := []*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Mon", BreakID: "b2", BreakIndex: 4, ZoneID: "z1"},
		{TeacherCode: "T001", Day: "Tue", BreakID: "b2", BreakIndex: 4, ZoneID: "z1"},
	}
	conflicts := detector.DetectAll(assignments, testTeachers(), cfg)

	if !hasConflict(conflicts, ConflictLongBreakCap) {
		t.Error("Expected long break cap conflict")
	}
}

func TestDetectAll_UnknownRefs(t *testing.T) {
	detector := NewConflictDetector(nil)

	assignments := []*model.DutyAssignment{
		{TeacherCode: "T999", Day: "Mon", BreakID: "b9", BreakIndex: 1, ZoneID: "z9"},
	}
	conflicts := detector.DetectAll(assignments, testTeachers(), testConfig())

	// 区域、课间、老师三个引用都不存在
	count := 0
	for _, c := range conflicts {
		if c.Type == ConflictUnknownRef {
			count++
		}
	}
	if count != 3 {
		t.Errorf("Expected 3 unknown ref conflicts, got %d", count)
	}
}

func TestDetectAll_CoverageSeverity(t *testing.T) {
	detector := NewConflictDetector(nil)

	// 周一超员，周二到周五缺人
	assignments := []*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
		{TeacherCode: "T002", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1", IsPinned: true},
	}
	conflicts := detector.DetectAll(assignments, testTeachers(), testConfig())

	var overfill, shortfall *Conflict
	for i, c := range conflicts {
		if c.Type != ConflictCoverage {
			continue
		}
		if c.Day == "Mon" {
			overfill = &conflicts[i]
		} else if shortfall == nil {
			shortfall = &conflicts[i]
		}
	}

	if overfill == nil || overfill.Severity != "warning" {
		t.Errorf("Expected overfill as warning, got %v", overfill)
	}
	if shortfall == nil || shortfall.Severity != "error" {
		t.Errorf("Expected shortfall as error, got %v", shortfall)
	}
}

func TestDetectAll_ChecksDisabled(t *testing.T) {
	detector := NewConflictDetector(&DetectorConfig{})

	// 人不在场、超上限、缺人都被关掉
	cfg := testConfig()
	cfg.Rules.MaxDutiesPerDay = 0
	assignments := []*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Wed", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
	}
	conflicts := detector.DetectAll(assignments, testTeachers(), cfg)

	if len(conflicts) != 0 {
		t.Errorf("Expected no conflicts with checks disabled, got %d", len(conflicts))
	}
}

func TestDetectForAssignment(t *testing.T) {
	detector := NewConflictDetector(&DetectorConfig{CheckAvailability: true, CheckCaps: true})

	existing := []*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
	}
	// T001 同一节次再排一处
	newAssignment := &model.DutyAssignment{
		TeacherCode: "T001", Day: "Mon", BreakID: "b1", BreakIndex: 1, ZoneID: "z2",
	}

	conflicts := detector.DetectForAssignment(newAssignment, existing, testTeachers(), testConfig())

	if !hasConflict(conflicts, ConflictDoubleBooking) {
		t.Error("Expected double booking for appended assignment")
	}
	// 只返回该老师相关的冲突
	for _, c := range conflicts {
		if c.TeacherCode != "" && c.TeacherCode != "T001" {
			t.Errorf("Expected only T001 conflicts, got %s", c.TeacherCode)
		}
	}
}
