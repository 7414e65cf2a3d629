package model

import "testing"

func TestIsWeekday(t *testing.T) {
	for _, day := range Weekdays {
		if !IsWeekday(day) {
			t.Errorf("Expected %s to be a weekday", day)
		}
	}
	for _, day := range []string{"Sat", "Sun", "monday", ""} {
		if IsWeekday(day) {
			t.Errorf("Expected %s not to be a weekday", day)
		}
	}
}

func TestBreak_IsLong(t *testing.T) {
	short := Break{ID: "b1", AfterLesson: 1, Duration: 10}
	if short.IsLong() {
		t.Error("Expected 10min break not to be long")
	}

	long := Break{ID: "b2", AfterLesson: 4, Duration: 30}
	if !long.IsLong() {
		t.Error("Expected 30min break to be long")
	}

	// 阈值边界
	edge := Break{ID: "b3", AfterLesson: 2, Duration: LongBreakMinutes}
	if !edge.IsLong() {
		t.Errorf("Expected %dmin break to be long", LongBreakMinutes)
	}
}

func TestRequirements_Count(t *testing.T) {
	r := Requirements{
		"z1": {"b1": 2, "b2": 1},
	}

	if got := r.Count("z1", "b1"); got != 2 {
		t.Errorf("Expected 2, got %d", got)
	}
	if got := r.Count("z1", "b9"); got != 0 {
		t.Errorf("Expected 0 for unknown break, got %d", got)
	}
	if got := r.Count("z9", "b1"); got != 0 {
		t.Errorf("Expected 0 for unknown zone, got %d", got)
	}
}

func TestRules_Weights(t *testing.T) {
	tests := []struct {
		priority  int
		fairness  int
		proximity int
	}{
		{0, 100, 200},
		{50, 150, 150},
		{100, 200, 100},
		// 越界值取边界
		{-10, 100, 200},
		{150, 200, 100},
	}

	for _, tt := range tests {
		r := Rules{FairnessPriority: tt.priority}
		if got := r.FairnessWeight(); got != tt.fairness {
			t.Errorf("priority %d: expected fairness weight %d, got %d", tt.priority, tt.fairness, got)
		}
		if got := r.ProximityWeight(); got != tt.proximity {
			t.Errorf("priority %d: expected proximity weight %d, got %d", tt.priority, tt.proximity, got)
		}
	}
}

func TestDutyConfig_Validate(t *testing.T) {
	valid := &DutyConfig{
		Zones:  []Zone{{ID: "z1", Name: "一楼走廊"}},
		Breaks: []Break{{ID: "b1", Name: "第一课间", AfterLesson: 1, Duration: 10}},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid config, got error: %v", err)
	}

	noZones := &DutyConfig{Breaks: valid.Breaks}
	if err := noZones.Validate(); err == nil {
		t.Error("Expected error for config without zones")
	}

	noBreaks := &DutyConfig{Zones: valid.Zones}
	if err := noBreaks.Validate(); err == nil {
		t.Error("Expected error for config without breaks")
	}

	dupZone := &DutyConfig{
		Zones:  []Zone{{ID: "z1"}, {ID: "z1"}},
		Breaks: valid.Breaks,
	}
	if err := dupZone.Validate(); err == nil {
		t.Error("Expected error for duplicate zone ID")
	}

	negRequired := &DutyConfig{
		Zones:        valid.Zones,
		Breaks:       valid.Breaks,
		Requirements: Requirements{"z1": {"b1": -1}},
	}
	if err := negRequired.Validate(); err == nil {
		t.Error("Expected error for negative requirement")
	}
}

func TestDutyConfig_Lookups(t *testing.T) {
	cfg := &DutyConfig{
		Zones: []Zone{{ID: "z1", Name: "一楼走廊"}, {ID: "z2", Name: "操场"}},
		Breaks: []Break{
			{ID: "b1", AfterLesson: 1, Duration: 10},
			{ID: "b2", AfterLesson: 4, Duration: 30},
		},
	}

	if z := cfg.ZoneByID("z2"); z == nil || z.Name != "操场" {
		t.Errorf("Expected zone z2, got %v", z)
	}
	if z := cfg.ZoneByID("z9"); z != nil {
		t.Error("Expected nil for unknown zone")
	}

	if b := cfg.BreakByID("b1"); b == nil || b.AfterLesson != 1 {
		t.Errorf("Expected break b1, got %v", b)
	}
	if b := cfg.BreakByIndex(4); b == nil || b.ID != "b2" {
		t.Errorf("Expected break b2 for afterLesson 4, got %v", b)
	}
	if b := cfg.BreakByIndex(9); b != nil {
		t.Error("Expected nil for unknown afterLesson")
	}
}

func TestTeacher_LessonAt(t *testing.T) {
	teacher := &Teacher{
		TeacherCode: "T001",
		Schedule: []LessonSlot{
			{Day: "Mon", LessonIndex: 1, RoomCode: "R101", Subject: "数学"},
			{Day: "Mon", LessonIndex: 3, RoomCode: "R102", Subject: "数学"},
		},
	}

	if s := teacher.LessonAt("Mon", 1); s == nil || s.RoomCode != "R101" {
		t.Errorf("Expected lesson in R101, got %v", s)
	}
	if s := teacher.LessonAt("Mon", 2); s != nil {
		t.Error("Expected nil for free lesson slot")
	}
	if s := teacher.LessonAt("Tue", 1); s != nil {
		t.Error("Expected nil for day without lessons")
	}
}

func TestTeacher_LessonCount(t *testing.T) {
	teacher := &Teacher{
		Schedule: []LessonSlot{
			{Day: "Mon", LessonIndex: 1, Subject: "数学"},
			{Day: "Mon", LessonIndex: 2, Subject: ""},
			{Day: "Tue", LessonIndex: 1, Subject: "数学"},
		},
	}

	// 空科目的占位行不计入
	if got := teacher.LessonCount(); got != 2 {
		t.Errorf("Expected 2 lessons, got %d", got)
	}
}

func TestTeacher_PreferenceRank(t *testing.T) {
	teacher := &Teacher{
		Preferences: &TeacherPreferences{PreferredZones: []string{"z2", "z1"}},
	}

	if got := teacher.PreferenceRank("z2"); got != 0 {
		t.Errorf("Expected rank 0, got %d", got)
	}
	if got := teacher.PreferenceRank("z1"); got != 1 {
		t.Errorf("Expected rank 1, got %d", got)
	}
	if got := teacher.PreferenceRank("z9"); got != -1 {
		t.Errorf("Expected -1 for unlisted zone, got %d", got)
	}

	noPrefs := &Teacher{}
	if got := noPrefs.PreferenceRank("z1"); got != -1 {
		t.Errorf("Expected -1 without preferences, got %d", got)
	}
}

func TestTeacherRecord_ToTeacher(t *testing.T) {
	rec := &TeacherRecord{
		TeacherCode: "T001",
		TeacherName: "张老师",
		Schedule:    []LessonSlot{{Day: "Mon", LessonIndex: 1, Subject: "数学"}},
		ManualDuties: []PinnedDuty{
			{TeacherCode: "T001", Day: "Mon", BreakIndex: 1, ZoneID: "z1"},
		},
	}

	teacher := rec.ToTeacher()
	if teacher.TeacherCode != "T001" || teacher.TeacherName != "张老师" {
		t.Errorf("Expected identity to carry over, got %s/%s", teacher.TeacherCode, teacher.TeacherName)
	}
	if len(teacher.Schedule) != 1 || len(teacher.ManualDuties) != 1 {
		t.Error("Expected schedule and manual duties to carry over")
	}
}
