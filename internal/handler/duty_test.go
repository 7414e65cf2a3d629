package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhiban/zhiban/pkg/candidate"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/solver"
)

func handlerConfig() *model.DutyConfig {
	return &model.DutyConfig{
		Zones: []model.Zone{
			{ID: "z1", Name: "一楼走廊"},
		},
		Breaks: []model.Break{
			{ID: "b1", Name: "第一节后", AfterLesson: 1, Duration: 10},
		},
		Requirements: model.Requirements{
			"z1": {"b1": 2},
		},
		Rules: model.DefaultRules(),
		Topology: map[string][]string{
			"z1": {"R101", "R102"},
		},
		Proximity: map[string][]string{},
	}
}

func handlerTeachers() []*model.Teacher {
	// 两位老师周一均有夹心课（课间前后都有课），教室都在z1
	return []*model.Teacher{
		{
			TeacherCode: "T001",
			TeacherName: "陈老师",
			Schedule: []model.LessonSlot{
				{Day: "Mon", LessonIndex: 1, RoomCode: "R101", Subject: "数学", GroupCode: "1A"},
				{Day: "Mon", LessonIndex: 2, RoomCode: "R101", Subject: "数学", GroupCode: "1B"},
			},
		},
		{
			TeacherCode: "T002",
			TeacherName: "李老师",
			Schedule: []model.LessonSlot{
				{Day: "Mon", LessonIndex: 1, RoomCode: "R102", Subject: "语文", GroupCode: "2A"},
				{Day: "Mon", LessonIndex: 2, RoomCode: "R102", Subject: "语文", GroupCode: "2B"},
			},
		},
	}
}

// 每人3次值班，周需求10人次（目标每人5次）：低于目标的老师不应被标记超额
func TestCandidates_FairnessAgainstTargets(t *testing.T) {
	h := NewDutyHandler(solver.NewEngine(nil), nil, nil, nil)

	existing := []*model.DutyAssignment{
		{TeacherCode: "T001", Day: "Tue", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
		{TeacherCode: "T001", Day: "Wed", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
		{TeacherCode: "T001", Day: "Thu", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
		{TeacherCode: "T002", Day: "Tue", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
		{TeacherCode: "T002", Day: "Wed", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
		{TeacherCode: "T002", Day: "Thu", BreakID: "b1", BreakIndex: 1, ZoneID: "z1"},
	}

	body, err := json.Marshal(CandidatesRequest{
		Teachers:    handlerTeachers(),
		Config:      handlerConfig(),
		Assignments: existing,
		Day:         "Mon",
		BreakIndex:  1,
		ZoneID:      "z1",
	})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/duty/candidates", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Candidates(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CandidatesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(resp.Candidates))
	}

	for _, c := range resp.Candidates {
		if c.Status != candidate.StatusOK {
			t.Errorf("Expected OK status for %s, got %s (%s)", c.TeacherCode, c.Status, c.Reason)
		}
		// 两人都低于目标（3/5），不应出现超额警告
		if c.Reason == "值班次数已超出目标" {
			t.Errorf("Expected no over-target warning for %s below target", c.TeacherCode)
		}
	}
}

func TestCandidates_GetWithoutStore(t *testing.T) {
	h := NewDutyHandler(solver.NewEngine(nil), nil, nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/duty/candidates?day=Mon&break_index=1&zone_id=z1", nil)
	rec := httptest.NewRecorder()
	h.Candidates(rec, req)

	// 未连接数据库时GET应明确报错而非空结果
	if rec.Code == http.StatusOK {
		t.Errorf("Expected error status without database, got %d", rec.Code)
	}
}

// 需求条目引用不存在的区域或课间时不计入总需求
func TestTotalRequired_IgnoresDanglingEntries(t *testing.T) {
	cfg := handlerConfig()
	cfg.Requirements = model.Requirements{
		"z1": {"b1": 2, "b9": 7}, // b9 不存在
		"z9": {"b1": 4},          // z9 不存在
	}

	if got := totalRequired(cfg); got != 10 {
		t.Errorf("Expected total 10 over the week, got %d", got)
	}
}
