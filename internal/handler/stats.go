// Package handler 提供API处理器
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/zhiban/zhiban/internal/metrics"
	"github.com/zhiban/zhiban/pkg/errors"
	"github.com/zhiban/zhiban/pkg/logger"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/roster"
	"github.com/zhiban/zhiban/pkg/stats"
	"github.com/zhiban/zhiban/pkg/validator"
)

// StatsRequest 统计请求
type StatsRequest struct {
	Teachers    []*model.Teacher        `json:"teachers"`
	Config      *model.DutyConfig       `json:"config"`
	Assignments []*model.DutyAssignment `json:"assignments"`
}

// FairnessResponse 公平性响应
type FairnessResponse struct {
	Success bool                   `json:"success"`
	Data    *stats.FairnessMetrics `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// CoverageResponse 覆盖率响应
type CoverageResponse struct {
	Success bool                   `json:"success"`
	Data    *stats.CoverageMetrics `json:"data,omitempty"`
	Report  string                 `json:"report,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// ConflictsResponse 冲突检测响应
type ConflictsResponse struct {
	Success   bool                 `json:"success"`
	IsValid   bool                 `json:"is_valid"`
	Conflicts []validator.Conflict `json:"conflicts"`
	Error     string               `json:"error,omitempty"`
}

// GetFairnessHandler 公平性分析API
func GetFairnessHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStatsRequest(w, r)
	if !ok {
		return
	}

	logger.Info().
		Int("teachers", len(req.Teachers)).
		Int("assignments", len(req.Assignments)).
		Msg("接收公平性分析请求")

	targets := roster.Targets(req.Teachers, totalRequired(req.Config))

	analyzer := stats.NewFairnessAnalyzer()
	m := analyzer.Analyze(req.Assignments, req.Teachers, req.Config, targets)

	metrics.SetFairnessGini("duty", m.DutyGini)
	metrics.SetFairnessGini("long_break", m.LongBreakGini)
	metrics.SetFairnessGini("edge", m.EdgeGini)

	respondJSON(w, http.StatusOK, FairnessResponse{Success: true, Data: m})
}

// GetCoverageHandler 覆盖率分析API
func GetCoverageHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStatsRequest(w, r)
	if !ok {
		return
	}

	logger.Info().
		Int("assignments", len(req.Assignments)).
		Msg("接收覆盖率分析请求")

	analyzer := stats.NewCoverageAnalyzer()
	m := analyzer.Analyze(req.Config, req.Assignments)

	metrics.SetCoverageRate(m.OverallCoverage)

	respondJSON(w, http.StatusOK, CoverageResponse{
		Success: true,
		Data:    m,
		Report:  analyzer.GenerateCoverageReport(m),
	})
}

// GetConflictsHandler 冲突检测API：对一份方案做全量硬约束审计
func GetConflictsHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStatsRequest(w, r)
	if !ok {
		return
	}

	logger.Info().
		Int("teachers", len(req.Teachers)).
		Int("assignments", len(req.Assignments)).
		Msg("接收冲突检测请求")

	detector := validator.NewConflictDetector(validator.DefaultDetectorConfig())
	conflicts := detector.DetectAll(req.Assignments, req.Teachers, req.Config)

	isValid := true
	for _, c := range conflicts {
		if c.Severity == "error" {
			isValid = false
			break
		}
	}

	respondJSON(w, http.StatusOK, ConflictsResponse{
		Success:   true,
		IsValid:   isValid,
		Conflicts: conflicts,
	})
}

// decodeStatsRequest 解析并校验统计请求体
func decodeStatsRequest(w http.ResponseWriter, r *http.Request) (*StatsRequest, bool) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return nil, false
	}

	var req StatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return nil, false
	}
	if req.Config == nil {
		respondError(w, errors.New(errors.CodeInvalidInput, "值班配置不能为空"))
		return nil, false
	}
	if err := req.Config.Validate(); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "值班配置无效"))
		return nil, false
	}
	return &req, true
}

// totalRequired 统计一周需求总人次
// 只累计配置中实际存在的区域×课间，悬空的需求条目不计入
func totalRequired(cfg *model.DutyConfig) int {
	perDay := 0
	for _, z := range cfg.Zones {
		for _, b := range cfg.Breaks {
			perDay += cfg.Requirements.Count(z.ID, b.ID)
		}
	}
	return perDay * len(model.Weekdays)
}
