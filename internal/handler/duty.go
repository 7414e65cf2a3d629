// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhiban/zhiban/internal/metrics"
	"github.com/zhiban/zhiban/internal/repository"
	"github.com/zhiban/zhiban/pkg/candidate"
	"github.com/zhiban/zhiban/pkg/errors"
	"github.com/zhiban/zhiban/pkg/logger"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/roster"
	"github.com/zhiban/zhiban/pkg/solver"
	"github.com/zhiban/zhiban/pkg/solver/constraint"
)

// DutyHandler 值班排班处理器
// 仓储依赖可为 nil：此时请求必须自带老师课表与值班配置
type DutyHandler struct {
	engine   *solver.Engine
	teachers *repository.TeacherRepository
	configs  *repository.DutyConfigRepository
	solves   *repository.SolveRepository

	// 求解互斥：同一时刻只处理一个求解请求
	solveMu sync.Mutex
}

// NewDutyHandler 创建值班处理器
func NewDutyHandler(engine *solver.Engine, teachers *repository.TeacherRepository, configs *repository.DutyConfigRepository, solves *repository.SolveRepository) *DutyHandler {
	return &DutyHandler{
		engine:   engine,
		teachers: teachers,
		configs:  configs,
		solves:   solves,
	}
}

// SolveRequest 求解请求
// teachers/config 省略时从数据库加载（已确认课表 + 当前生效配置）
type SolveRequest struct {
	Teachers []*model.Teacher   `json:"teachers,omitempty"`
	Config   *model.DutyConfig  `json:"config,omitempty"`
	Pinned   []model.PinnedDuty `json:"pinned,omitempty"`
	Options  *SolveOptions      `json:"options,omitempty"`
	Persist  bool               `json:"persist,omitempty"`
}

// SolveOptions 求解选项
type SolveOptions struct {
	Timeout int `json:"timeout_seconds,omitempty"`
}

// SolveResponse 求解响应
type SolveResponse struct {
	Success   bool                    `json:"success"`
	RunID     string                  `json:"run_id"`
	Status    string                  `json:"status"`
	Solution  []*model.DutyAssignment `json:"solution"`
	Stats     *model.SolutionStats    `json:"stats"`
	Objective float64                 `json:"objective"`
	Duration  string                  `json:"duration"`
	Message   string                  `json:"message,omitempty"`
}

// Solve 求解一周值班方案
func (h *DutyHandler) Solve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	// 排班结果会作为整体写回，串行处理避免互相覆盖
	if !h.solveMu.TryLock() {
		respondError(w, errors.New(errors.CodeAlreadyExists, "已有求解任务在执行，请稍后重试"))
		return
	}
	defer h.solveMu.Unlock()

	teachers, cfg, appErr := h.resolveInputs(r.Context(), &req)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	timeout := 60 * time.Second
	if req.Options != nil && req.Options.Timeout > 0 {
		timeout = time.Duration(req.Options.Timeout) * time.Second
	}
	solveCtx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	out, err := h.engine.Solve(solveCtx, &solver.Input{
		Teachers: teachers,
		Config:   cfg,
		Pinned:   req.Pinned,
	})
	if err != nil {
		respondError(w, toAppError(err))
		return
	}

	metrics.RecordSolve(out.Stats.StatusStr, out.Duration)
	metrics.SetSolutionObjective(out.Objective)

	if req.Persist && h.solves != nil {
		if err := h.persistResult(r.Context(), out); err != nil {
			logger.Error().Err(err).Str("run_id", out.RunID).Msg("求解结果入库失败")
		}
	}

	respondJSON(w, http.StatusOK, SolveResponse{
		Success:   out.Status == "success",
		RunID:     out.RunID,
		Status:    out.Stats.StatusStr,
		Solution:  out.Assignments,
		Stats:     out.Stats,
		Objective: out.Objective,
		Duration:  out.Duration.String(),
		Message:   out.Message,
	})
}

// resolveInputs 补齐求解输入：请求自带的优先，缺失的从数据库加载
func (h *DutyHandler) resolveInputs(ctx context.Context, req *SolveRequest) ([]*model.Teacher, *model.DutyConfig, *errors.AppError) {
	teachers := req.Teachers
	if len(teachers) == 0 {
		if h.teachers == nil {
			return nil, nil, errors.New(errors.CodeInvalidInput, "老师列表不能为空")
		}
		records, err := h.teachers.ListVerified(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeDatabaseError, "加载老师课表失败")
		}
		if len(records) == 0 {
			return nil, nil, errors.New(errors.CodeInvalidInput, "没有已确认课表的老师")
		}
		teachers = make([]*model.Teacher, len(records))
		for i, rec := range records {
			teachers[i] = rec.ToTeacher()
		}
	}

	cfg := req.Config
	if cfg == nil {
		if h.configs == nil {
			return nil, nil, errors.New(errors.CodeInvalidInput, "值班配置不能为空")
		}
		rec, err := h.configs.GetActive(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeDatabaseError, "加载值班配置失败")
		}
		cfg = rec.Config
	}

	return teachers, cfg, nil
}

// persistResult 求解结果入库
func (h *DutyHandler) persistResult(ctx context.Context, out *solver.Output) error {
	runID, err := uuid.Parse(out.RunID)
	if err != nil {
		return err
	}
	solution := make([]model.DutyAssignment, len(out.Assignments))
	for i, a := range out.Assignments {
		solution[i] = *a
	}
	return h.solves.Create(ctx, &model.SolveRecord{
		RunID:       runID,
		Status:      out.Stats.StatusStr,
		TotalDuties: out.Stats.TotalDuties,
		Solution:    solution,
	})
}

// CandidatesRequest 候选评分请求（POST形式，自带数据）
type CandidatesRequest struct {
	Teachers    []*model.Teacher        `json:"teachers,omitempty"`
	Config      *model.DutyConfig       `json:"config,omitempty"`
	Assignments []*model.DutyAssignment `json:"assignments,omitempty"`
	Day         string                  `json:"day"`
	BreakIndex  int                     `json:"break_index"`
	ZoneID      string                  `json:"zone_id"`
}

// CandidatesResponse 候选评分响应
type CandidatesResponse struct {
	Success    bool                  `json:"success"`
	Day        string                `json:"day"`
	BreakIndex int                   `json:"break_index"`
	ZoneID     string                `json:"zone_id"`
	Candidates []candidate.Candidate `json:"candidates"`
}

// Candidates 候选老师评分
// GET 使用查询参数并从数据库加载课表、配置和最近一次排班结果；
// POST 使用请求体自带的数据，便于前端在未落库的草稿方案上查询
func (h *DutyHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.candidatesFromStore(w, r)
	case http.MethodPost:
		h.candidatesFromBody(w, r)
	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET或POST方法"))
	}
}

func (h *DutyHandler) candidatesFromStore(w http.ResponseWriter, r *http.Request) {
	if h.teachers == nil || h.configs == nil {
		respondError(w, errors.New(errors.CodeInvalidInput, "服务未连接数据库，请使用POST并在请求体中提供数据"))
		return
	}

	q := r.URL.Query()
	day := q.Get("day")
	zoneID := q.Get("zone_id")
	breakIndex, err := strconv.Atoi(q.Get("break_index"))
	if err != nil {
		respondError(w, errors.InvalidInput("break_index", "必须为整数"))
		return
	}

	records, err := h.teachers.ListVerified(r.Context())
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "加载老师课表失败"))
		return
	}
	teachers := make([]*model.Teacher, len(records))
	for i, rec := range records {
		teachers[i] = rec.ToTeacher()
	}

	cfgRec, err := h.configs.GetActive(r.Context())
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "加载值班配置失败"))
		return
	}

	// 基于最近一次排班结果评估"该时段已有值班"等状态
	var assignments []*model.DutyAssignment
	if h.solves != nil {
		if latest, err := h.solves.GetLatest(r.Context()); err == nil {
			assignments = make([]*model.DutyAssignment, len(latest.Solution))
			for i := range latest.Solution {
				assignments[i] = &latest.Solution[i]
			}
		}
	}

	h.scoreAndRespond(w, teachers, cfgRec.Config, assignments, candidate.Query{
		Day:        day,
		BreakIndex: breakIndex,
		ZoneID:     zoneID,
	})
}

func (h *DutyHandler) candidatesFromBody(w http.ResponseWriter, r *http.Request) {
	var req CandidatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if len(req.Teachers) == 0 {
		respondError(w, errors.New(errors.CodeInvalidInput, "老师列表不能为空"))
		return
	}
	if req.Config == nil {
		respondError(w, errors.New(errors.CodeInvalidInput, "值班配置不能为空"))
		return
	}

	h.scoreAndRespond(w, req.Teachers, req.Config, req.Assignments, candidate.Query{
		Day:        req.Day,
		BreakIndex: req.BreakIndex,
		ZoneID:     req.ZoneID,
	})
}

func (h *DutyHandler) scoreAndRespond(w http.ResponseWriter, teachers []*model.Teacher, cfg *model.DutyConfig, assignments []*model.DutyAssignment, q candidate.Query) {
	if err := cfg.Validate(); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "值班配置无效"))
		return
	}

	dutyCtx := constraint.NewContext(teachers, cfg)
	dutyCtx.Targets = roster.Targets(teachers, dutyCtx.TotalRequired())
	dutyCtx.SetAssignments(assignments)

	scorer := candidate.NewScorer(cfg.Rules)
	candidates, err := scorer.ScoreCandidates(dutyCtx, q)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}

	metrics.RecordCandidateQuery()

	respondJSON(w, http.StatusOK, CandidatesResponse{
		Success:    true,
		Day:        q.Day,
		BreakIndex: q.BreakIndex,
		ZoneID:     q.ZoneID,
		Candidates: candidates,
	})
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}

// toAppError 统一错误类型
func toAppError(err error) *errors.AppError {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr
	}
	return errors.Wrap(err, errors.CodeInternal, "内部错误")
}
