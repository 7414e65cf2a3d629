// ZhiBan 课间值班排班引擎服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/zhiban/zhiban/internal/config"
	"github.com/zhiban/zhiban/internal/database"
	"github.com/zhiban/zhiban/internal/handler"
	"github.com/zhiban/zhiban/internal/metrics"
	"github.com/zhiban/zhiban/internal/repository"
	"github.com/zhiban/zhiban/pkg/logger"
	"github.com/zhiban/zhiban/pkg/solver"
	"github.com/zhiban/zhiban/pkg/solver/optimizer"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	format := "console"
	if cfg.IsProduction() {
		format = "json"
	}
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: format,
	})

	// 打印版本信息
	fmt.Printf("ZhiBan 值班排班引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// 连接数据库（可选：连不上时以无持久化模式运行，求解接口仍可用）
	var teacherRepo *repository.TeacherRepository
	var configRepo *repository.DutyConfigRepository
	var solveRepo *repository.SolveRepository

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Warn().Err(err).Msg("数据库连接失败，以无持久化模式启动")
	} else {
		defer db.Close()
		if err := db.Migrate(context.Background()); err != nil {
			logger.Error().Err(err).Msg("数据库迁移失败")
			os.Exit(1)
		}
		teacherRepo = repository.NewTeacherRepository(db)
		configRepo = repository.NewDutyConfigRepository(db)
		solveRepo = repository.NewSolveRepository(db)
	}

	// 创建求解引擎
	optCfg := optimizer.DefaultOptConfig()
	optCfg.MaxTime = cfg.Solver.DefaultTimeout
	optCfg.MaxIterations = cfg.Solver.MaxIterations
	optCfg.NeighborhoodSize = cfg.Solver.NeighborhoodSize
	optCfg.ParallelWorkers = cfg.Solver.ParallelWorkers
	optCfg.Seed = cfg.Solver.Seed
	engine := solver.NewEngine(&solver.Options{
		Optimization:       optCfg,
		EnableOptimization: true,
	})

	// 创建处理器
	dutyHandler := handler.NewDutyHandler(engine, teacherRepo, configRepo, solveRepo)

	// 创建 HTTP 服务器
	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, `{"status":"degraded","service":"zhiban","database":"%v"}`, err)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"zhiban"}`))
	})

	// 版本信息端点
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// ========================================
	// API v1 端点
	// ========================================

	// API 根路由
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "ZhiBan 值班排班引擎 API v1",
			"endpoints": {
				"duty": {
					"solve": "POST /api/v1/duty/solve",
					"candidates": "GET /api/v1/duty/candidates?day=Mon&break_index=2&zone_id=z1"
				},
				"rules": {
					"library": "GET /api/v1/rules/library"
				},
				"stats": {
					"fairness": "POST /api/v1/stats/fairness",
					"coverage": "POST /api/v1/stats/coverage",
					"conflicts": "POST /api/v1/stats/conflicts"
				}
			}
		}`))
	})

	// 值班求解 API
	mux.HandleFunc("/api/v1/duty/solve", dutyHandler.Solve)

	// 候选老师评分 API
	mux.HandleFunc("/api/v1/duty/candidates", dutyHandler.Candidates)

	// 约束库 API - 返回后端支持的所有约束及参数定义
	mux.HandleFunc("/api/v1/rules/library", handleRulesLibrary)

	// ========================================
	// 统计分析 API
	// ========================================

	// 公平性分析 API
	mux.HandleFunc("/api/v1/stats/fairness", handler.GetFairnessHandler)

	// 覆盖率分析 API
	mux.HandleFunc("/api/v1/stats/coverage", handler.GetCoverageHandler)

	// 冲突检测 API
	mux.HandleFunc("/api/v1/stats/conflicts", handler.GetConflictsHandler)

	// ========================================
	// 监控端点
	// ========================================

	// Prometheus 指标端点
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// ========================================
	// 中间件
	// ========================================

	// 中间件执行顺序：requestID -> rateLimit -> cors -> logging -> handler
	limiter := NewRateLimiter(float64(cfg.API.RateLimit))
	root := requestIDMiddleware(rateLimitMiddleware(limiter, corsMiddleware(loggingMiddleware(mux))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// requestIDMiddleware 请求ID追踪中间件
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), "request_id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware 日志中间件
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID, _ := r.Context().Value("request_id").(string)

		// 包装ResponseWriter以捕获状态码
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", duration).
			Msg("请求处理")

		// 记录Prometheus指标
		metrics.RecordRequestMetrics(r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// responseWriter 包装ResponseWriter以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RateLimiter 简单的令牌桶限流器
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // 每秒添加的令牌数
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter 创建限流器
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return &RateLimiter{
		tokens:     requestsPerSecond,
		maxTokens:  requestsPerSecond * 2, // 允许突发流量
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// rateLimitMiddleware 限流中间件
func rateLimitMiddleware(rl *RateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   true,
				"code":    "RATE_LIMITED",
				"message": "请求过于频繁，请稍后重试",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware CORS中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RuleParam 规则参数定义
type RuleParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int
	Description string `json:"description"`
	Default     string `json:"default"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// RuleDefinition 约束定义
type RuleDefinition struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Type        string      `json:"type"` // hard/soft
	Description string      `json:"description"`
	Params      []RuleParam `json:"params"`
}

// RulesLibraryResponse 约束库响应
type RulesLibraryResponse struct {
	Library []RuleDefinition `json:"library"`
}

// handleRulesLibrary 处理约束库请求 - 返回后端支持的所有约束定义
func handleRulesLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	library := []RuleDefinition{
		// ========================================
		// 硬约束
		// ========================================
		{
			Name:        "availability",
			DisplayName: "在场可用性",
			Type:        "hard",
			Description: "老师只能在课间前后至少一侧有课时值班；连堂课跨过课间时不可值班。手动锁定的值班不受此限制。",
			Params:      []RuleParam{},
		},
		{
			Name:        "single_place",
			DisplayName: "单处值班",
			Type:        "hard",
			Description: "同一老师在同一课间只能出现在一个区域。",
			Params:      []RuleParam{},
		},
		{
			Name:        "max_duties_per_day",
			DisplayName: "每日值班上限",
			Type:        "hard",
			Description: "限制老师每天的值班次数。",
			Params: []RuleParam{
				{Name: "max_duties_per_day", Type: "int", Description: "每日上限", Default: "2", Min: "1", Max: "9"},
			},
		},
		{
			Name:        "max_long_break_duties",
			DisplayName: "长课间值班上限",
			Type:        "hard",
			Description: "限制老师每周承担长课间（大课间、午休等）值班的次数。",
			Params: []RuleParam{
				{Name: "max_long_break_duties", Type: "int", Description: "每周上限", Default: "2", Min: "0", Max: "10"},
			},
		},
		{
			Name:        "max_weekly_edge_duties",
			DisplayName: "边缘值班上限",
			Type:        "hard",
			Description: "限制老师每周紧邻当日首末节课的值班次数，避免有人总是提前到校或推迟离校。",
			Params: []RuleParam{
				{Name: "max_weekly_edge_duties", Type: "int", Description: "每周上限", Default: "5", Min: "0", Max: "25"},
			},
		},
		// ========================================
		// 软约束
		// ========================================
		{
			Name:        "fairness",
			DisplayName: "值班次数公平",
			Type:        "soft",
			Description: "按教学课时比例分摊值班目标，偏离目标越多惩罚越重，超过容忍偏差时大幅加重。",
			Params: []RuleParam{
				{Name: "fairness_priority", Type: "int", Description: "公平优先度（与就近权衡）", Default: "50", Min: "0", Max: "100"},
				{Name: "max_fairness_deviation", Type: "int", Description: "容忍偏差", Default: "2", Min: "0", Max: "10"},
			},
		},
		{
			Name:        "proximity",
			DisplayName: "就近值班",
			Type:        "soft",
			Description: "优先安排任课教室落点所在区域或邻近区域的老师值班，减少课间奔波。",
			Params: []RuleParam{
				{Name: "fairness_priority", Type: "int", Description: "公平优先度（反向影响就近权重）", Default: "50", Min: "0", Max: "100"},
			},
		},
		{
			Name:        "zone_preference",
			DisplayName: "区域偏好",
			Type:        "soft",
			Description: "老师声明过偏好区域时，命中偏好给予奖励。",
			Params:      []RuleParam{},
		},
		{
			Name:        "compactness",
			DisplayName: "在校时段紧凑",
			Type:        "soft",
			Description: "惩罚边缘课间值班（课前到校或课后留校），奖励两侧都有课的夹心课间值班。",
			Params:      []RuleParam{},
		},
	}

	response := RulesLibraryResponse{Library: library}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
