// PaiKe 排课引擎服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paike/paike/internal/config"
	"github.com/paike/paike/internal/database"
	"github.com/paike/paike/internal/handler"
	"github.com/paike/paike/internal/metrics"
	"github.com/paike/paike/internal/middleware"
	"github.com/paike/paike/internal/repository"
	"github.com/paike/paike/pkg/logger"
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

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: "console",
	})

	fmt.Printf("PaiKe 排课引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// 数据库可选：未配置时引擎仍可无持久化运行
	var runs *repository.RunRepository
	if os.Getenv("DB_ENABLED") == "true" {
		db, err := database.New(&cfg.Database)
		if err != nil {
			logger.Error().Err(err).Msg("数据库连接失败")
			os.Exit(1)
		}
		defer db.Close()

		runs = repository.NewRunRepository(db)
		if err := runs.Migrate(context.Background()); err != nil {
			logger.Error().Err(err).Msg("数据库迁移失败")
			os.Exit(1)
		}
	}

	timetableHandler := handler.NewTimetableHandler(cfg, runs)
	runsHandler := handler.NewRunsHandler(runs)

	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"paike"}`))
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// ========================================
	// API v1 端点
	// ========================================

	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "PaiKe 排课引擎 API v1",
			"endpoints": {
				"timetable": {
					"generate": "POST /api/v1/timetable/generate",
					"validate": "POST /api/v1/timetable/validate",
					"explain": "POST /api/v1/timetable/explain",
					"diagnose": "POST /api/v1/timetable/diagnose"
				},
				"constraints": {
					"library": "GET /api/v1/constraints/library"
				},
				"stats": {
					"fairness": "POST /api/v1/stats/fairness",
					"coverage": "POST /api/v1/stats/coverage"
				},
				"runs": {
					"list": "GET /api/v1/runs",
					"get": "GET /api/v1/runs/{id}",
					"delete": "DELETE /api/v1/runs/{id}"
				}
			}
		}`))
	})

	// 排课 API
	mux.HandleFunc("/api/v1/timetable/generate", timetableHandler.Generate)
	mux.HandleFunc("/api/v1/timetable/validate", timetableHandler.Validate)
	mux.HandleFunc("/api/v1/timetable/explain", timetableHandler.Explain)
	mux.HandleFunc("/api/v1/timetable/diagnose", timetableHandler.Diagnose)

	// 约束库 API - 返回引擎支持的所有规则及参数定义
	mux.HandleFunc("/api/v1/constraints/library", handler.RuleLibraryHandler)

	// 统计分析 API
	mux.HandleFunc("/api/v1/stats/fairness", handler.FairnessHandler)
	mux.HandleFunc("/api/v1/stats/coverage", handler.CoverageHandler)

	// 历史运行 API
	mux.HandleFunc("GET /api/v1/runs", runsHandler.List)
	mux.HandleFunc("GET /api/v1/runs/{id}", runsHandler.Get)
	mux.HandleFunc("DELETE /api/v1/runs/{id}", runsHandler.Delete)

	// Prometheus 指标端点
	mux.Handle(cfg.Metrics.Path, metrics.Handler())

	// 中间件执行顺序：recovery -> requestID -> rateLimit -> cors -> logging -> handler
	limiter := middleware.NewRateLimiter(float64(cfg.API.RateLimit))
	root := middleware.Chain(mux,
		middleware.Recovery,
		middleware.RequestID,
		middleware.RateLimit(limiter, "/health", cfg.Metrics.Path),
		middleware.CORS,
		middleware.Logging,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Str("api_docs", fmt.Sprintf("http://localhost:%d/api/v1/", cfg.App.Port)).
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
