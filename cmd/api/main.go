package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cookit-backend/internal/api"
	"cookit-backend/internal/infrastructure/config"
	"cookit-backend/internal/pkg/common"
)

func main() {
	// 載入設定（包含選用的 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir, cfg.App.Name); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	common.LogInfo("starting application",
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
		zap.Bool("debug", cfg.App.Debug),
		zap.String("provider", cfg.AI.Provider),
	)

	// run 返回時所有資源都已釋放
	if err := run(cfg); err != nil {
		common.LogError("Server stopped with error", zap.Error(err))
		common.Sync()
		os.Exit(1)
	}

	common.LogInfo("server exited")
	common.Sync()
}

func run(cfg *config.Config) error {
	// 生成服務客戶端在第一次請求時才建立
	generator := api.NewProvider(cfg)
	defer func() {
		if err := generator.Close(); err != nil {
			common.LogWarn("Failed to close provider", zap.Error(err))
		}
	}()

	// 初始化限流器
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	limiter, err := api.NewLimiter(startupCtx, cfg)
	cancelStartup()
	if err != nil {
		return fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	if limiter != nil {
		defer func() {
			if err := limiter.Close(); err != nil {
				common.LogWarn("Failed to close rate limiter", zap.Error(err))
			}
		}()
	}

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Provider: generator,
		Limiter:  limiter,
	})
	if err != nil {
		return fmt.Errorf("failed to setup router: %w", err)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		common.LogInfo("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// 等待中斷信號或啟動失敗
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	common.LogInfo("shutting down server...")

	// 等待進行中的生成請求完成
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.RequestTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
