package api

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cookit-backend/internal/core/ai/gemini"
	"cookit-backend/internal/core/ai/openai"
	"cookit-backend/internal/core/ai/openrouter"
	"cookit-backend/internal/core/ai/provider"
	"cookit-backend/internal/core/ratelimit"
	"cookit-backend/internal/infrastructure/config"
	"cookit-backend/internal/pkg/common"
)

// NewProvider 依設定建立延遲初始化的生成服務客戶端，整個行程共用一個實例
func NewProvider(cfg *config.Config) *provider.Lazy {
	pc := cfg.ActiveProvider()
	timeout := cfg.AI.RequestTimeout

	var factory provider.Factory
	switch cfg.AI.Provider {
	case config.ProviderOpenRouter:
		factory = func() (provider.Provider, error) {
			return openrouter.NewClient(pc.APIKey, pc.BaseURL, timeout), nil
		}
	case config.ProviderGemini:
		factory = func() (provider.Provider, error) {
			return gemini.NewClient(context.Background(), pc.APIKey, pc.BaseURL, timeout)
		}
	default:
		factory = func() (provider.Provider, error) {
			return openai.NewClient(pc.APIKey, pc.BaseURL, timeout), nil
		}
	}

	common.LogInfo("Generation provider configured",
		zap.String("provider", cfg.AI.Provider),
		zap.String("api_key", config.MaskAPIKey(pc.APIKey)),
		zap.String("standard_model", cfg.Tiers.Standard.Model),
		zap.String("premium_model", cfg.Tiers.Premium.Model),
	)
	return provider.NewLazy(cfg.AI.Provider, factory)
}

// NewLimiter 依設定建立限流器；停用時回傳 nil
func NewLimiter(ctx context.Context, cfg *config.Config) (*ratelimit.Limiter, error) {
	rl := cfg.RateLimit
	if !rl.Enabled {
		common.LogInfo("Rate limit disabled")
		return nil, nil
	}

	var counter ratelimit.Counter
	switch rl.Backend {
	case "redis":
		rc, err := ratelimit.NewRedisCounter(ctx, cfg.Redis, cfg.App.Name+":ratelimit")
		if err != nil {
			return nil, err
		}
		counter = rc
	default:
		counter = ratelimit.NewMemoryCounter(rl.CleanupInterval)
	}

	limiter, err := ratelimit.NewLimiter(counter, rl.Requests, rl.Window)
	if err != nil {
		_ = counter.Close()
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	common.LogInfo("Rate limit enabled",
		zap.String("backend", rl.Backend),
		zap.Int("requests", rl.Requests),
		zap.Duration("window", rl.Window),
	)
	return limiter, nil
}
