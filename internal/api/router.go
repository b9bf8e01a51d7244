package api

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cookit-backend/internal/api/handlers/health"
	recipeHandler "cookit-backend/internal/api/handlers/recipe"
	"cookit-backend/internal/api/middleware"
	"cookit-backend/internal/core/ai/gateway"
	"cookit-backend/internal/core/ai/provider"
	"cookit-backend/internal/core/ratelimit"
	recipeService "cookit-backend/internal/core/recipe"
	"cookit-backend/internal/infrastructure/config"
	"cookit-backend/internal/pkg/common"
)

// Dependencies 路由使用的外部資源，由呼叫端建立並負責關閉
type Dependencies struct {
	Provider provider.Provider
	Limiter  *ratelimit.Limiter // nil 表示不限流

	// NormalizerOptions 額外的正規化設定（例如固定隨機選擇）
	NormalizerOptions []recipeService.NormalizerOption
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Provider == nil {
		return nil, fmt.Errorf("generation provider is required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化服務
	recipeSvc, err := recipeService.NewRecipeServiceFromConfig(cfg, gateway.New(deps.Provider), deps.NormalizerOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize recipe service: %w", err)
	}
	recipeH := recipeHandler.NewHandler(recipeSvc, cfg.App.Debug)

	checks := map[string]health.Check{}
	if deps.Limiter != nil {
		checks["rate_limit"] = deps.Limiter.Ping
	}
	healthH := health.NewHandler(cfg.App.Version, deps.Provider.Name(), checks)

	// 創建路由引擎
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// 限流以 ClientIP 識別來源，只有受信任的代理能改寫來源位址
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}))

	// 請求體大小限制與逾時
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.RequestContext(cfg.Server.RequestTimeout))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(common.ErrNotFound.Status, common.ErrNotFound.Response(false))
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(common.ErrMethodNotAllowed.Status, common.ErrMethodNotAllowed.Response(false))
	})

	// 健康檢查路由
	router.GET("/", healthH.Banner)
	router.GET("/health", healthH.HealthCheck)
	router.GET("/ready", healthH.ReadinessCheck)
	router.GET("/live", healthH.LivenessCheck)

	// 食譜路由在解析請求前先限流
	recipeChain := []gin.HandlerFunc{}
	if deps.Limiter != nil {
		recipeChain = append(recipeChain, middleware.RateLimit(deps.Limiter))
	}
	recipeChain = append(recipeChain, recipeH.HandleGenerate)

	router.POST("/recipe", recipeChain...)
	api := router.Group("/api/v1")
	{
		api.POST("/recipe", recipeChain...)
	}

	common.LogInfo("Router setup completed successfully",
		zap.String("provider", deps.Provider.Name()),
		zap.Bool("rate_limit_enabled", deps.Limiter != nil),
		zap.String("duration_policy", cfg.Pipeline.DurationPolicy),
		zap.String("refusal_policy", cfg.Pipeline.RefusalPolicy),
		zap.String("allow_list_policy", cfg.Pipeline.AllowListPolicy),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Strings("trusted_proxies", cfg.Server.TrustedProxies),
	)

	return router, nil
}
