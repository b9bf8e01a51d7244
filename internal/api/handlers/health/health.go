package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cookit-backend/internal/pkg/common"
)

// Check 就緒檢查項目
type Check func(ctx context.Context) error

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Provider  string         `json:"provider"`
	Uptime    string         `json:"uptime"`
	Runtime   map[string]any `json:"runtime"`
}

// Handler 健康檢查處理器
type Handler struct {
	version   string
	provider  string
	startedAt time.Time
	checks    map[string]Check
}

// NewHandler 創建健康檢查處理器
func NewHandler(version, provider string, checks map[string]Check) *Handler {
	return &Handler{
		version:   version,
		provider:  provider,
		startedAt: time.Now(),
		checks:    checks,
	}
}

// Banner 根路徑回應
func (h *Handler) Banner(c *gin.Context) {
	c.String(http.StatusOK, "Cookit backend is running")
}

// HealthCheck 健康檢查
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Provider:  h.provider,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Runtime: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc":  m.Alloc,
				"sys":    m.Sys,
				"num_gc": m.NumGC,
			},
		},
	})
}

// ReadinessCheck 就緒檢查，任一檢查失敗回傳 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			common.LogWarn("Readiness check failed",
				zap.String("check", name),
				zap.Error(err),
			)
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"failed": failed,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
