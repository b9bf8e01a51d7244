package middleware

import (
	"context"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"cookit-backend/internal/pkg/common"
)

// RequestContext 設定請求逾時並把請求 ID 放入 context，供核心層日誌使用
func RequestContext(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		ctx = common.WithRequestID(ctx, requestid.Get(c))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
