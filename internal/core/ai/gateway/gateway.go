// Package gateway 對生成服務發出單次呼叫並限制等待時間
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cookit-backend/internal/core/ai"
	"cookit-backend/internal/core/ai/provider"
	"cookit-backend/internal/pkg/common"
)

// DefaultTimeout 方案未設定逾時時使用
const DefaultTimeout = 30 * time.Second

// Gateway 生成服務閘道
type Gateway struct {
	provider provider.Provider
}

type outcome struct {
	payload *ai.RawPayload
	err     error
}

// New 創建閘道，provider 由呼叫端建立並在整個行程中共用
func New(p provider.Provider) *Gateway {
	return &Gateway{provider: p}
}

// Generate 以方案參數發出一次生成請求。
// 呼叫與計時器競賽，先完成者勝出；逾時後進行中的呼叫不會被取消，其結果直接丟棄。
func (g *Gateway) Generate(ctx context.Context, prompt string, profile ai.Profile) (*ai.RawPayload, error) {
	timeout := profile.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	req := &provider.Request{
		Model:          profile.Model,
		Input:          prompt,
		Temperature:    profile.Temperature,
		ResponseFormat: provider.ResponseFormatJSONObject,
	}
	requestID := common.RequestIDFromContext(ctx)

	// 緩衝為 1，輸掉競賽的呼叫仍可寫入後結束
	done := make(chan outcome, 1)
	callCtx := context.WithoutCancel(ctx)
	start := time.Now()
	go func() {
		payload, err := g.provider.Generate(callCtx, req)
		done <- outcome{payload: payload, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		err := out.err
		if err == nil && (out.payload == nil || (out.payload.Structured == nil && out.payload.Text == "")) {
			err = errors.New("empty payload")
		}
		common.LogAICall(g.provider.Name(), profile.Model, time.Since(start), err, requestID)
		if err != nil {
			return nil, common.ErrAIServiceError.WithErr(err)
		}
		common.LogDebug("generation usage",
			zap.String("request_id", requestID),
			zap.String("tier", profile.Name),
			zap.Int("total_tokens", out.payload.Usage.TotalTokens),
		)
		return out.payload, nil

	case <-timer.C:
		err := common.ErrGenerationTimeout.WithErr(fmt.Errorf("no response from %s within %s", g.provider.Name(), timeout))
		common.LogAICall(g.provider.Name(), profile.Model, time.Since(start), err, requestID)
		return nil, err

	case <-ctx.Done():
		common.LogWarn("request ended before generation finished",
			zap.String("request_id", requestID),
			zap.Error(ctx.Err()),
		)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, common.ErrGenerationTimeout.WithErr(ctx.Err())
		}
		return nil, common.ErrAIServiceError.WithErr(ctx.Err())
	}
}
