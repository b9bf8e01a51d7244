// Package openai 以 OpenAI Responses API 實作生成服務
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"cookit-backend/internal/core/ai"
	"cookit-backend/internal/core/ai/provider"
	"cookit-backend/internal/pkg/common"
)

// Client OpenAI 客戶端
type Client struct {
	client oai.Client
}

// NewClient 創建新的 OpenAI 客戶端。SDK 內建重試關閉，重試屬於呼叫端的決定。
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{client: oai.NewClient(opts...)}
}

// Name 服務名稱
func (c *Client) Name() string {
	return "openai"
}

// Generate 呼叫 Responses API
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*ai.RawPayload, error) {
	params := responses.ResponseNewParams{
		Model:       shared.ResponsesModel(req.Model),
		Input:       responses.ResponseNewParamsInputUnion{OfString: oai.String(req.Input)},
		Temperature: oai.Float(req.Temperature),
	}
	if req.ResponseFormat == provider.ResponseFormatJSONObject {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
		}
	}

	common.LogDebug("Sending request to OpenAI",
		zap.String("model", req.Model),
		zap.Float64("temperature", req.Temperature),
		zap.Int("input_length", len(req.Input)),
	)

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("openai: responses api returned status %d: %w", apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("openai: creating response: %w", err)
	}

	text := resp.OutputText()
	if text == "" {
		return nil, fmt.Errorf("openai: empty output in response %s", resp.ID)
	}

	return &ai.RawPayload{
		Text: text,
		Usage: ai.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// Close SDK 客戶端沒有需要釋放的資源
func (c *Client) Close() error {
	return nil
}
