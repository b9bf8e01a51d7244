package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"cookit-backend/internal/core/ai"
	"cookit-backend/internal/core/ai/provider"
	"cookit-backend/internal/pkg/common"
)

// Client Gemini 客戶端
type Client struct {
	client     *genai.Client
	httpClient *http.Client
}

// NewClient 創建新的 Gemini 客戶端
func NewClient(ctx context.Context, apiKey, baseURL string, timeout time.Duration) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: creating genai client: %w", err)
	}
	return &Client{client: client, httpClient: httpClient}, nil
}

// Name 服務名稱
func (c *Client) Name() string {
	return "gemini"
}

// Generate 呼叫 GenerateContent
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*ai.RawPayload, error) {
	temperature := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.ResponseFormat == provider.ResponseFormatJSONObject {
		cfg.ResponseMIMEType = "application/json"
	}

	common.LogDebug("Sending request to Gemini",
		zap.String("model", req.Model),
		zap.Float64("temperature", req.Temperature),
		zap.Int("input_length", len(req.Input)),
	)

	res, err := c.client.Models.GenerateContent(ctx, req.Model, []*genai.Content{
		genai.NewContentFromText(req.Input, genai.RoleUser),
	}, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: generating content: %w", err)
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: no candidates in response")
	}

	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("gemini: empty text in response")
	}

	payload := &ai.RawPayload{Text: sb.String()}
	if u := res.UsageMetadata; u != nil {
		payload.Usage = ai.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return payload, nil
}

// Close 關閉閒置連線
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
