package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"cookit-backend/internal/core/ai"
	"cookit-backend/internal/core/ai/provider"
	"cookit-backend/internal/pkg/common"
)

// DefaultBaseURL OpenRouter API 位址
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Client OpenRouter API 客戶端
type Client struct {
	client *resty.Client
}

// Message 消息結構
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat 回應格式
type ResponseFormat struct {
	Type string `json:"type"`
}

// Request 表示 API 請求
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Response OpenRouter 響應結構
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
	Usage   ai.Usage `json:"usage"`
}

// Choice 選擇結構
type Choice struct {
	Message struct {
		Role string `json:"role"`
		// 部分模型會直接回傳已解析的 JSON 物件
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

// Error 表示 API 錯誤
type Error struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", apiKey)).
		SetHeader("HTTP-Referer", "https://cookit.app").
		SetHeader("X-Title", "Cookit")

	return &Client{client: client}
}

// Name 服務名稱
func (c *Client) Name() string {
	return "openrouter"
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*ai.RawPayload, error) {
	body := &Request{
		Model: req.Model,
		Messages: []Message{
			{Role: "user", Content: req.Input},
		},
		Temperature: req.Temperature,
	}
	if req.ResponseFormat != "" {
		body.ResponseFormat = &ResponseFormat{Type: req.ResponseFormat}
	}

	common.LogDebug("Sending request to OpenRouter",
		zap.String("model", req.Model),
		zap.Float64("temperature", req.Temperature),
		zap.Int("input_length", len(req.Input)),
	)

	// 發送請求
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&Response{}).
		SetError(&Error{}).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		if apiErr, ok := resp.Error().(*Error); ok && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("OpenRouter API returned status %d: %s", resp.StatusCode(), apiErr.Error.Message)
		}
		return nil, fmt.Errorf("OpenRouter API returned status %d: %s",
			resp.StatusCode(), common.TruncateString(resp.String(), 200))
	}

	result, ok := resp.Result().(*Response)
	if !ok || len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices in OpenRouter response")
	}

	payload, err := decodeContent(result.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	payload.Usage = result.Usage
	return payload, nil
}

// decodeContent 依 content 的型別決定是已解析物件或待解析文字
func decodeContent(raw json.RawMessage) (*ai.RawPayload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("empty content in OpenRouter response")
	}

	switch trimmed[0] {
	case '{':
		var obj map[string]any
		if err := common.ParseJSONBytes(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("failed to parse structured content: %w", err)
		}
		return &ai.RawPayload{Structured: obj}, nil
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, fmt.Errorf("failed to parse content: %w", err)
		}
		if text == "" {
			return nil, fmt.Errorf("empty content in OpenRouter response")
		}
		return &ai.RawPayload{Text: text}, nil
	default:
		return &ai.RawPayload{Text: string(trimmed)}, nil
	}
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
