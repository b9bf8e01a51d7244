package provider

import (
	"context"
	"fmt"
	"sync"

	"cookit-backend/internal/core/ai"
)

// ResponseFormatJSONObject 要求服務只回傳單一 JSON 物件
const ResponseFormatJSONObject = "json_object"

// Request 表示發送到生成服務的請求
type Request struct {
	Model          string
	Input          string
	Temperature    float64
	ResponseFormat string
}

// Provider 定義生成服務介面
type Provider interface {
	// Name 服務名稱（日誌用）
	Name() string

	// Generate 送出單次生成請求
	Generate(ctx context.Context, req *Request) (*ai.RawPayload, error)

	// Close 關閉提供者連接
	Close() error
}

// Factory 建立 Provider
type Factory func() (Provider, error)

// Lazy 在第一次成功呼叫時建立底層 Provider，之後所有請求共用同一個實例。
// 建立失敗不會被記住，下一個請求會重新嘗試。
type Lazy struct {
	name    string
	factory Factory

	mu       sync.Mutex
	provider Provider
	closed   bool
}

// NewLazy 建立延遲初始化的 Provider
func NewLazy(name string, factory Factory) *Lazy {
	return &Lazy{name: name, factory: factory}
}

func (l *Lazy) get() (Provider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, fmt.Errorf("provider %s: closed", l.name)
	}
	if l.provider != nil {
		return l.provider, nil
	}

	p, err := l.factory()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("provider %s: factory returned nil", l.name)
	}
	l.provider = p
	return p, nil
}

// Name 服務名稱
func (l *Lazy) Name() string {
	return l.name
}

// Generate 初始化後轉交給底層 Provider
func (l *Lazy) Generate(ctx context.Context, req *Request) (*ai.RawPayload, error) {
	p, err := l.get()
	if err != nil {
		return nil, fmt.Errorf("provider %s: initializing client: %w", l.name, err)
	}
	return p.Generate(ctx, req)
}

// Close 僅在已初始化時關閉底層 Provider；之後的請求一律失敗
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.provider == nil {
		return nil
	}
	return l.provider.Close()
}
