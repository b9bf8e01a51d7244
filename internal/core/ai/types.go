package ai

import (
	"time"

	"cookit-backend/internal/infrastructure/config"
)

// RawPayload 生成服務回傳的原始內容。
// Structured 為服務端已解析好的 JSON 物件，Text 為需要再解析的文字；兩者至少一個有值。
type RawPayload struct {
	Structured map[string]any
	Text       string
	Usage      Usage
}

// Usage 使用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Profile 單一方案的生成參數
type Profile struct {
	Name           string
	Model          string
	Temperature    float64
	Timeout        time.Duration
	PromptAddendum string
}

// Profiles 標準與進階方案的生成參數
type Profiles struct {
	Standard Profile
	Premium  Profile
}

// NewProfiles 由設定建立方案參數
func NewProfiles(cfg config.TiersConfig) Profiles {
	return Profiles{
		Standard: profileFromConfig("standard", cfg.Standard),
		Premium:  profileFromConfig("premium", cfg.Premium),
	}
}

// For 依是否為進階方案回傳對應參數
func (p Profiles) For(premium bool) Profile {
	if premium {
		return p.Premium
	}
	return p.Standard
}

func profileFromConfig(name string, tc config.TierConfig) Profile {
	return Profile{
		Name:           name,
		Model:          tc.Model,
		Temperature:    tc.Temperature,
		Timeout:        tc.Timeout,
		PromptAddendum: tc.PromptAddendum,
	}
}
