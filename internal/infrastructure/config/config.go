package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 支援的生成服務
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Config 應用配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	AI        AIConfig        `mapstructure:"ai"`
	Tiers     TiersConfig     `mapstructure:"tiers"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	LogLevel  string          `mapstructure:"log_level"`
	LogDir    string          `mapstructure:"log_dir" validate:"required"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name" validate:"required"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"gt=0,lt=65536"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	// TrustedProxies 允許提供 X-Forwarded-For 的代理網段；空值表示只採用連線來源位址
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
}

// AIConfig 生成服務配置
type AIConfig struct {
	Provider       string         `mapstructure:"provider" validate:"oneof=openai openrouter gemini"`
	RequestTimeout time.Duration  `mapstructure:"request_timeout" validate:"gt=0"`
	OpenAI         ProviderConfig `mapstructure:"openai"`
	OpenRouter     ProviderConfig `mapstructure:"openrouter"`
	Gemini         ProviderConfig `mapstructure:"gemini"`
}

// ProviderConfig 單一生成服務的連線設定
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// TiersConfig 依方案區分的生成設定
type TiersConfig struct {
	Standard TierConfig `mapstructure:"standard"`
	Premium  TierConfig `mapstructure:"premium"`
}

// TierConfig 單一方案的模型、溫度、逾時與 prompt 附加內容
type TierConfig struct {
	Model          string        `mapstructure:"model" validate:"required"`
	Temperature    float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
	PromptAddendum string        `mapstructure:"prompt_addendum"`
}

// PipelineConfig 正規化與驗證策略，部署時固定
type PipelineConfig struct {
	DurationPolicy  string `mapstructure:"duration_policy" validate:"oneof=permissive strict"`
	RefusalPolicy   string `mapstructure:"refusal_policy" validate:"oneof=allow forbid"`
	AllowListPolicy string `mapstructure:"allow_list_policy" validate:"oneof=closed augmented"`
	LenientStatus   bool   `mapstructure:"lenient_status"`
	DefaultCuisine  string `mapstructure:"default_cuisine"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend" validate:"oneof=memory redis"`
	Requests        int           `mapstructure:"requests" validate:"gt=0"`
	Window          time.Duration `mapstructure:"window" validate:"gt=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gt=0"`
}

// RedisConfig Redis 連線設定（rate_limit.backend=redis 時使用）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 為選用
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// 設定預設值
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	bindings := map[string]string{
		"server.port":                "PORT",
		"server.trusted_proxies":     "TRUSTED_PROXIES",
		"ai.provider":                "AI_PROVIDER",
		"ai.openai.api_key":          "OPENAI_API_KEY",
		"ai.openai.base_url":         "OPENAI_BASE_URL",
		"ai.openrouter.api_key":      "OPENROUTER_API_KEY",
		"ai.gemini.api_key":          "GEMINI_API_KEY",
		"tiers.standard.model":       "STANDARD_MODEL",
		"tiers.premium.model":        "PREMIUM_MODEL",
		"pipeline.duration_policy":   "DURATION_POLICY",
		"pipeline.refusal_policy":    "REFUSAL_POLICY",
		"pipeline.allow_list_policy": "ALLOW_LIST_POLICY",
		"pipeline.default_cuisine":   "DEFAULT_CUISINE",
		"rate_limit.enabled":         "RATE_LIMIT_ENABLED",
		"rate_limit.backend":         "RATE_LIMIT_BACKEND",
		"rate_limit.requests":        "RATE_LIMIT_REQUESTS",
		"rate_limit.window":          "RATE_LIMIT_WINDOW",
		"redis.addr":                 "REDIS_ADDR",
		"redis.password":             "REDIS_PASSWORD",
		"log_level":                  "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// ActiveProvider 回傳目前選用的生成服務設定
func (c *Config) ActiveProvider() ProviderConfig {
	switch c.AI.Provider {
	case ProviderOpenRouter:
		return c.AI.OpenRouter
	case ProviderGemini:
		return c.AI.Gemini
	default:
		return c.AI.OpenAI
	}
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "cookit-backend")

	// 伺服器設定
	v.SetDefault("server.port", 10000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "75s")
	v.SetDefault("server.max_body_bytes", 64<<10)
	v.SetDefault("server.trusted_proxies", []string{})

	// 生成服務設定
	v.SetDefault("ai.provider", ProviderOpenAI)
	v.SetDefault("ai.request_timeout", "90s")
	v.SetDefault("ai.openai.api_key", "")
	v.SetDefault("ai.openai.base_url", "")
	v.SetDefault("ai.openrouter.api_key", "")
	v.SetDefault("ai.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("ai.gemini.api_key", "")
	v.SetDefault("ai.gemini.base_url", "")

	// 方案設定
	v.SetDefault("tiers.standard.model", "gpt-4o-mini")
	v.SetDefault("tiers.standard.temperature", 0.3)
	v.SetDefault("tiers.standard.timeout", "25s")
	v.SetDefault("tiers.standard.prompt_addendum", "")
	v.SetDefault("tiers.premium.model", "gpt-4o")
	v.SetDefault("tiers.premium.temperature", 0.4)
	v.SetDefault("tiers.premium.timeout", "45s")
	v.SetDefault("tiers.premium.prompt_addendum",
		"PREMIUM REQUEST: give a precise quantity (grams, millilitres or units) for every ingredient "+
			"and write detailed steps with timings, heat levels and visual doneness cues.")

	// 管線策略
	v.SetDefault("pipeline.duration_policy", "permissive")
	v.SetDefault("pipeline.refusal_policy", "allow")
	v.SetDefault("pipeline.allow_list_policy", "closed")
	v.SetDefault("pipeline.lenient_status", true)
	v.SetDefault("pipeline.default_cuisine", "indian")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "15m")
	v.SetDefault("rate_limit.cleanup_interval", "1m")

	// Redis 設定
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 日誌設定
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return err
	}

	// 驗證生成服務金鑰
	if config.ActiveProvider().APIKey == "" {
		return fmt.Errorf("api key for provider %q is required", config.AI.Provider)
	}

	// 驗證 Redis 設定
	if config.RateLimit.Enabled && config.RateLimit.Backend == "redis" && config.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when rate_limit.backend is redis")
	}

	return nil
}
