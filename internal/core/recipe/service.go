package recipe

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cookit-backend/internal/core/ai"
	"cookit-backend/internal/infrastructure/config"
	"cookit-backend/internal/pkg/common"
)

// Generator 發出單次生成請求（由 gateway.Gateway 實作）
type Generator interface {
	Generate(ctx context.Context, prompt string, profile ai.Profile) (*ai.RawPayload, error)
}

// RecipeService 食譜生成服務：Normalizer → Compiler → Generator → Validator
type RecipeService struct {
	normalizer *Normalizer
	compiler   *Compiler
	profiles   ai.Profiles
	generator  Generator
	validator  *Validator
}

// NewRecipeService 創建新的食譜生成服務
func NewRecipeService(normalizer *Normalizer, compiler *Compiler, validator *Validator, profiles ai.Profiles, generator Generator) *RecipeService {
	return &RecipeService{
		normalizer: normalizer,
		compiler:   compiler,
		profiles:   profiles,
		generator:  generator,
		validator:  validator,
	}
}

// NewRecipeServiceFromConfig 依設定組裝食譜生成服務
func NewRecipeServiceFromConfig(cfg *config.Config, generator Generator, opts ...NormalizerOption) (*RecipeService, error) {
	normalizer, err := NewNormalizer(DurationPolicy(cfg.Pipeline.DurationPolicy), cfg.Pipeline.DefaultCuisine, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create normalizer: %w", err)
	}

	refusal := RefusalPolicy(cfg.Pipeline.RefusalPolicy)
	compiler, err := NewCompiler(AllowListPolicy(cfg.Pipeline.AllowListPolicy), refusal)
	if err != nil {
		return nil, fmt.Errorf("failed to create compiler: %w", err)
	}

	return NewRecipeService(
		normalizer,
		compiler,
		NewValidator(refusal, cfg.Pipeline.LenientStatus),
		ai.NewProfiles(cfg.Tiers),
		generator,
	), nil
}

// Generate 執行完整管線。
// 回傳 error 代表請求本身無效（尚未呼叫生成服務）；其他失敗以 *Invalid 結果回傳。
func (s *RecipeService) Generate(ctx context.Context, raw map[string]any) (Result, error) {
	rec, err := s.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}

	profile := s.profiles.For(rec.Premium())
	prompt := s.compiler.Compile(rec, profile.PromptAddendum)

	requestID := common.RequestIDFromContext(ctx)
	common.LogDebug("recipe constraints normalized",
		zap.String("request_id", requestID),
		zap.String("duration", string(rec.Duration())),
		zap.String("cuisine", string(rec.Cuisine())),
		zap.String("mode", string(rec.Mode())),
		zap.String("tier", string(rec.Tier())),
		zap.Int("extra_ingredients", len(rec.ExtraIngredients())),
		zap.String("prompt", prompt),
	)

	payload, err := s.generator.Generate(ctx, prompt, profile)
	if err != nil {
		ce := common.AsCustomError(err)
		return &Invalid{Reason: ce.Error(), Err: ce}, nil
	}

	result := s.validator.Validate(payload, rec)
	switch r := result.(type) {
	case *Accepted:
		common.LogInfo("recipe accepted",
			zap.String("request_id", requestID),
			zap.String("cuisine", string(r.Cuisine)),
			zap.Int("calories_kcal", r.CaloriesKcal),
			zap.Int("estimated_minutes", r.EstimatedMinutes),
		)
	case *Refused:
		common.LogInfo("recipe refused",
			zap.String("request_id", requestID),
			zap.String("cuisine", string(r.Cuisine)),
			zap.String("suggested_cuisine", r.Suggestion.SuggestedCuisine),
		)
	}
	return result, nil
}
