package recipe

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"cookit-backend/internal/pkg/common"
)

// DurationPolicy 無法辨識的時長處理方式
type DurationPolicy string

// 時長策略
const (
	// DurationPermissive 未提供或無法辨識時使用 medium
	DurationPermissive DurationPolicy = "permissive"
	// DurationStrict 未提供或無法辨識時回傳 INVALID_DURATION
	DurationStrict DurationPolicy = "strict"
)

// 請求欄位名稱
const (
	fieldIngredients      = "ingredients"
	fieldDuration         = "duration"
	fieldCuisine          = "cuisine"
	fieldMode             = "mode"
	fieldExtraIngredients = "extraIngredients"
	fieldIsPremium        = "isPremium"
)

// Normalizer 將原始請求轉換為 ConstraintRecord
type Normalizer struct {
	durationPolicy DurationPolicy
	defaultCuisine Cuisine // 空值表示未提供料理時隨機選擇
	pick           func(n int) int
}

// NormalizerOption 設定 Normalizer
type NormalizerOption func(*Normalizer)

// WithPicker 替換隨機選擇函式，回傳值須介於 [0, n)
func WithPicker(pick func(n int) int) NormalizerOption {
	return func(n *Normalizer) {
		n.pick = pick
	}
}

// NewNormalizer 創建 Normalizer。defaultCuisine 接受任何別名，空字串或隨機類別名表示隨機。
func NewNormalizer(policy DurationPolicy, defaultCuisine string, opts ...NormalizerOption) (*Normalizer, error) {
	switch policy {
	case DurationPermissive, DurationStrict:
	default:
		return nil, fmt.Errorf("unknown duration policy %q", policy)
	}

	n := &Normalizer{
		durationPolicy: policy,
		pick:           rand.IntN,
	}
	if strings.TrimSpace(defaultCuisine) != "" {
		c, random, ok := lookupCuisine(defaultCuisine)
		if !ok {
			return nil, fmt.Errorf("unknown default cuisine %q", defaultCuisine)
		}
		if !random {
			n.defaultCuisine = c
		}
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Normalize 驗證並正規化請求欄位。失敗時不應發出任何生成請求。
func (n *Normalizer) Normalize(raw map[string]any) (*ConstraintRecord, error) {
	ingredients, _ := raw[fieldIngredients].(string)
	ingredients = strings.TrimSpace(ingredients)
	if ingredients == "" {
		return nil, common.ErrNoIngredients
	}

	duration, err := n.normalizeDuration(raw[fieldDuration])
	if err != nil {
		return nil, err
	}

	tier := TierStandard
	if premium, ok := raw[fieldIsPremium].(bool); ok && premium {
		tier = TierPremium
	}

	mode := ModeSavory
	if label, ok := raw[fieldMode].(string); ok && isDessert(label) {
		mode = ModeDessert
	}

	return &ConstraintRecord{
		ingredients: ingredients,
		extras:      normalizeExtras(raw[fieldExtraIngredients]),
		duration:    duration,
		cuisine:     n.normalizeCuisine(raw[fieldCuisine]),
		mode:        mode,
		tier:        tier,
	}, nil
}

func (n *Normalizer) normalizeDuration(value any) (Duration, error) {
	label, _ := value.(string)
	if d, ok := lookupDuration(label); ok {
		return d, nil
	}
	if n.durationPolicy == DurationStrict {
		return "", common.ErrInvalidDuration.WithErr(fmt.Errorf("unrecognized duration %v", value))
	}
	return DurationMedium, nil
}

func (n *Normalizer) normalizeCuisine(value any) Cuisine {
	label, _ := value.(string)
	if strings.TrimSpace(label) == "" {
		if n.defaultCuisine != "" {
			return n.defaultCuisine
		}
		return n.randomCuisine()
	}

	c, random, ok := lookupCuisine(label)
	if ok && !random {
		return c
	}
	if !ok {
		common.LogDebug("unrecognized cuisine label, picking at random",
			zap.String("cuisine", common.TruncateString(label, 40)),
		)
	}
	return n.randomCuisine()
}

func (n *Normalizer) randomCuisine() Cuisine {
	i := n.pick(len(SupportedCuisines))
	if i < 0 || i >= len(SupportedCuisines) {
		i = 0
	}
	return SupportedCuisines[i]
}

func normalizeExtras(value any) []string {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	extras := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			extras = append(extras, s)
		}
	}
	return extras
}
