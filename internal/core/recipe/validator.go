package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"cookit-backend/internal/core/ai"
	"cookit-backend/internal/pkg/common"
)

// 生成服務回覆的狀態
const (
	statusOK      = "ok"
	statusRefused = "refused"
)

// maxCaloriesKcal 超過此值視為不合理的估算
const maxCaloriesKcal = 100000

// Validator 檢查生成服務回覆並分類為 Accepted、Refused 或 Invalid
type Validator struct {
	refusal       RefusalPolicy
	lenientStatus bool
}

// NewValidator 創建 Validator。lenientStatus 為 true 時，缺少或未知的 status 視為 ok。
func NewValidator(refusal RefusalPolicy, lenientStatus bool) *Validator {
	return &Validator{refusal: refusal, lenientStatus: lenientStatus}
}

// Validate 依序進行擷取、狀態分派與欄位驗證。唯一允許修補的欄位是 estimatedMinutes。
func (v *Validator) Validate(payload *ai.RawPayload, rec *ConstraintRecord) Result {
	obj, err := extract(payload)
	if err != nil {
		return v.reject(newInvalid(common.ErrUnparsable, err))
	}

	status, _ := obj["status"].(string)
	switch strings.ToLower(strings.TrimSpace(status)) {
	case statusRefused:
		return v.refused(obj, rec)
	case statusOK:
	default:
		if !v.lenientStatus {
			return v.reject(newInvalid(common.ErrInvalidSchema, fmt.Errorf("unexpected status %q", status)))
		}
	}

	return v.accepted(obj, rec)
}

// extract 先使用已解析的物件，再嘗試從文字中取出 JSON
func extract(payload *ai.RawPayload) (map[string]any, error) {
	if payload == nil {
		return nil, errors.New("empty payload")
	}
	if payload.Structured != nil {
		return payload.Structured, nil
	}
	return common.ExtractJSONObject(payload.Text)
}

func (v *Validator) refused(obj map[string]any, rec *ConstraintRecord) Result {
	if v.refusal == RefusalForbid {
		return v.reject(newInvalid(common.ErrUnexpectedRefusal, nil))
	}

	suggestion, _ := obj["suggestion"].(map[string]any)
	suggested, _ := suggestion["suggestedCuisine"].(string)
	reason, _ := suggestion["reason"].(string)
	if strings.TrimSpace(suggested) == "" || strings.TrimSpace(reason) == "" {
		return v.reject(newInvalid(common.ErrInvalidSchema,
			errors.New("refusal without suggestion.suggestedCuisine and suggestion.reason")))
	}

	return &Refused{
		Cuisine: rec.Cuisine(),
		Suggestion: Suggestion{
			SuggestedCuisine: suggested,
			Reason:           reason,
		},
	}
}

func (v *Validator) accepted(obj map[string]any, rec *ConstraintRecord) Result {
	calories, err := parseCalories(obj)
	if err != nil {
		return v.reject(newInvalid(common.ErrInvalidCalories, err))
	}

	title, _ := obj["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return v.reject(newInvalid(common.ErrInvalidSchema, errors.New("missing title")))
	}

	ingredients, err := parseIngredients(obj["ingredients"])
	if err != nil {
		return v.reject(newInvalid(common.ErrInvalidSchema, err))
	}

	steps, err := parseSteps(obj["steps"])
	if err != nil {
		return v.reject(newInvalid(common.ErrInvalidSchema, err))
	}

	return &Accepted{
		Title:            title,
		IngredientsText:  ingredients,
		Steps:            steps,
		EstimatedMinutes: estimatedMinutes(obj["estimatedMinutes"], rec.Duration()),
		CaloriesKcal:     calories,
		Cuisine:          rec.Cuisine(),
		Mode:             rec.Mode(),
	}
}

func (v *Validator) reject(inv *Invalid) Result {
	common.LogWarn("generation output rejected",
		zap.String("code", inv.Err.Code),
		zap.String("reason", inv.Reason),
	)
	return inv
}

// parseCalories caloriesKcal 優先，其次為舊欄位 calories；必須是大於 0 的數字，不可預設
func parseCalories(obj map[string]any) (int, error) {
	raw, ok := obj["caloriesKcal"]
	if !ok || raw == nil {
		raw, ok = obj["calories"]
	}
	if !ok || raw == nil {
		return 0, errors.New("missing caloriesKcal")
	}

	f, ok := toFloat(raw)
	if !ok {
		return 0, fmt.Errorf("caloriesKcal is not a number: %v", raw)
	}
	if f <= 0 || f > maxCaloriesKcal {
		return 0, fmt.Errorf("caloriesKcal out of range: %v", f)
	}
	rounded := int(math.Round(f))
	if rounded < 1 {
		return 0, fmt.Errorf("caloriesKcal rounds to %d", rounded)
	}
	return rounded, nil
}

// estimatedMinutes 缺少或非正數時回填區間標準值，超過上限時截到上限
func estimatedMinutes(raw any, d Duration) int {
	minutes := 0
	if f, ok := toFloat(raw); ok && f > 0 && f < math.MaxInt32 {
		minutes = int(math.Round(f))
	}
	if minutes < 1 {
		return d.CanonicalMinutes()
	}
	if limit := d.MaxMinutes(); limit > 0 && minutes > limit {
		return limit
	}
	return minutes
}

func parseIngredients(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s, nil
		}
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("ingredients contains a non-string entry: %v", item)
			}
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		if len(items) > 0 {
			return common.StringSliceToString(items), nil
		}
	}
	return "", errors.New("missing ingredients")
}

func parseSteps(raw any) ([]string, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, errors.New("steps must be an array")
	}
	steps := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("steps contains a non-string entry: %v", item)
		}
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	if len(steps) == 0 {
		return nil, errors.New("steps is empty")
	}
	return steps, nil
}

// toFloat 只接受 JSON 數字；字串形式的數字不算
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
