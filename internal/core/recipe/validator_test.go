package recipe

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookit-backend/internal/core/ai"
	"cookit-backend/internal/pkg/common"
)

const okReply = `{"status":"ok","title":"Chicken biryani","ingredients":"rice, chicken","steps":["Rinse the rice.","Cook."],"caloriesKcal":650.4,"estimatedMinutes":35,"cuisine":"indian","suggestion":null}`

func mediumRecord(t *testing.T) *ConstraintRecord {
	return newTestRecord(t, map[string]any{"ingredients": "rice, chicken", "duration": "medium"})
}

func requireInvalid(t *testing.T, result Result, want *common.CustomError) *Invalid {
	t.Helper()
	inv, ok := result.(*Invalid)
	require.True(t, ok, "expected *Invalid, got %T", result)
	require.NotNil(t, inv.Err)
	assert.True(t, errors.Is(inv.Err, want), "got %s, want %s", inv.Err.Code, want.Code)
	assert.NotEmpty(t, inv.Reason)
	return inv
}

func TestValidateAcceptedFromText(t *testing.T) {
	v := NewValidator(RefusalAllow, true)

	result := v.Validate(&ai.RawPayload{Text: okReply}, mediumRecord(t))
	acc, ok := result.(*Accepted)
	require.True(t, ok, "%T", result)
	assert.Equal(t, "Chicken biryani", acc.Title)
	assert.Equal(t, "rice, chicken", acc.IngredientsText)
	assert.Equal(t, []string{"Rinse the rice.", "Cook."}, acc.Steps)
	assert.Equal(t, 650, acc.CaloriesKcal)
	assert.Equal(t, 35, acc.EstimatedMinutes)
	assert.Equal(t, CuisineIndian, acc.Cuisine)
	assert.Equal(t, ModeSavory, acc.Mode)
}

func TestValidateExtractionShapes(t *testing.T) {
	v := NewValidator(RefusalAllow, true)
	rec := mediumRecord(t)

	structured := map[string]any{
		"status":       "ok",
		"title":        "Dal",
		"ingredients":  "lentils",
		"steps":        []any{"Simmer."},
		"caloriesKcal": 420.0,
	}
	texts := map[string]string{
		"fenced":      "```json\n" + okReply + "\n```",
		"surrounded":  "Here you go: " + okReply + " Enjoy!",
		"bare keys":   `{status:"ok",title:"Dal",ingredients:"lentils",steps:["Simmer."],caloriesKcal:420}`,
		"plain":       okReply,
		"whitespaces": "\n\n  " + okReply + "  \n",
	}

	_, ok := v.Validate(&ai.RawPayload{Structured: structured, Text: "not json"}, rec).(*Accepted)
	assert.True(t, ok, "structured form must be tried first")

	for name, text := range texts {
		_, ok := v.Validate(&ai.RawPayload{Text: text}, rec).(*Accepted)
		assert.True(t, ok, name)
	}
}

func TestValidateUnparsable(t *testing.T) {
	v := NewValidator(RefusalAllow, true)
	rec := mediumRecord(t)

	for _, payload := range []*ai.RawPayload{
		nil,
		{},
		{Text: "I cannot help with that."},
		{Text: "{ broken"},
		{Text: "[1, 2, 3]"},
	} {
		requireInvalid(t, v.Validate(payload, rec), common.ErrUnparsable)
	}
}

func TestValidateRefused(t *testing.T) {
	v := NewValidator(RefusalAllow, true)
	rec := newTestRecord(t, map[string]any{"ingredients": "chocolate, cheese", "duration": "quick", "cuisine": "japonaise"})

	result := v.Validate(&ai.RawPayload{Text: `{"status":"refused","title":null,"steps":[],"suggestion":{"suggestedCuisine":"french","reason":"incompatible with traditional Japanese cuisine"}}`}, rec)
	ref, ok := result.(*Refused)
	require.True(t, ok, "%T", result)
	assert.Equal(t, CuisineJapanese, ref.Cuisine)
	assert.Equal(t, "french", ref.Suggestion.SuggestedCuisine)
	assert.Equal(t, "incompatible with traditional Japanese cuisine", ref.Suggestion.Reason)
}

func TestValidateRefusedWithoutSuggestion(t *testing.T) {
	v := NewValidator(RefusalAllow, true)
	rec := mediumRecord(t)

	for _, text := range []string{
		`{"status":"refused"}`,
		`{"status":"refused","suggestion":null}`,
		`{"status":"refused","suggestion":{"suggestedCuisine":"french"}}`,
		`{"status":"refused","suggestion":{"reason":"no"}}`,
		`{"status":"refused","suggestion":{"suggestedCuisine":" ","reason":"no"}}`,
	} {
		requireInvalid(t, v.Validate(&ai.RawPayload{Text: text}, rec), common.ErrInvalidSchema)
	}
}

func TestValidateRefusalForbidden(t *testing.T) {
	v := NewValidator(RefusalForbid, true)

	result := v.Validate(&ai.RawPayload{Text: `{"status":"refused","suggestion":{"suggestedCuisine":"french","reason":"no"}}`}, mediumRecord(t))
	requireInvalid(t, result, common.ErrUnexpectedRefusal)
}

func TestValidateCalories(t *testing.T) {
	v := NewValidator(RefusalAllow, true)
	rec := mediumRecord(t)
	base := func(calories any, present bool) map[string]any {
		obj := map[string]any{
			"status":      "ok",
			"title":       "Dal",
			"ingredients": "lentils",
			"steps":       []any{"Simmer."},
		}
		if present {
			obj["caloriesKcal"] = calories
		}
		return obj
	}

	for name, obj := range map[string]map[string]any{
		"missing":  base(nil, false),
		"null":     base(nil, true),
		"zero":     base(json.Number("0"), true),
		"negative": base(-10.0, true),
		"tiny":     base(0.4, true),
		"string":   base("650", true),
		"huge":     base(1e12, true),
	} {
		t.Run(name, func(t *testing.T) {
			requireInvalid(t, v.Validate(&ai.RawPayload{Structured: obj}, rec), common.ErrInvalidCalories)
		})
	}

	legacy := base(nil, false)
	legacy["calories"] = json.Number("512.6")
	acc, ok := v.Validate(&ai.RawPayload{Structured: legacy}, rec).(*Accepted)
	require.True(t, ok)
	assert.Equal(t, 513, acc.CaloriesKcal)
}

func TestValidateEstimatedMinutes(t *testing.T) {
	v := NewValidator(RefusalAllow, true)

	cases := []struct {
		duration string
		minutes  any
		want     int
	}{
		{"quick", nil, 10},
		{"medium", nil, 30},
		{"long", nil, 60},
		{"medium", "thirty", 30},
		{"medium", json.Number("0"), 30},
		{"medium", -5.0, 30},
		{"medium", json.Number("35.6"), 36},
		{"quick", 45.0, 15},
		{"medium", 90.0, 40},
		{"long", 180.0, 180},
	}
	for _, tc := range cases {
		rec := newTestRecord(t, map[string]any{"ingredients": "rice", "duration": tc.duration})
		obj := map[string]any{
			"status":       "ok",
			"title":        "Rice",
			"ingredients":  "rice",
			"steps":        []any{"Boil."},
			"caloriesKcal": 300.0,
		}
		if tc.minutes != nil {
			obj["estimatedMinutes"] = tc.minutes
		}
		acc, ok := v.Validate(&ai.RawPayload{Structured: obj}, rec).(*Accepted)
		require.True(t, ok)
		assert.Equal(t, tc.want, acc.EstimatedMinutes, "%s %v", tc.duration, tc.minutes)
	}
}

func TestValidateSchema(t *testing.T) {
	v := NewValidator(RefusalAllow, true)
	rec := mediumRecord(t)
	valid := func() map[string]any {
		return map[string]any{
			"status":       "ok",
			"title":        "Dal",
			"ingredients":  "lentils",
			"steps":        []any{"Simmer."},
			"caloriesKcal": 420.0,
		}
	}

	mutations := map[string]func(map[string]any){
		"no title":          func(o map[string]any) { delete(o, "title") },
		"blank title":       func(o map[string]any) { o["title"] = "  " },
		"no ingredients":    func(o map[string]any) { delete(o, "ingredients") },
		"ingredients mixed": func(o map[string]any) { o["ingredients"] = []any{"rice", 3.0} },
		"no steps":          func(o map[string]any) { delete(o, "steps") },
		"empty steps":       func(o map[string]any) { o["steps"] = []any{} },
		"blank steps":       func(o map[string]any) { o["steps"] = []any{" ", ""} },
		"steps not list":    func(o map[string]any) { o["steps"] = "Simmer." },
		"steps mixed":       func(o map[string]any) { o["steps"] = []any{"Simmer.", map[string]any{}} },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			obj := valid()
			mutate(obj)
			requireInvalid(t, v.Validate(&ai.RawPayload{Structured: obj}, rec), common.ErrInvalidSchema)
		})
	}

	obj := valid()
	obj["ingredients"] = []any{"rice", " ", "chicken"}
	acc, ok := v.Validate(&ai.RawPayload{Structured: obj}, rec).(*Accepted)
	require.True(t, ok)
	assert.Equal(t, "rice, chicken", acc.IngredientsText)
}

func TestValidateStatusLeniency(t *testing.T) {
	rec := mediumRecord(t)
	reply := func(status string) *ai.RawPayload {
		obj := map[string]any{
			"title":        "Dal",
			"ingredients":  "lentils",
			"steps":        []any{"Simmer."},
			"caloriesKcal": 420.0,
		}
		if status != "" {
			obj["status"] = status
		}
		return &ai.RawPayload{Structured: obj}
	}

	lenient := NewValidator(RefusalAllow, true)
	strict := NewValidator(RefusalAllow, false)

	for _, status := range []string{"", "success", "OK"} {
		_, ok := lenient.Validate(reply(status), rec).(*Accepted)
		assert.True(t, ok, status)
	}

	_, ok := strict.Validate(reply("ok"), rec).(*Accepted)
	assert.True(t, ok)
	_, ok = strict.Validate(reply(" OK "), rec).(*Accepted)
	assert.True(t, ok)
	requireInvalid(t, strict.Validate(reply(""), rec), common.ErrInvalidSchema)
	requireInvalid(t, strict.Validate(reply("success"), rec), common.ErrInvalidSchema)
}
