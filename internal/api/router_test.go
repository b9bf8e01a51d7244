package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookit-backend/internal/core/ai"
	"cookit-backend/internal/core/ai/provider"
	"cookit-backend/internal/core/ratelimit"
	"cookit-backend/internal/infrastructure/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubProvider struct {
	calls   atomic.Int32
	delay   time.Duration
	payload *ai.RawPayload
	err     error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Generate(ctx context.Context, req *provider.Request) (*ai.RawPayload, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.payload, s.err
}

func (s *stubProvider) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "cookit-test", Version: "test", Debug: true},
		Server: config.ServerConfig{
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 10,
		},
		AI: config.AIConfig{Provider: config.ProviderOpenAI},
		Tiers: config.TiersConfig{
			Standard: config.TierConfig{Model: "gpt-4o-mini", Temperature: 0.3, Timeout: time.Second},
			Premium:  config.TierConfig{Model: "gpt-4o", Temperature: 0.4, Timeout: time.Second},
		},
		Pipeline: config.PipelineConfig{
			DurationPolicy:  "permissive",
			RefusalPolicy:   "allow",
			AllowListPolicy: "closed",
			LenientStatus:   true,
			DefaultCuisine:  "indian",
		},
	}
}

func newTestRouter(t *testing.T, p provider.Provider, limiter *ratelimit.Limiter) *gin.Engine {
	t.Helper()
	router, err := SetupRouter(testConfig(), Dependencies{Provider: p, Limiter: limiter})
	require.NoError(t, err)
	return router
}

func newTestLimiter(t *testing.T, limit int) *ratelimit.Limiter {
	t.Helper()
	counter := ratelimit.NewMemoryCounter(time.Minute)
	t.Cleanup(func() { _ = counter.Close() })
	limiter, err := ratelimit.NewLimiter(counter, limit, time.Minute)
	require.NoError(t, err)
	return limiter
}

func postRecipeFrom(router http.Handler, remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/recipe", strings.NewReader(`{"ingredients":"rice"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postRecipe(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestRecipeAccepted(t *testing.T) {
	p := &stubProvider{payload: &ai.RawPayload{Text: `{"status":"ok","title":"Chicken pulao","ingredients":"rice, chicken","steps":["Cook."],"caloriesKcal":650}`}}
	router := newTestRouter(t, p, nil)

	for _, path := range []string{"/recipe", "/api/v1/recipe"} {
		w := postRecipe(router, path, `{"ingredients":"rice, chicken","duration":"moyen","cuisine":"indienne"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decodeBody(t, w)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, true, body["accepted"])
		assert.Equal(t, "Chicken pulao", body["title"])
		assert.Equal(t, 650.0, body["caloriesKcal"])
		assert.Equal(t, 650.0, body["calories"])
		assert.Equal(t, 30.0, body["estimatedMinutes"])
		assert.Equal(t, "indian", body["cuisine"])
		assert.Nil(t, body["suggestion"])
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	}
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestRecipeRefused(t *testing.T) {
	p := &stubProvider{payload: &ai.RawPayload{Text: `{"status":"refused","suggestion":{"suggestedCuisine":"french","reason":"incompatible with traditional Japanese cuisine"}}`}}
	router := newTestRouter(t, p, nil)

	w := postRecipe(router, "/recipe", `{"ingredients":"chocolate, cheese","cuisine":"japonaise"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "refused", body["status"])
	assert.Equal(t, false, body["accepted"])
	assert.Equal(t, "japanese", body["cuisine"])
	assert.Equal(t, map[string]any{
		"suggestedCuisine": "french",
		"reason":           "incompatible with traditional Japanese cuisine",
	}, body["suggestion"])
}

func TestRecipeClientErrors(t *testing.T) {
	p := &stubProvider{}
	router := newTestRouter(t, p, nil)

	cases := []struct {
		name string
		body string
		code int
		err  string
	}{
		{"missing ingredients", `{"duration":"quick"}`, http.StatusBadRequest, "NO_INGREDIENTS"},
		{"blank ingredients", `{"ingredients":"   "}`, http.StatusBadRequest, "NO_INGREDIENTS"},
		{"empty body", ``, http.StatusBadRequest, "NO_INGREDIENTS"},
		{"malformed json", `{"ingredients":`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"array body", `["rice"]`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"null body", `null`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"too large", `{"ingredients":"` + strings.Repeat("a", 2<<10) + `"}`, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postRecipe(router, "/recipe", tc.body)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
			assert.Equal(t, tc.err, decodeBody(t, w)["error"])
		})
	}
	assert.Zero(t, p.calls.Load())
}

func TestRecipeUpstreamErrors(t *testing.T) {
	cases := []struct {
		name     string
		provider *stubProvider
		code     int
		err      string
	}{
		{"unparsable", &stubProvider{payload: &ai.RawPayload{Text: "Sorry, I cannot."}}, http.StatusBadGateway, "UNPARSABLE_AI_RESPONSE"},
		{"zero calories", &stubProvider{payload: &ai.RawPayload{Text: `{"status":"ok","title":"x","ingredients":"rice","steps":["a"],"caloriesKcal":0}`}}, http.StatusBadGateway, "INVALID_CALORIES"},
		{"bad schema", &stubProvider{payload: &ai.RawPayload{Text: `{"status":"ok","caloriesKcal":300}`}}, http.StatusBadGateway, "INVALID_RECIPE_SCHEMA"},
		{"service error", &stubProvider{err: errors.New("503 from upstream")}, http.StatusBadGateway, "AI_SERVICE_ERROR"},
		{"timeout", &stubProvider{delay: 1500 * time.Millisecond, payload: &ai.RawPayload{Text: "{}"}}, http.StatusGatewayTimeout, "GENERATION_TIMEOUT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, tc.provider, nil)
			w := postRecipe(router, "/recipe", `{"ingredients":"rice"}`)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
			body := decodeBody(t, w)
			assert.Equal(t, tc.err, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestRecipeRateLimited(t *testing.T) {
	limiter := newTestLimiter(t, 2)

	p := &stubProvider{payload: &ai.RawPayload{Text: okRecipe}}
	router := newTestRouter(t, p, limiter)

	for i := 0; i < 2; i++ {
		w := postRecipe(router, "/recipe", `{"ingredients":"rice"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := postRecipe(router, "/recipe", `{"ingredients":"rice"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", decodeBody(t, w)["error"])
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, int32(2), p.calls.Load())

	// 健康檢查不受限流影響
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	hw := httptest.NewRecorder()
	router.ServeHTTP(hw, req)
	assert.Equal(t, http.StatusOK, hw.Code)
}

const okRecipe = `{"status":"ok","title":"x","ingredients":"rice","steps":["a"],"caloriesKcal":300}`

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	p := &stubProvider{payload: &ai.RawPayload{Text: okRecipe}}
	router := newTestRouter(t, p, newTestLimiter(t, 2))

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		w := postRecipeFrom(router, "203.0.113.7:40000", fmt.Sprintf("10.0.0.%d", i))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{
		http.StatusOK, http.StatusOK,
		http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests,
	}, codes)
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestRateLimitTrustedProxyForwardsClientIP(t *testing.T) {
	cfg := testConfig()
	cfg.Server.TrustedProxies = []string{"10.1.0.0/16"}
	p := &stubProvider{payload: &ai.RawPayload{Text: okRecipe}}
	router, err := SetupRouter(cfg, Dependencies{Provider: p, Limiter: newTestLimiter(t, 1)})
	require.NoError(t, err)

	// 經由受信任代理的不同客戶端各自計數
	assert.Equal(t, http.StatusOK, postRecipeFrom(router, "10.1.2.3:40000", "198.51.100.1").Code)
	assert.Equal(t, http.StatusOK, postRecipeFrom(router, "10.1.2.3:40000", "198.51.100.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, postRecipeFrom(router, "10.1.2.3:40000", "198.51.100.1").Code)

	// 不受信任的來源無法冒用其他位址
	assert.Equal(t, http.StatusOK, postRecipeFrom(router, "203.0.113.9:40000", "198.51.100.3").Code)
	assert.Equal(t, http.StatusTooManyRequests, postRecipeFrom(router, "203.0.113.9:40000", "198.51.100.4").Code)
}

func TestSetupRouterRejectsInvalidTrustedProxy(t *testing.T) {
	cfg := testConfig()
	cfg.Server.TrustedProxies = []string{"not-an-ip"}
	_, err := SetupRouter(cfg, Dependencies{Provider: &stubProvider{}})
	assert.Error(t, err)
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t, &stubProvider{}, nil)

	cases := map[string]int{
		"/":        http.StatusOK,
		"/health":  http.StatusOK,
		"/ready":   http.StatusOK,
		"/live":    http.StatusOK,
		"/missing": http.StatusNotFound,
	}
	for path, code := range cases {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, code, w.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "Cookit backend is running")

	req = httptest.NewRequest(http.MethodGet, "/recipe", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSetupRouterRequiresProvider(t *testing.T) {
	_, err := SetupRouter(testConfig(), Dependencies{})
	assert.Error(t, err)
}
