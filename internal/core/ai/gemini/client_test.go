package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookit-backend/internal/core/ai/provider"
)

func TestGenerateRequestsJSON(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-2.5-flash:generateContent"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "candidates": [{"content": {"role": "model", "parts": [{"text": "{\"title\":"}, {"text": "\"Dal\"}"}]}}],
  "usageMetadata": {"promptTokenCount": 3, "candidatesTokenCount": 4, "totalTokenCount": 7}
}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "key", srv.URL, 5*time.Second)
	require.NoError(t, err)
	defer c.Close()

	payload, err := c.Generate(context.Background(), &provider.Request{
		Model:          "gemini-2.5-flash",
		Input:          "return JSON",
		Temperature:    0.3,
		ResponseFormat: provider.ResponseFormatJSONObject,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Dal"}`, payload.Text)
	assert.Equal(t, 7, payload.Usage.TotalTokens)

	cfg, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", cfg["responseMimeType"])
}

func TestGenerateNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "key", srv.URL, 5*time.Second)
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), &provider.Request{Model: "gemini-2.5-flash", Input: "x"})
	require.Error(t, err)
}
