package openai

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

const responseBody = `{
  "id": "resp_1",
  "object": "response",
  "created_at": 1700000000,
  "status": "completed",
  "model": "gpt-4o-mini",
  "output": [{
    "type": "message",
    "id": "msg_1",
    "status": "completed",
    "role": "assistant",
    "content": [{"type": "output_text", "text": "{\"title\":\"Dal\"}", "annotations": []}]
  }],
  "usage": {"input_tokens": 12, "output_tokens": 8, "total_tokens": 20}
}`

func TestGenerateUsesResponsesAPI(t *testing.T) {
	var body map[string]any
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.True(t, strings.HasSuffix(r.URL.Path, "/responses"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(responseBody))
	}))
	defer srv.Close()

	c := NewClient("sk-test", srv.URL+"/v1/", 5*time.Second)
	payload, err := c.Generate(context.Background(), &provider.Request{
		Model:          "gpt-4o-mini",
		Input:          "return JSON",
		Temperature:    0.3,
		ResponseFormat: provider.ResponseFormatJSONObject,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, "return JSON", body["input"])
	assert.Equal(t, 0.3, body["temperature"])
	text, ok := body["text"].(map[string]any)
	require.True(t, ok)
	format, ok := text["format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])

	assert.Equal(t, `{"title":"Dal"}`, payload.Text)
	assert.Equal(t, 20, payload.Usage.TotalTokens)
}

func TestGenerateDoesNotRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", srv.URL+"/v1/", 5*time.Second)
	_, err := c.Generate(context.Background(), &provider.Request{Model: "gpt-4o-mini", Input: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, 1, calls)
}
