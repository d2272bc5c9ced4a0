package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlwaterfield/scramble/services"
	"github.com/zlwaterfield/scramble/services/providers"
)

func TestAdapter_Enhance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-API-Key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var req CompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "\n\nHuman: Summarize:\n\nlong text\n\nAssistant:", req.Prompt)
		assert.Equal(t, "claude-2", req.Model)
		assert.Equal(t, 1000, req.MaxTokensToSample)
		assert.Equal(t, 0.7, req.Temperature)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"completion":" short text\n","stop_reason":"stop_sequence"}`))
	}))
	defer server.Close()

	adapter := NewAdapter(providers.DefaultOptions())
	got, err := adapter.Enhance(context.Background(), "Summarize:\n\nlong text", providers.Config{
		APIKey:         "sk-ant-test",
		Model:          "claude-2",
		CustomEndpoint: server.URL,
	})

	require.NoError(t, err)
	assert.Equal(t, "short text", got)
}

func TestAdapter_Enhance_MissingKey(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	adapter := NewAdapter(providers.DefaultOptions())
	_, err := adapter.Enhance(context.Background(), "prompt", providers.Config{Model: "claude-2", CustomEndpoint: server.URL})

	assert.True(t, errors.Is(err, services.ErrMissingAPIKey))
	assert.Contains(t, err.Error(), "Anthropic")
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestAdapter_Enhance_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    string
		wantMessage string
	}{
		{
			name:        "error object",
			status:      http.StatusUnauthorized,
			body:        `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
			wantCode:    "authentication_error",
			wantMessage: "invalid x-api-key",
		},
		{
			name:        "error string",
			status:      http.StatusBadRequest,
			body:        `{"error":"model not found"}`,
			wantCode:    "UPSTREAM_ERROR",
			wantMessage: "model not found",
		},
		{
			name:        "empty body",
			status:      http.StatusInternalServerError,
			body:        ``,
			wantCode:    "UNKNOWN_ERROR",
			wantMessage: "Internal Server Error",
		},
		{
			name:        "missing completion",
			status:      http.StatusOK,
			body:        `{"stop_reason":"max_tokens"}`,
			wantCode:    "EMPTY_RESPONSE",
			wantMessage: "response contained no completion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := NewAdapter(providers.DefaultOptions())
			_, err := adapter.Enhance(context.Background(), "prompt", providers.Config{
				APIKey: "key", Model: "claude-2", CustomEndpoint: server.URL,
			})

			var provErr *providers.ProviderError
			require.True(t, errors.As(err, &provErr), "got %T (%v)", err, err)
			assert.Equal(t, providers.KindAnthropic, provErr.Provider)
			assert.Equal(t, tt.status, provErr.StatusCode)
			assert.Equal(t, tt.wantCode, provErr.Code)
			assert.Equal(t, tt.wantMessage, provErr.Message)
		})
	}
}
