package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlwaterfield/scramble/services/providers"
)

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "value", r.Header.Get("X-Custom"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["prompt"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	resp, err := PostJSON(context.Background(), server.Client(), providers.KindOllama, Request{
		Endpoint: server.URL,
		Headers:  map[string]string{"X-Custom": "value"},
		Body:     map[string]string{"prompt": "hello"},
	})

	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestPostJSON_NonSuccessIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	resp, err := PostJSON(context.Background(), server.Client(), providers.KindGroq, Request{Endpoint: server.URL})

	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestPostJSON_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	_, err := PostJSON(context.Background(), http.DefaultClient, providers.KindOpenAI, Request{Endpoint: endpoint})

	var provErr *providers.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "HTTP_ERROR", provErr.Code)
	assert.Equal(t, providers.KindOpenAI, provErr.Provider)
}

func TestPostJSON_MarshalFailure(t *testing.T) {
	_, err := PostJSON(context.Background(), http.DefaultClient, providers.KindOpenAI, Request{
		Endpoint: "http://127.0.0.1:1",
		Body:     make(chan int),
	})

	var provErr *providers.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "MARSHAL_ERROR", provErr.Code)
}
