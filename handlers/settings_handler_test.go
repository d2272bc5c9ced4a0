package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zlwaterfield/scramble/models"
	"github.com/zlwaterfield/scramble/services"
	"go.uber.org/zap"
)

// MockSettingsService is a mock implementation of SettingsService
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Load(ctx context.Context) (*models.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Settings), args.Error(1)
}

func (m *MockSettingsService) Save(ctx context.Context, s *models.Settings) (*models.Settings, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Settings), args.Error(1)
}

func putJSON(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSettingsHandler_HandleGet(t *testing.T) {
	logger := zap.NewNop()

	t.Run("masks the api key", func(t *testing.T) {
		mockService := new(MockSettingsService)
		handler := NewSettingsHandler(mockService, logger)

		mockService.On("Load", mock.Anything).Return(&models.Settings{
			Provider: "openai",
			APIKey:   "sk-abcdefghijkl1234",
			Model:    "gpt-4o-mini",
		}, nil)

		w := httptest.NewRecorder()
		handler.HandleGet(w, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "sk-abcdefghijkl1234")

		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "openai", data["provider"])
		assert.Equal(t, "gpt-4o-mini", data["model"])
		assert.Equal(t, "***************1234", data["apiKey"])
	})

	t.Run("store failure", func(t *testing.T) {
		mockService := new(MockSettingsService)
		handler := NewSettingsHandler(mockService, logger)

		mockService.On("Load", mock.Anything).Return(nil, services.WrapError(services.ErrorTypeInternal, "settings store failure", assert.AnError))

		w := httptest.NewRecorder()
		handler.HandleGet(w, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestSettingsHandler_HandleUpdate(t *testing.T) {
	logger := zap.NewNop()

	t.Run("saves every field", func(t *testing.T) {
		mockService := new(MockSettingsService)
		handler := NewSettingsHandler(mockService, logger)

		mockService.On("Save", mock.Anything, mock.MatchedBy(func(s *models.Settings) bool {
			return s.Provider == "anthropic" && s.APIKey == "sk-ant-new-key" && s.Model == "claude-3-haiku" &&
				len(s.CustomPrompts) == 1 && s.CustomPrompts[0].Title == "Pirate"
		})).Return(&models.Settings{
			Provider:      "anthropic",
			APIKey:        "sk-ant-new-key",
			Model:         "claude-3-haiku",
			CustomPrompts: []models.CustomPrompt{{ID: "pirate", Title: "Pirate", Prompt: "Arr:"}},
		}, nil)

		w := httptest.NewRecorder()
		handler.HandleUpdate(w, putJSON(t, `{
			"provider": "anthropic",
			"apiKey": "sk-ant-new-key",
			"model": "claude-3-haiku",
			"customPrompts": [{"title": "Pirate", "prompt": "Arr:"}]
		}`))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "sk-ant-new-key")
		mockService.AssertExpectations(t)
		mockService.AssertNotCalled(t, "Load", mock.Anything)
	})

	t.Run("omitted api key keeps the stored one", func(t *testing.T) {
		mockService := new(MockSettingsService)
		handler := NewSettingsHandler(mockService, logger)

		mockService.On("Load", mock.Anything).Return(&models.Settings{Provider: "openai", APIKey: "sk-stored"}, nil)
		mockService.On("Save", mock.Anything, mock.MatchedBy(func(s *models.Settings) bool {
			return s.APIKey == "sk-stored" && s.Model == "gpt-4o"
		})).Return(&models.Settings{Provider: "openai", APIKey: "sk-stored", Model: "gpt-4o"}, nil)

		w := httptest.NewRecorder()
		handler.HandleUpdate(w, putJSON(t, `{"provider":"openai","model":"gpt-4o"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("explicit empty api key clears it", func(t *testing.T) {
		mockService := new(MockSettingsService)
		handler := NewSettingsHandler(mockService, logger)

		mockService.On("Save", mock.Anything, mock.MatchedBy(func(s *models.Settings) bool {
			return s.APIKey == ""
		})).Return(&models.Settings{Provider: "ollama", Model: "llama3"}, nil)

		w := httptest.NewRecorder()
		handler.HandleUpdate(w, putJSON(t, `{"provider":"ollama","apiKey":"","model":"llama3"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertNotCalled(t, "Load", mock.Anything)
	})

	t.Run("request validation", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{name: "missing provider", body: `{"model":"x"}`},
			{name: "bad endpoint", body: `{"provider":"ollama","customEndpoint":"not a url"}`},
			{name: "prompt without title", body: `{"provider":"ollama","customPrompts":[{"prompt":"x"}]}`},
			{name: "unknown field", body: `{"provider":"ollama","temperature":2}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mockService := new(MockSettingsService)
				handler := NewSettingsHandler(mockService, logger)

				w := httptest.NewRecorder()
				handler.HandleUpdate(w, putJSON(t, tt.body))

				assert.Equal(t, http.StatusBadRequest, w.Code)
				mockService.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("unknown provider from service", func(t *testing.T) {
		mockService := new(MockSettingsService)
		handler := NewSettingsHandler(mockService, logger)

		mockService.On("Save", mock.Anything, mock.Anything).Return(nil,
			services.NewConfigurationError("invalid provider").WithDetail("provider", "cohere"))

		w := httptest.NewRecorder()
		handler.HandleUpdate(w, putJSON(t, `{"provider":"cohere","apiKey":"k"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "cohere", response["details"].(map[string]interface{})["provider"])
	})
}
