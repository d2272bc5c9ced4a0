package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, "openai", s.Provider)
	assert.Equal(t, "gpt-3.5-turbo", s.Model)
	assert.Empty(t, s.APIKey)
	assert.Empty(t, s.CustomEndpoint)
	assert.NotNil(t, s.CustomPrompts)
	assert.False(t, s.HasAPIKey())
}

func TestSettings_JSONKeys(t *testing.T) {
	s := Settings{
		Provider:       "ollama",
		APIKey:         "k",
		Model:          "llama2",
		CustomEndpoint: "http://localhost:11434/api/generate",
		CustomPrompts:  []CustomPrompt{{ID: "pirate", Title: "Pirate", Prompt: "Arr:"}},
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range SettingKeys {
		assert.Contains(t, raw, key)
	}
}

func TestNewEnhancementRecord(t *testing.T) {
	rec := NewEnhancementRecord(EnhancementKindEnhance, "fix_grammar", "openai", "gpt-4", 42)

	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, EnhancementStatusPending, rec.Status)
	assert.Equal(t, 42, rec.InputChars)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Nil(t, rec.CompletedAt)
	assert.Equal(t, "enhancement_history", rec.TableName())
}

func TestEnhancementRecord_MarkAsCompleted(t *testing.T) {
	rec := NewEnhancementRecord(EnhancementKindEnhance, "summarize", "groq", "llama3", 100).WithRequestID("req-1")

	rec.MarkAsCompleted(20, 350)

	assert.Equal(t, EnhancementStatusCompleted, rec.Status)
	assert.Equal(t, "req-1", rec.RequestID)
	assert.Equal(t, 20, rec.OutputChars)
	assert.Equal(t, 350, rec.LatencyMs)
	require.NotNil(t, rec.CompletedAt)
	assert.Nil(t, rec.ErrorMessage)
}

func TestEnhancementRecord_MarkAsFailed(t *testing.T) {
	rec := NewEnhancementRecord(EnhancementKindSuggestions, "", "anthropic", "claude-2", 10)

	rec.MarkAsFailed("provider", "Anthropic API request failed: overloaded", 1200)

	assert.Equal(t, EnhancementStatusFailed, rec.Status)
	require.NotNil(t, rec.ErrorCode)
	assert.Equal(t, "provider", *rec.ErrorCode)
	require.NotNil(t, rec.ErrorMessage)
	assert.Contains(t, *rec.ErrorMessage, "overloaded")
	assert.Equal(t, 1200, rec.LatencyMs)
	require.NotNil(t, rec.CompletedAt)
}
