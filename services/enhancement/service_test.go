package enhancement

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlwaterfield/scramble/models"
	"github.com/zlwaterfield/scramble/repositories/memory"
	"github.com/zlwaterfield/scramble/services"
	"github.com/zlwaterfield/scramble/services/prompt"
	"github.com/zlwaterfield/scramble/services/providers"
	"github.com/zlwaterfield/scramble/services/providers/registry"
	"github.com/zlwaterfield/scramble/services/ratelimit"
	"github.com/zlwaterfield/scramble/services/settings"
	"go.uber.org/zap/zaptest"
)

type echoAdapter struct {
	calls int32
}

func (a *echoAdapter) Kind() providers.Kind { return providers.KindOllama }

func (a *echoAdapter) Validate(cfg providers.Config) error {
	return providers.RequireCredentials(providers.KindOllama, cfg, false)
}

func (a *echoAdapter) Enhance(ctx context.Context, p string, cfg providers.Config) (string, error) {
	atomic.AddInt32(&a.calls, 1)
	return p, nil
}

type failingAdapter struct {
	err error
}

func (a *failingAdapter) Kind() providers.Kind { return providers.KindOpenAI }
func (a *failingAdapter) Validate(cfg providers.Config) error { return nil }
func (a *failingAdapter) Enhance(ctx context.Context, p string, cfg providers.Config) (string, error) {
	return "", a.err
}

type spyResolver struct {
	adapter providers.Adapter
	calls   int32
}

func (r *spyResolver) Resolve(id string) (providers.Adapter, error) {
	atomic.AddInt32(&r.calls, 1)
	return r.adapter, nil
}

type spyDispatcher struct {
	calls int32
}

func (d *spyDispatcher) Do(ctx context.Context, work ratelimit.Work) (string, error) {
	atomic.AddInt32(&d.calls, 1)
	return work(ctx)
}

type stubSettings struct {
	settings *models.Settings
	err      error
}

func (s stubSettings) Load(ctx context.Context) (*models.Settings, error) {
	return s.settings, s.err
}

type recorder struct {
	mu      sync.Mutex
	records []*models.EnhancementRecord
}

func (r *recorder) Record(rec *models.EnhancementRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func ollamaSettings() *models.Settings {
	s := models.DefaultSettings()
	s.Provider = "ollama"
	s.Model = "llama2"
	return s
}

func TestService_EnhanceRoundTrip(t *testing.T) {
	adapter := &echoAdapter{}
	scheduler := ratelimit.NewScheduler(ratelimit.DefaultConfig(), ratelimit.RealClock(), zaptest.NewLogger(t))
	defer scheduler.Close()
	history := &recorder{}

	service := NewService(Deps{
		Settings:  stubSettings{settings: ollamaSettings()},
		Registry:  &spyResolver{adapter: adapter},
		Scheduler: scheduler,
		History:   history,
		RequestID: func(ctx context.Context) string { return "req-1" },
		Logger:    zaptest.NewLogger(t),
	})

	tmpl, ok := prompt.Lookup(prompt.Builtins(), "summarize")
	require.True(t, ok)

	got, err := service.Enhance(context.Background(), "summarize", "the quick brown fox")
	require.NoError(t, err)
	assert.Contains(t, got, tmpl.Prompt)
	assert.Contains(t, got, "the quick brown fox")
	assert.Equal(t, tmpl.Prompt+"\n\nthe quick brown fox", got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&adapter.calls))

	require.Len(t, history.records, 1)
	rec := history.records[0]
	assert.Equal(t, models.EnhancementStatusCompleted, rec.Status)
	assert.Equal(t, "summarize", rec.PromptID)
	assert.Equal(t, "ollama", rec.Provider)
	assert.Equal(t, "req-1", rec.RequestID)
	assert.Equal(t, 19, rec.InputChars)
}

func TestService_EnhanceCustomPrompt(t *testing.T) {
	current := ollamaSettings()
	current.CustomPrompts = []models.CustomPrompt{
		{Title: "Make it Pirate!", Prompt: "Talk like a pirate:"},
		{ID: "fix_grammar", Title: "Shadow", Prompt: "never used"},
	}
	service := NewService(Deps{
		Settings:  stubSettings{settings: current},
		Registry:  &spyResolver{adapter: &echoAdapter{}},
		Scheduler: &spyDispatcher{},
	})

	got, err := service.Enhance(context.Background(), "make_it_pirate", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Talk like a pirate:\n\nhello", got)

	// built-ins come first, so a custom prompt cannot shadow one
	got, err = service.Enhance(context.Background(), "fix_grammar", "hello")
	require.NoError(t, err)
	assert.NotContains(t, got, "never used")
}

func TestService_UnknownPromptTouchesNothing(t *testing.T) {
	resolver := &spyResolver{adapter: &echoAdapter{}}
	dispatcher := &spyDispatcher{}
	service := NewService(Deps{
		Settings:  stubSettings{settings: ollamaSettings()},
		Registry:  resolver,
		Scheduler: dispatcher,
	})

	_, err := service.Enhance(context.Background(), "does_not_exist", "text")

	require.Error(t, err)
	assert.True(t, services.IsConfigurationError(err))
	assert.ErrorIs(t, err, services.ErrInvalidPromptID)
	assert.Zero(t, atomic.LoadInt32(&resolver.calls))
	assert.Zero(t, atomic.LoadInt32(&dispatcher.calls))
}

func TestService_MissingAPIKeyMakesNoNetworkCall(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	for _, kind := range []providers.Kind{providers.KindOpenAI, providers.KindAnthropic, providers.KindGroq, providers.KindOpenRouter} {
		t.Run(string(kind), func(t *testing.T) {
			repo := memory.NewSettingsRepository()
			store := settings.NewService(repo, zaptest.NewLogger(t))
			_, err := store.Save(context.Background(), &models.Settings{
				Provider:       string(kind),
				Model:          "some-model",
				CustomEndpoint: server.URL,
			})
			require.NoError(t, err)

			dispatcher := &spyDispatcher{}
			service := NewService(Deps{
				Settings:  store,
				Registry:  registry.New(providers.DefaultOptions()),
				Scheduler: dispatcher,
			})

			_, err = service.Enhance(context.Background(), "fix_grammar", "teh text")
			require.Error(t, err)
			assert.True(t, services.IsConfigurationError(err))
			assert.ErrorIs(t, err, services.ErrMissingAPIKey)
			assert.Contains(t, err.Error(), kind.DisplayName())
			assert.Zero(t, atomic.LoadInt32(&dispatcher.calls))
		})
	}

	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestService_InvalidProvider(t *testing.T) {
	current := ollamaSettings()
	current.Provider = "cohere"
	service := NewService(Deps{
		Settings:  stubSettings{settings: current},
		Registry:  registry.New(providers.DefaultOptions()),
		Scheduler: &spyDispatcher{},
	})

	_, err := service.Enhance(context.Background(), "fix_grammar", "text")
	assert.ErrorIs(t, err, services.ErrInvalidProvider)
}

func TestService_EmptyText(t *testing.T) {
	dispatcher := &spyDispatcher{}
	service := NewService(Deps{
		Settings:  stubSettings{settings: ollamaSettings()},
		Registry:  &spyResolver{adapter: &echoAdapter{}},
		Scheduler: dispatcher,
	})

	_, err := service.Enhance(context.Background(), "fix_grammar", "   ")
	assert.True(t, services.IsValidationError(err))
	assert.Zero(t, atomic.LoadInt32(&dispatcher.calls))
}

func TestService_SettingsLoadFailure(t *testing.T) {
	service := NewService(Deps{
		Settings: stubSettings{err: services.WrapError(services.ErrorTypeInternal, services.ErrStoreFailed.Message, errors.New("x"))},
	})

	_, err := service.Enhance(context.Background(), "fix_grammar", "text")
	assert.ErrorIs(t, err, services.ErrStoreFailed)
}

func TestService_ProviderErrorIsWrapped(t *testing.T) {
	upstream := providers.NewProviderError(providers.KindOpenAI, "invalid_request_error", "Incorrect API key provided", http.StatusUnauthorized, nil)
	history := &recorder{}
	service := NewService(Deps{
		Settings:  stubSettings{settings: &models.Settings{Provider: "openai", APIKey: "k", Model: "gpt-4"}},
		Registry:  &spyResolver{adapter: &failingAdapter{err: upstream}},
		Scheduler: &spyDispatcher{},
		History:   history,
	})

	_, err := service.Enhance(context.Background(), "fix_grammar", "text")
	require.Error(t, err)
	assert.True(t, services.IsProviderError(err))
	assert.Contains(t, err.Error(), "OpenAI")
	assert.Contains(t, err.Error(), "Incorrect API key provided")

	var provErr *providers.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, http.StatusUnauthorized, provErr.StatusCode)

	details := services.GetErrorDetails(err)
	assert.Equal(t, "invalid_request_error", details["code"])

	require.Len(t, history.records, 1)
	assert.Equal(t, models.EnhancementStatusFailed, history.records[0].Status)
	assert.Equal(t, "invalid_request_error", *history.records[0].ErrorCode)
}

func TestService_Suggest(t *testing.T) {
	reply := "Here you go:\n```json\n" + `[{"text":"teh","explanation":"typo","suggestion":"the"}]` + "\n```"
	adapter := &cannedAdapter{reply: reply}
	service := NewService(Deps{
		Settings:  stubSettings{settings: ollamaSettings()},
		Registry:  &spyResolver{adapter: adapter},
		Scheduler: &spyDispatcher{},
	})

	got, err := service.Suggest(context.Background(), "teh cat")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Suggestion{Text: "teh", Explanation: "typo", Suggestion: "the"}, got[0])
	assert.True(t, strings.HasPrefix(adapter.prompt, prompt.SuggestionsInstruction))
	assert.True(t, strings.HasSuffix(adapter.prompt, "\n\nteh cat"))

	adapter.reply = "I could not find anything."
	_, err = service.Suggest(context.Background(), "teh cat")
	assert.ErrorIs(t, err, services.ErrSuggestionsParsing)
}

func TestService_Prompts(t *testing.T) {
	current := ollamaSettings()
	current.CustomPrompts = []models.CustomPrompt{{Title: "Haiku", Prompt: "Write a haiku:"}}
	service := NewService(Deps{Settings: stubSettings{settings: current}})

	got, err := service.Prompts(context.Background())
	require.NoError(t, err)
	require.Len(t, got, len(prompt.Builtins())+1)
	assert.Equal(t, "fix_grammar", got[0].ID)
	assert.Equal(t, "haiku", got[len(got)-1].ID)
}

type cannedAdapter struct {
	reply  string
	prompt string
}

func (a *cannedAdapter) Kind() providers.Kind { return providers.KindOllama }
func (a *cannedAdapter) Validate(cfg providers.Config) error { return nil }
func (a *cannedAdapter) Enhance(ctx context.Context, p string, cfg providers.Config) (string, error) {
	a.prompt = p
	return a.reply, nil
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "bare array", raw: `[{"text":"a","explanation":"b","suggestion":"c"}]`, want: 1},
		{name: "empty array", raw: `[]`, want: 0},
		{name: "drops blank entries", raw: `[{"text":"","suggestion":""},{"text":"a","suggestion":"b"}]`, want: 1},
		{name: "no array", raw: `nothing to see`, wantErr: true},
		{name: "broken json", raw: `[{"text": ]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSuggestions(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, services.IsProviderError(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			_, err = json.Marshal(got)
			assert.NoError(t, err)
		})
	}
}
