// Package enhancement turns a (prompt id, text) pair into a rewritten text
// using the configured provider, throttled by the shared scheduler.
package enhancement

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/zlwaterfield/scramble/models"
	"github.com/zlwaterfield/scramble/services"
	"github.com/zlwaterfield/scramble/services/prompt"
	"github.com/zlwaterfield/scramble/services/providers"
	"github.com/zlwaterfield/scramble/services/ratelimit"
	"github.com/zlwaterfield/scramble/services/settings"
	"go.uber.org/zap"
)

// SettingsLoader supplies the active provider selection and custom prompts
type SettingsLoader interface {
	Load(ctx context.Context) (*models.Settings, error)
}

// AdapterResolver maps a provider id to its adapter
type AdapterResolver interface {
	Resolve(id string) (providers.Adapter, error)
}

// Dispatcher runs work under the global rate limit
type Dispatcher interface {
	Do(ctx context.Context, work ratelimit.Work) (string, error)
}

// Recorder stores a finished call. It must not block.
type Recorder interface {
	Record(record *models.EnhancementRecord) error
}

// Deps groups the collaborators of the Service
type Deps struct {
	Settings  SettingsLoader
	Prompts   *prompt.Service
	Registry  AdapterResolver
	Scheduler Dispatcher
	History   Recorder // optional
	// RequestID extracts the caller's request id for history rows (optional)
	RequestID func(ctx context.Context) string
	Logger    *zap.Logger
}

// Service is the enhancement orchestrator
type Service struct {
	settings  SettingsLoader
	prompts   *prompt.Service
	registry  AdapterResolver
	scheduler Dispatcher
	history   Recorder
	requestID func(ctx context.Context) string
	logger    *zap.Logger
}

// NewService creates an orchestrator
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prompts := deps.Prompts
	if prompts == nil {
		prompts = prompt.NewServiceWithDefaults()
	}
	return &Service{
		settings:  deps.Settings,
		prompts:   prompts,
		registry:  deps.Registry,
		scheduler: deps.Scheduler,
		history:   deps.History,
		requestID: deps.RequestID,
		logger:    logger,
	}
}

// Enhance rewrites text with the template promptID
func (s *Service) Enhance(ctx context.Context, promptID, text string) (string, error) {
	current, err := s.settings.Load(ctx)
	if err != nil {
		return "", err
	}

	tmpl, err := s.prompts.Resolve(settings.ToTemplates(current.CustomPrompts), promptID)
	if err != nil {
		return "", err
	}
	if err := s.prompts.ValidateText(ctx, text); err != nil {
		return "", err
	}

	return s.dispatch(ctx, current, models.EnhancementKindEnhance, tmpl.ID, prompt.Compose(tmpl, text), text)
}

// Suggestion is one proposed improvement to a passage
type Suggestion struct {
	Text        string `json:"text"`
	Explanation string `json:"explanation"`
	Suggestion  string `json:"suggestion"`
}

// Suggest asks the provider for the most important improvements to text
func (s *Service) Suggest(ctx context.Context, text string) ([]Suggestion, error) {
	current, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.prompts.ValidateText(ctx, text); err != nil {
		return nil, err
	}

	composed := prompt.Compose(prompt.Template{Prompt: prompt.SuggestionsInstruction}, text)
	raw, err := s.dispatch(ctx, current, models.EnhancementKindSuggestions, "", composed, text)
	if err != nil {
		return nil, err
	}

	suggestions, err := ParseSuggestions(raw)
	if err != nil {
		s.logger.Warn("unparseable suggestions response",
			zap.String("provider", current.Provider),
			zap.Error(err))
		return nil, err
	}
	return suggestions, nil
}

// Prompts returns the merged template list offered to the user
func (s *Service) Prompts(ctx context.Context) ([]prompt.Template, error) {
	current, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.prompts.Templates(settings.ToTemplates(current.CustomPrompts)), nil
}

// dispatch resolves the adapter, checks credentials and runs the call
// through the scheduler.
func (s *Service) dispatch(ctx context.Context, current *models.Settings, kind models.EnhancementKind, promptID, composed, text string) (string, error) {
	adapter, err := s.registry.Resolve(current.Provider)
	if err != nil {
		return "", err
	}
	cfg := settings.ProviderConfig(current)
	if err := adapter.Validate(cfg); err != nil {
		return "", err
	}

	record := models.NewEnhancementRecord(kind, promptID, string(adapter.Kind()), cfg.Model, utf8.RuneCountInString(text))
	if s.requestID != nil {
		record.WithRequestID(s.requestID(ctx))
	}

	start := time.Now()
	result, err := s.scheduler.Do(ctx, func(jobCtx context.Context) (string, error) {
		return adapter.Enhance(jobCtx, composed, cfg)
	})
	latency := int(time.Since(start).Milliseconds())

	if err != nil {
		err = wrapAdapterError(adapter.Kind(), err)
		record.MarkAsFailed(errorCode(err), err.Error(), latency)
		s.record(record)
		s.logger.Warn("enhancement failed",
			zap.String("provider", string(adapter.Kind())),
			zap.String("prompt_id", promptID),
			zap.Int("latency_ms", latency),
			zap.Error(err))
		return "", err
	}

	record.MarkAsCompleted(utf8.RuneCountInString(result), latency)
	s.record(record)
	s.logger.Info("enhancement completed",
		zap.String("provider", string(adapter.Kind())),
		zap.String("model", cfg.Model),
		zap.String("prompt_id", promptID),
		zap.Int("latency_ms", latency))
	return result, nil
}

func (s *Service) record(rec *models.EnhancementRecord) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(rec); err != nil {
		s.logger.Debug("history record skipped", zap.Error(err))
	}
}

// wrapAdapterError keeps typed errors and gives upstream failures the
// provider error type.
func wrapAdapterError(kind providers.Kind, err error) error {
	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		return services.NewProviderError(fmt.Sprintf("%s request failed", kind.DisplayName()), err).
			WithDetail("provider", string(kind)).
			WithDetail("code", provErr.Code).
			WithDetail("status", provErr.StatusCode)
	}
	if services.GetErrorType(err) != "" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return services.NewProviderError(fmt.Sprintf("%s request failed", kind.DisplayName()), err).
		WithDetail("provider", string(kind))
}

func errorCode(err error) string {
	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		return provErr.Code
	}
	if t := services.GetErrorType(err); t != "" {
		return string(t)
	}
	return "UNKNOWN_ERROR"
}
