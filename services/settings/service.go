// Package settings is the configuration store behind the gateway: the
// active provider selection plus the user's custom prompts.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zlwaterfield/scramble/models"
	"github.com/zlwaterfield/scramble/repositories"
	"github.com/zlwaterfield/scramble/services"
	"github.com/zlwaterfield/scramble/services/prompt"
	"github.com/zlwaterfield/scramble/services/providers"
	"go.uber.org/zap"
)

// Service loads and saves Settings through a SettingsRepository
type Service struct {
	repo     repositories.SettingsRepository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewService creates a new settings service
func NewService(repo repositories.SettingsRepository, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		logger:   logger,
	}
}

// Load returns the stored settings with defaults for absent keys
func (s *Service) Load(ctx context.Context) (*models.Settings, error) {
	stored, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeInternal, services.ErrStoreFailed.Message, err)
	}

	out := models.DefaultSettings()
	targets := map[string]interface{}{
		models.SettingKeyProvider:       &out.Provider,
		models.SettingKeyAPIKey:         &out.APIKey,
		models.SettingKeyModel:          &out.Model,
		models.SettingKeyCustomEndpoint: &out.CustomEndpoint,
		models.SettingKeyCustomPrompts:  &out.CustomPrompts,
	}
	for key, target := range targets {
		raw, ok := stored[key]
		if !ok || len(raw) == 0 || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			// A corrupt key falls back to its default rather than blocking every call.
			s.logger.Warn("ignoring unreadable setting", zap.String("key", key), zap.Error(err))
		}
	}
	if out.CustomPrompts == nil {
		out.CustomPrompts = []models.CustomPrompt{}
	}
	return out, nil
}

// Save validates and persists every key in one write
func (s *Service) Save(ctx context.Context, in *models.Settings) (*models.Settings, error) {
	if in == nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, services.ErrInvalidInput.Message, nil)
	}

	normalized := *in
	normalized.Provider = strings.ToLower(strings.TrimSpace(in.Provider))
	normalized.APIKey = strings.TrimSpace(in.APIKey)
	normalized.Model = strings.TrimSpace(in.Model)
	normalized.CustomEndpoint = strings.TrimSpace(in.CustomEndpoint)
	normalized.CustomPrompts = fromTemplates(prompt.Sanitize(ToTemplates(in.CustomPrompts)))

	if err := s.validateSettings(&normalized); err != nil {
		return nil, err
	}

	values := make(map[string]json.RawMessage, len(models.SettingKeys))
	fields := map[string]interface{}{
		models.SettingKeyProvider:       normalized.Provider,
		models.SettingKeyAPIKey:         normalized.APIKey,
		models.SettingKeyModel:          normalized.Model,
		models.SettingKeyCustomEndpoint: normalized.CustomEndpoint,
		models.SettingKeyCustomPrompts:  normalized.CustomPrompts,
	}
	for key, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, services.WrapInternal(fmt.Sprintf("failed to encode setting %s", key), err)
		}
		values[key] = raw
	}

	if err := s.repo.PutAll(ctx, values); err != nil {
		return nil, services.WrapError(services.ErrorTypeInternal, services.ErrStoreFailed.Message, err)
	}

	s.logger.Info("settings saved",
		zap.String("provider", normalized.Provider),
		zap.String("model", normalized.Model),
		zap.Bool("has_api_key", normalized.HasAPIKey()),
		zap.Int("custom_prompts", len(normalized.CustomPrompts)))

	return &normalized, nil
}

func (s *Service) validateSettings(in *models.Settings) error {
	if _, ok := providers.ParseKind(in.Provider); !ok {
		return services.NewConfigurationError(services.ErrInvalidProvider.Message).WithDetail("provider", in.Provider)
	}
	if err := s.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return services.NewDomainError(services.ErrorTypeValidation, services.ErrInvalidInput.Message, err)
		}
		domainErr := services.NewDomainError(services.ErrorTypeValidation, "invalid settings", nil)
		for _, fe := range fieldErrs {
			domainErr.WithDetail(fe.Namespace(), fe.Tag())
		}
		return domainErr
	}
	return nil
}

// Public returns a copy safe to send to a client. The API key is masked.
func Public(in *models.Settings) *models.Settings {
	out := *in
	out.APIKey = MaskKey(in.APIKey)
	out.CustomPrompts = append([]models.CustomPrompt{}, in.CustomPrompts...)
	return &out
}

// MaskKey keeps the last four characters of a key
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

// ProviderConfig extracts the active provider selection
func ProviderConfig(in *models.Settings) providers.Config {
	return providers.Config{
		Provider:       in.Provider,
		APIKey:         in.APIKey,
		Model:          in.Model,
		CustomEndpoint: in.CustomEndpoint,
	}
}

// ToTemplates converts stored custom prompts to templates
func ToTemplates(custom []models.CustomPrompt) []prompt.Template {
	out := make([]prompt.Template, 0, len(custom))
	for _, c := range custom {
		out = append(out, prompt.Template{ID: c.ID, Title: c.Title, Prompt: c.Prompt})
	}
	return out
}

func fromTemplates(templates []prompt.Template) []models.CustomPrompt {
	out := make([]models.CustomPrompt, 0, len(templates))
	for _, t := range templates {
		out = append(out, models.CustomPrompt{ID: t.ID, Title: t.Title, Prompt: t.Prompt})
	}
	return out
}
