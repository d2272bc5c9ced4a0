package prompt

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zlwaterfield/scramble/services"
)

// ValidationConfig bounds the selected text accepted for enhancement
type ValidationConfig struct {
	MinLength int
	MaxLength int
}

// DefaultValidationConfig returns the default text bounds. MaxLength 0
// leaves the selection length unbounded.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MinLength: 1,
		MaxLength: 0,
	}
}

// Service resolves prompt ids against built-ins, stored custom prompts and
// any loaded prompt packs.
type Service struct {
	config ValidationConfig
	packs  []Template
}

// NewService creates a prompt service. Pack templates are offered after
// built-ins and stored custom prompts.
func NewService(config ValidationConfig, packs ...*Pack) *Service {
	s := &Service{config: config}
	for _, p := range packs {
		if p == nil {
			continue
		}
		s.packs = append(s.packs, p.Prompts...)
	}
	return s
}

// NewServiceWithDefaults creates a prompt service with default bounds and no packs
func NewServiceWithDefaults() *Service {
	return NewService(DefaultValidationConfig())
}

// Templates returns the merged template list for the given custom prompts
func (s *Service) Templates(custom []Template) []Template {
	return Merge(Sanitize(custom), s.packs)
}

// Resolve finds promptID in the merged list, first match wins
func (s *Service) Resolve(custom []Template, promptID string) (Template, error) {
	t, ok := Lookup(s.Templates(custom), promptID)
	if !ok {
		return Template{}, services.NewConfigurationError(services.ErrInvalidPromptID.Message).
			WithDetail("prompt_id", promptID)
	}
	return t, nil
}

// ValidateText checks the selected text against the configured bounds
func (s *Service) ValidateText(ctx context.Context, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if strings.TrimSpace(text) == "" {
		return services.NewDomainError(services.ErrorTypeValidation, services.ErrEmptyText.Message, nil)
	}

	n := utf8.RuneCountInString(text)
	if n < s.config.MinLength {
		return services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("text too short: minimum %d characters", s.config.MinLength), nil)
	}
	if s.config.MaxLength > 0 && n > s.config.MaxLength {
		return services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("text too long: maximum %d characters", s.config.MaxLength), nil)
	}
	return nil
}
