package handlers

import (
	"context"
	"net/http"

	"github.com/zlwaterfield/scramble/models"
	"github.com/zlwaterfield/scramble/services/settings"
	"github.com/zlwaterfield/scramble/utils"
	"go.uber.org/zap"
)

// UpdateSettingsRequest is the body of PUT /api/v1/settings.
// An omitted apiKey keeps the stored one, so a client that only ever saw
// the masked key can still save other fields.
type UpdateSettingsRequest struct {
	Provider       string                `json:"provider" validate:"required"`
	APIKey         *string               `json:"apiKey"`
	Model          string                `json:"model" validate:"max=255"`
	CustomEndpoint string                `json:"customEndpoint" validate:"omitempty,url"`
	CustomPrompts  []models.CustomPrompt `json:"customPrompts" validate:"dive"`
}

// SettingsService defines the configuration store operations
type SettingsService interface {
	Load(ctx context.Context) (*models.Settings, error)
	Save(ctx context.Context, s *models.Settings) (*models.Settings, error)
}

// SettingsHandler handles settings requests
type SettingsHandler struct {
	service SettingsService
	logger  *zap.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(service SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger,
	}
}

// HandleGet handles GET /api/v1/settings. The API key is masked.
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	current, err := h.service.Load(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, settings.Public(current)); err != nil {
		h.logger.Error("failed to write settings response", zap.Error(err))
	}
}

// HandleUpdate handles PUT /api/v1/settings
func (h *SettingsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UpdateSettingsRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	next := &models.Settings{
		Provider:       req.Provider,
		Model:          req.Model,
		CustomEndpoint: req.CustomEndpoint,
		CustomPrompts:  req.CustomPrompts,
	}
	if req.APIKey != nil {
		next.APIKey = *req.APIKey
	} else {
		current, err := h.service.Load(ctx)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		next.APIKey = current.APIKey
	}

	saved, err := h.service.Save(ctx, next)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, settings.Public(saved)); err != nil {
		h.logger.Error("failed to write settings response", zap.Error(err))
	}
}
