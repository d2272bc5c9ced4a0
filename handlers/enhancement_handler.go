package handlers

import (
	"context"
	"net/http"

	"github.com/zlwaterfield/scramble/middleware"
	"github.com/zlwaterfield/scramble/services/enhancement"
	"github.com/zlwaterfield/scramble/services/prompt"
	"github.com/zlwaterfield/scramble/utils"
	"go.uber.org/zap"
)

// EnhanceRequest is the body of POST /api/v1/enhance
type EnhanceRequest struct {
	PromptID string `json:"promptId" validate:"required,max=255"`
	Text     string `json:"text" validate:"required"`
}

// EnhanceResponse carries the rewritten text
type EnhanceResponse struct {
	EnhancedText string `json:"enhancedText"`
}

// SuggestionsRequest is the body of POST /api/v1/suggestions
type SuggestionsRequest struct {
	Text string `json:"text" validate:"required"`
}

// SuggestionsResponse carries the proposed improvements
type SuggestionsResponse struct {
	Suggestions []enhancement.Suggestion `json:"suggestions"`
}

// PromptsResponse lists the templates offered to the user
type PromptsResponse struct {
	Prompts []prompt.Template `json:"prompts"`
}

// EnhancementService defines the operations behind the caller surface
type EnhancementService interface {
	Enhance(ctx context.Context, promptID, text string) (string, error)
	Suggest(ctx context.Context, text string) ([]enhancement.Suggestion, error)
	Prompts(ctx context.Context) ([]prompt.Template, error)
}

// EnhancementHandler handles text enhancement requests
type EnhancementHandler struct {
	service EnhancementService
	logger  *zap.Logger
}

// NewEnhancementHandler creates a new EnhancementHandler
func NewEnhancementHandler(service EnhancementService, logger *zap.Logger) *EnhancementHandler {
	return &EnhancementHandler{
		service: service,
		logger:  logger,
	}
}

// HandleEnhance handles POST /api/v1/enhance.
// The response is held until the scheduler admits and finishes the job.
func (h *EnhancementHandler) HandleEnhance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EnhanceRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	h.logger.Debug("enhance requested",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("prompt_id", req.PromptID),
		zap.Int("text_length", len(req.Text)))

	result, err := h.service.Enhance(ctx, req.PromptID, req.Text)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, EnhanceResponse{EnhancedText: result}); err != nil {
		h.logger.Error("failed to write enhance response", zap.Error(err))
	}
}

// HandleSuggestions handles POST /api/v1/suggestions
func (h *EnhancementHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req SuggestionsRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	suggestions, err := h.service.Suggest(r.Context(), req.Text)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if suggestions == nil {
		suggestions = []enhancement.Suggestion{}
	}

	if err := utils.WriteOK(w, SuggestionsResponse{Suggestions: suggestions}); err != nil {
		h.logger.Error("failed to write suggestions response", zap.Error(err))
	}
}

// HandleListPrompts handles GET /api/v1/prompts
func (h *EnhancementHandler) HandleListPrompts(w http.ResponseWriter, r *http.Request) {
	templates, err := h.service.Prompts(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, PromptsResponse{Prompts: templates}); err != nil {
		h.logger.Error("failed to write prompts response", zap.Error(err))
	}
}
