package handlers

import (
	"context"
	"net/http"

	"github.com/zlwaterfield/scramble/models"
	"github.com/zlwaterfield/scramble/utils"
	"go.uber.org/zap"
)

// HistoryService lists past enhancement calls
type HistoryService interface {
	Recent(ctx context.Context, limit, offset int) ([]*models.EnhancementRecord, error)
}

// HistoryResponse is one page of history
type HistoryResponse struct {
	Records []*models.EnhancementRecord `json:"records"`
	Limit   int                         `json:"limit"`
	Offset  int                         `json:"offset"`
}

// HistoryHandler handles history requests
type HistoryHandler struct {
	service HistoryService
	logger  *zap.Logger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(service HistoryService, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /api/v1/history?limit=N&offset=M
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, err := utils.ParseIntParam(query.Get("limit"), "limit", 20)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	offset, err := utils.ParseIntParam(query.Get("offset"), "offset", 0)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	records, err := h.service.Recent(r.Context(), limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if records == nil {
		records = []*models.EnhancementRecord{}
	}

	if err := utils.WriteOK(w, HistoryResponse{Records: records, Limit: limit, Offset: offset}); err != nil {
		h.logger.Error("failed to write history response", zap.Error(err))
	}
}
