package handlers

import (
	"net/http"
	"time"

	"github.com/zlwaterfield/scramble/services/history"
	"github.com/zlwaterfield/scramble/services/providers"
	"github.com/zlwaterfield/scramble/services/ratelimit"
	"github.com/zlwaterfield/scramble/utils"
	"go.uber.org/zap"
)

// SchedulerStats exposes the rate-limit scheduler state
type SchedulerStats interface {
	Stats() ratelimit.Stats
}

// HistoryStats exposes the history writer state
type HistoryStats interface {
	GetStats() history.Stats
}

// ProviderLister lists the provider kinds the gateway can dispatch to
type ProviderLister interface {
	Kinds() []providers.Kind
}

// StatusResponse is the body of GET /api/v1/status
type StatusResponse struct {
	Version     string           `json:"version"`
	Environment string           `json:"environment"`
	Uptime      string           `json:"uptime"`
	Providers   []providers.Kind `json:"providers"`
	Scheduler   ratelimit.Stats  `json:"scheduler"`
	History     *history.Stats   `json:"history,omitempty"`
}

// StatusHandler reports gateway internals for operators
type StatusHandler struct {
	scheduler   SchedulerStats
	history     HistoryStats
	providers   ProviderLister
	version     string
	environment string
	startedAt   time.Time
	logger      *zap.Logger
}

// NewStatusHandler creates a new StatusHandler. hist may be nil.
func NewStatusHandler(scheduler SchedulerStats, hist HistoryStats, lister ProviderLister, version, environment string, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		scheduler:   scheduler,
		history:     hist,
		providers:   lister,
		version:     version,
		environment: environment,
		startedAt:   time.Now(),
		logger:      logger,
	}
}

// HandleStatus handles GET /api/v1/status
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{
		Version:     h.version,
		Environment: h.environment,
		Uptime:      time.Since(h.startedAt).Round(time.Second).String(),
		Providers:   h.providers.Kinds(),
		Scheduler:   h.scheduler.Stats(),
	}
	if h.history != nil {
		stats := h.history.GetStats()
		response.History = &stats
	}

	if err := utils.WriteOK(w, response); err != nil {
		h.logger.Error("failed to write status response", zap.Error(err))
	}
}
