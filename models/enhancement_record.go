package models

import (
	"time"

	"github.com/google/uuid"
)

// EnhancementStatus represents the outcome of an enhancement call
type EnhancementStatus string

const (
	EnhancementStatusPending   EnhancementStatus = "pending"
	EnhancementStatusCompleted EnhancementStatus = "completed"
	EnhancementStatusFailed    EnhancementStatus = "failed"
)

// EnhancementKind distinguishes rewrites from suggestion requests
type EnhancementKind string

const (
	EnhancementKindEnhance     EnhancementKind = "enhance"
	EnhancementKindSuggestions EnhancementKind = "suggestions"
)

// EnhancementRecord is one history row. The selected text and the model
// output are never stored, only their sizes.
type EnhancementRecord struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	RequestID string            `json:"request_id" db:"request_id"`
	Kind      EnhancementKind   `json:"kind" db:"kind"`
	PromptID  string            `json:"prompt_id" db:"prompt_id"`
	Provider  string            `json:"provider" db:"provider"`
	Model     string            `json:"model" db:"model"`
	Status    EnhancementStatus `json:"status" db:"status"`

	InputChars  int `json:"input_chars" db:"input_chars"`
	OutputChars int `json:"output_chars" db:"output_chars"`
	LatencyMs   int `json:"latency_ms" db:"latency_ms"`

	ErrorCode    *string `json:"error_code,omitempty" db:"error_code"`
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// TableName returns the table name for the EnhancementRecord model
func (EnhancementRecord) TableName() string {
	return "enhancement_history"
}

// NewEnhancementRecord creates a pending record
func NewEnhancementRecord(kind EnhancementKind, promptID, provider, model string, inputChars int) *EnhancementRecord {
	return &EnhancementRecord{
		ID:         uuid.New(),
		Kind:       kind,
		PromptID:   promptID,
		Provider:   provider,
		Model:      model,
		Status:     EnhancementStatusPending,
		InputChars: inputChars,
		CreatedAt:  time.Now(),
	}
}

// WithRequestID sets the originating HTTP request id
func (r *EnhancementRecord) WithRequestID(requestID string) *EnhancementRecord {
	r.RequestID = requestID
	return r
}

// MarkAsCompleted marks the record as completed
func (r *EnhancementRecord) MarkAsCompleted(outputChars, latencyMs int) {
	r.Status = EnhancementStatusCompleted
	r.OutputChars = outputChars
	r.LatencyMs = latencyMs
	now := time.Now()
	r.CompletedAt = &now
}

// MarkAsFailed marks the record as failed
func (r *EnhancementRecord) MarkAsFailed(errorCode, errorMessage string, latencyMs int) {
	r.Status = EnhancementStatusFailed
	r.ErrorCode = &errorCode
	r.ErrorMessage = &errorMessage
	r.LatencyMs = latencyMs
	now := time.Now()
	r.CompletedAt = &now
}
