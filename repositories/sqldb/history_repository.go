package sqldb

import (
	"context"
	"fmt"

	"github.com/zlwaterfield/scramble/models"
	"github.com/zlwaterfield/scramble/repositories"
	"go.uber.org/zap"
)

// HistoryRepository implements the repositories.HistoryRepository interface
type HistoryRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *DB, logger *zap.Logger) repositories.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new history record
func (r *HistoryRepository) Insert(ctx context.Context, record *models.EnhancementRecord) error {
	query := `
		INSERT INTO enhancement_history (
			id, request_id, kind, prompt_id, provider, model, status,
			input_chars, output_chars, latency_ms, error_code, error_message,
			created_at, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		record.ID.String(),
		record.RequestID,
		string(record.Kind),
		record.PromptID,
		record.Provider,
		record.Model,
		string(record.Status),
		record.InputChars,
		record.OutputChars,
		record.LatencyMs,
		record.ErrorCode,
		record.ErrorMessage,
		record.CreatedAt,
		record.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}

	r.logger.Debug("history record inserted", zap.String("id", record.ID.String()), zap.String("status", string(record.Status)))
	return nil
}

// List returns records newest first with pagination
func (r *HistoryRepository) List(ctx context.Context, limit, offset int) ([]*models.EnhancementRecord, error) {
	query := `
		SELECT id, request_id, kind, prompt_id, provider, model, status,
		       input_chars, output_chars, latency_ms, error_code, error_message,
		       created_at, completed_at
		FROM enhancement_history
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := []*models.EnhancementRecord{}
	for rows.Next() {
		rec := &models.EnhancementRecord{}
		var kind, status string
		err := rows.Scan(
			&rec.ID,
			&rec.RequestID,
			&kind,
			&rec.PromptID,
			&rec.Provider,
			&rec.Model,
			&status,
			&rec.InputChars,
			&rec.OutputChars,
			&rec.LatencyMs,
			&rec.ErrorCode,
			&rec.ErrorMessage,
			&rec.CreatedAt,
			&rec.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		rec.Kind = models.EnhancementKind(kind)
		rec.Status = models.EnhancementStatus(status)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return records, nil
}
