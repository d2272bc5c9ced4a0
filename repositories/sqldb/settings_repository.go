package sqldb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/zlwaterfield/scramble/repositories"
	"go.uber.org/zap"
)

// SettingsRepository implements repositories.SettingsRepository on a
// key-value table
type SettingsRepository struct {
	db     *DB
	tm     repositories.TransactionManager
	logger *zap.Logger
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB, tm repositories.TransactionManager, logger *zap.Logger) repositories.SettingsRepository {
	return &SettingsRepository{
		db:     db,
		tm:     tm,
		logger: logger,
	}
}

// GetAll returns every stored key
func (r *SettingsRepository) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	query := `SELECT key, value FROM settings`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		values[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}

	return values, nil
}

// PutAll upserts every key inside one transaction
func (r *SettingsRepository) PutAll(ctx context.Context, values map[string]json.RawMessage) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	// deterministic statement order keeps lock ordering stable across writers
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := time.Now().UTC()
	err := r.tm.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
		executor := GetExecutor(ctx, r.db)
		for _, key := range keys {
			if _, err := executor.ExecContext(ctx, query, key, string(values[key]), now); err != nil {
				return fmt.Errorf("failed to upsert setting %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("settings saved", zap.Strings("keys", keys))
	return nil
}
