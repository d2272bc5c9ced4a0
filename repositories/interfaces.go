package repositories

import (
	"context"
	"encoding/json"

	"github.com/zlwaterfield/scramble/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// SettingsRepository is the key-value configuration store. Values are JSON
// documents so each key keeps the shape the extension stores.
type SettingsRepository interface {
	// GetAll returns every stored key. Absent keys are missing from the map.
	GetAll(ctx context.Context) (map[string]json.RawMessage, error)

	// PutAll writes the given keys atomically, replacing existing values
	PutAll(ctx context.Context, values map[string]json.RawMessage) error
}

// HistoryRepository handles enhancement history rows
type HistoryRepository interface {
	// Insert inserts a new history record
	Insert(ctx context.Context, record *models.EnhancementRecord) error

	// List returns records newest first
	List(ctx context.Context, limit, offset int) ([]*models.EnhancementRecord, error)
}

// Repositories groups every repository the services need
type Repositories struct {
	Settings SettingsRepository
	History  HistoryRepository
}
