// Package memory provides process-local repositories. Data is lost on restart.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/zlwaterfield/scramble/repositories"
)

// SettingsRepository keeps settings in a map guarded by a mutex
type SettingsRepository struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

// NewSettingsRepository creates an empty in-memory settings store
func NewSettingsRepository() repositories.SettingsRepository {
	return &SettingsRepository{values: make(map[string]json.RawMessage)}
}

// GetAll returns a copy of every stored key
func (r *SettingsRepository) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(r.values))
	for k, v := range r.values {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out, nil
}

// PutAll replaces the given keys under one lock
func (r *SettingsRepository) PutAll(ctx context.Context, values map[string]json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for k, v := range values {
		r.values[k] = append(json.RawMessage(nil), v...)
	}
	return nil
}
