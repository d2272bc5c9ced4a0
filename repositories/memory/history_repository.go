package memory

import (
	"context"
	"sync"

	"github.com/zlwaterfield/scramble/models"
	"github.com/zlwaterfield/scramble/repositories"
)

// DefaultHistoryCapacity is the number of records kept before the oldest are dropped
const DefaultHistoryCapacity = 500

// HistoryRepository keeps the most recent records in memory
type HistoryRepository struct {
	mu       sync.RWMutex
	records  []*models.EnhancementRecord
	capacity int
}

// NewHistoryRepository creates an in-memory history store holding at most capacity records
func NewHistoryRepository(capacity int) repositories.HistoryRepository {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryRepository{capacity: capacity}
}

// Insert appends a copy of record, evicting the oldest when full
func (r *HistoryRepository) Insert(ctx context.Context, record *models.EnhancementRecord) error {
	cp := *record

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, &cp)
	if over := len(r.records) - r.capacity; over > 0 {
		r.records = append([]*models.EnhancementRecord(nil), r.records[over:]...)
	}
	return nil
}

// List returns records newest first
func (r *HistoryRepository) List(ctx context.Context, limit, offset int) ([]*models.EnhancementRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		return []*models.EnhancementRecord{}, nil
	}
	if offset < 0 {
		offset = 0
	}
	out := make([]*models.EnhancementRecord, 0, limit)
	for i := len(r.records) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		cp := *r.records[i]
		out = append(out, &cp)
	}
	return out, nil
}
