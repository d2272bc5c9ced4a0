// Package history records enhancement calls in the background so callers
// never wait on, or fail because of, the history store.
package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zlwaterfield/scramble/models"
	"github.com/zlwaterfield/scramble/repositories"
	"go.uber.org/zap"
)

// Service writes EnhancementRecords through a pool of workers
type Service struct {
	repo        repositories.HistoryRepository
	logger      *zap.Logger
	recordChan  chan *models.EnhancementRecord
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	started     bool
	stopped     bool
	mu          sync.Mutex
	dropped     uint64
}

// Config holds configuration for the history service
type Config struct {
	BufferSize  int // Size of the record buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewService creates a new history service
func NewService(repo repositories.HistoryRepository, logger *zap.Logger, config Config) *Service {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	return &Service{
		repo:        repo,
		logger:      logger,
		recordChan:  make(chan *models.EnhancementRecord, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
	}
}

// Start starts the background workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("history service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started history service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop drains pending records, waiting at most timeout
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("history service not running")
	}
	s.stopped = true
	close(s.recordChan)
	s.mu.Unlock()

	s.logger.Info("stopping history service", zap.Int("pending_records", len(s.recordChan)))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("history service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("history service stop timeout after %v", timeout)
	}
}

// Record queues a record without blocking. A full buffer drops the record.
func (s *Service) Record(record *models.EnhancementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		return fmt.Errorf("history service not running")
	}

	select {
	case s.recordChan <- record:
		return nil
	default:
		s.dropped++
		s.logger.Warn("history buffer full, dropping record",
			zap.String("id", record.ID.String()),
			zap.String("provider", record.Provider))
		return fmt.Errorf("history buffer full")
	}
}

// Recent returns the newest records first
func (s *Service) Recent(ctx context.Context, limit, offset int) ([]*models.EnhancementRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	records, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

func (s *Service) worker(id int) {
	defer s.wg.Done()

	for record := range s.recordChan {
		if err := s.persist(record); err != nil {
			s.logger.Error("failed to persist history record",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("id", record.ID.String()))
		}
	}
}

func (s *Service) persist(record *models.EnhancementRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.repo.Insert(ctx, record)
}

// Stats represents history service statistics
type Stats struct {
	BufferSize     int    `json:"bufferSize"`
	PendingRecords int    `json:"pendingRecords"`
	WorkerCount    int    `json:"workerCount"`
	Dropped        uint64 `json:"dropped"`
	Started        bool   `json:"started"`
}

// GetStats returns statistics about the history service
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:     s.bufferSize,
		PendingRecords: len(s.recordChan),
		WorkerCount:    s.workerCount,
		Dropped:        s.dropped,
		Started:        s.started && !s.stopped,
	}
}
