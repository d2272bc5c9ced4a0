// Package ratelimit admits provider calls under a global quota per fixed
// window, in submission order.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zlwaterfield/scramble/services"
	"go.uber.org/zap"
)

// ErrSchedulerClosed is returned for jobs submitted after, or still queued at, Close
var ErrSchedulerClosed = services.NewDomainError(services.ErrorTypeInternal, "scheduler closed", nil)

const (
	DefaultQuota  = 10
	DefaultWindow = 60 * time.Second
)

// Config bounds admissions to Quota jobs per Window
type Config struct {
	Quota  int
	Window time.Duration
}

// DefaultConfig returns 10 admissions per 60 seconds
func DefaultConfig() Config {
	return Config{Quota: DefaultQuota, Window: DefaultWindow}
}

// Work is the unit a job runs once admitted
type Work func(ctx context.Context) (string, error)

// Job is one queued unit of work. Its result is set exactly once.
type Job struct {
	ID          uuid.UUID
	SubmittedAt time.Time
	AdmittedAt  time.Time

	ctx  context.Context
	work Work

	once   sync.Once
	done   chan struct{}
	result string
	err    error
}

func (j *Job) resolve(result string, err error) bool {
	resolved := false
	j.once.Do(func() {
		j.result = result
		j.err = err
		close(j.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the job has a result
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job resolves or ctx ends. Giving up does not cancel
// the job; it still runs when admitted.
func (j *Job) Wait(ctx context.Context) (string, error) {
	select {
	case <-j.done:
		return j.result, j.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Stats is a point-in-time view of the scheduler
type Stats struct {
	Quota          int           `json:"quota"`
	Window         time.Duration `json:"window"`
	AdmittedCount  int           `json:"admittedCount"`
	WindowStart    time.Time     `json:"windowStart"`
	QueueDepth     int           `json:"queueDepth"`
	TotalAdmitted  uint64        `json:"totalAdmitted"`
	TotalSucceeded uint64        `json:"totalSucceeded"`
	TotalFailed    uint64        `json:"totalFailed"`
}

// Scheduler queues jobs FIFO and admits at most Quota of them per window.
// Admission only starts a job; it never waits for one to finish.
type Scheduler struct {
	cfg    Config
	clock  Clock
	logger *zap.Logger

	mu          sync.Mutex
	queue       []*Job
	count       int
	windowStart time.Time
	timer       Timer
	closed      bool

	totalAdmitted  uint64
	totalSucceeded uint64
	totalFailed    uint64
}

// NewScheduler creates a scheduler. Zero config values fall back to the defaults
// and a nil clock uses real time.
func NewScheduler(cfg Config, clock Clock, logger *zap.Logger) *Scheduler {
	if cfg.Quota <= 0 {
		cfg.Quota = DefaultQuota
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:         cfg,
		clock:       clock,
		logger:      logger,
		windowStart: clock.Now(),
	}
}

// Submit enqueues work and returns its job handle. The work receives a
// context that keeps ctx's values but is never cancelled by it.
func (s *Scheduler) Submit(ctx context.Context, work Work) (*Job, error) {
	job := &Job{
		ID:   uuid.New(),
		ctx:  context.WithoutCancel(ctx),
		work: work,
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSchedulerClosed
	}
	job.SubmittedAt = s.clock.Now()
	s.queue = append(s.queue, job)
	idle := s.timer == nil
	depth := len(s.queue)
	s.mu.Unlock()

	s.logger.Debug("job queued",
		zap.String("job_id", job.ID.String()),
		zap.Int("queue_depth", depth),
	)

	if idle {
		s.process()
	}
	return job, nil
}

// Do submits work and waits for its result
func (s *Scheduler) Do(ctx context.Context, work Work) (string, error) {
	job, err := s.Submit(ctx, work)
	if err != nil {
		return "", err
	}
	return job.Wait(ctx)
}

// process makes one admission decision and arms the next check if needed
func (s *Scheduler) process() {
	s.mu.Lock()
	if s.closed || len(s.queue) == 0 {
		s.disarm()
		s.mu.Unlock()
		return
	}

	now := s.clock.Now()
	elapsed := now.Sub(s.windowStart)
	if elapsed >= s.cfg.Window {
		s.count = 0
		s.windowStart = now
		elapsed = 0
	}

	if s.count >= s.cfg.Quota {
		wait := s.cfg.Window - elapsed
		depth := len(s.queue)
		s.arm(wait)
		s.mu.Unlock()

		s.logger.Debug("quota exhausted, waiting for window reset",
			zap.Duration("wait", wait),
			zap.Int("queue_depth", depth),
		)
		return
	}

	job := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	s.count++
	s.totalAdmitted++
	job.AdmittedAt = now
	if len(s.queue) > 0 {
		s.arm(s.cfg.Window / time.Duration(s.cfg.Quota))
	} else {
		s.disarm()
	}
	s.mu.Unlock()

	s.logger.Debug("job admitted",
		zap.String("job_id", job.ID.String()),
		zap.Duration("queued_for", now.Sub(job.SubmittedAt)),
	)

	go s.run(job)
}

// arm replaces any pending check with one after d. Callers hold s.mu.
func (s *Scheduler) arm(d time.Duration) {
	s.disarm()
	s.timer = s.clock.AfterFunc(d, s.process)
}

// disarm drops the pending check. Callers hold s.mu.
func (s *Scheduler) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) run(job *Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked",
				zap.String("job_id", job.ID.String()),
				zap.Any("panic", r),
			)
			s.finish(job, "", services.WrapInternal("job panicked", fmt.Errorf("%v", r)))
		}
	}()

	result, err := job.work(job.ctx)
	s.finish(job, result, err)
}

func (s *Scheduler) finish(job *Job, result string, err error) {
	if !job.resolve(result, err) {
		return
	}

	s.mu.Lock()
	if err != nil {
		s.totalFailed++
	} else {
		s.totalSucceeded++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Debug("job failed", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}

// Stats returns the current admission state
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Quota:          s.cfg.Quota,
		Window:         s.cfg.Window,
		AdmittedCount:  s.count,
		WindowStart:    s.windowStart,
		QueueDepth:     len(s.queue),
		TotalAdmitted:  s.totalAdmitted,
		TotalSucceeded: s.totalSucceeded,
		TotalFailed:    s.totalFailed,
	}
}

// Close stops the pending check and fails every queued job with
// ErrSchedulerClosed. Jobs already running are left to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.disarm()
	pending := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, job := range pending {
		s.finish(job, "", ErrSchedulerClosed)
	}
	if len(pending) > 0 {
		s.logger.Info("scheduler closed with queued jobs", zap.Int("dropped", len(pending)))
	}
}
