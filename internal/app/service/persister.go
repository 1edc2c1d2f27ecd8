package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"viral-search-service/internal/domain"
	"viral-search-service/internal/metrics"
)

// Persistence stages, also used as the stage metric label.
const (
	StagePublishers = "publishers"
	StageItems      = "items"
	StageScores     = "scores"
	StageHistory    = "history"
	StageEvent      = "event"
)

// Persister defaults.
const (
	DefaultPersistWorkers   = 2
	DefaultPersistQueueSize = 256
	DefaultPersistTimeout   = 30 * time.Second
)

// ErrPersisterStopped is returned by Stop when called twice.
var ErrPersisterStopped = errors.New("persister already stopped")

// PersistJob is the background work produced by one search.
type PersistJob struct {
	ID         string
	Publishers []domain.Publisher
	Items      []domain.Item
	Scored     []domain.ScoredItem
	History    *domain.SearchHistoryEntry
	Event      *domain.SearchEvent
}

// PersisterConfig holds worker pool settings.
type PersisterConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Persister writes search results in the background through a bounded
// queue. Jobs never see the request context; each runs under its own
// timeout. A nil repo or nil events disables the matching stages.
type Persister struct {
	repo    domain.ScoreRepository
	events  domain.EventPublisher
	timeout time.Duration
	workers int
	logger  *zap.Logger

	jobs   chan PersistJob
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPersister creates a Persister. Call Start before enqueueing.
func NewPersister(
	repo domain.ScoreRepository,
	events domain.EventPublisher,
	cfg PersisterConfig,
	logger *zap.Logger,
) *Persister {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultPersistWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultPersistQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPersistTimeout
	}

	return &Persister{
		repo:    repo,
		events:  events,
		timeout: cfg.Timeout,
		workers: cfg.Workers,
		logger:  logger,
		jobs:    make(chan PersistJob, cfg.QueueSize),
	}
}

// Start launches the workers.
func (p *Persister) Start() {
	p.logger.Info("starting persister",
		zap.Int("workers", p.workers),
		zap.Int("queue_size", cap(p.jobs)),
	)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Enqueue schedules a job without blocking. It reports false when the job
// was dropped because the queue is full or the persister stopped.
func (p *Persister) Enqueue(job PersistJob) bool {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("persister stopped, dropping job", zap.String("job_id", job.ID))
		metrics.PersistDroppedTotal.Inc()

		return false
	}

	select {
	case p.jobs <- job:
		metrics.PersistQueueDepth.Set(float64(len(p.jobs)))

		return true
	default:
		p.logger.Warn("persist queue full, dropping job",
			zap.String("job_id", job.ID),
			zap.Int("queue_size", cap(p.jobs)),
		)
		metrics.PersistDroppedTotal.Inc()

		return false
	}
}

// Stop stops accepting jobs and waits until queued jobs finish or ctx ends.
func (p *Persister) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()

		return ErrPersisterStopped
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("persister drained")

		return nil
	case <-ctx.Done():
		p.logger.Warn("persister drain interrupted", zap.Int("pending", len(p.jobs)))

		return ctx.Err()
	}
}

func (p *Persister) worker() {
	defer p.wg.Done()

	for job := range p.jobs {
		metrics.PersistQueueDepth.Set(float64(len(p.jobs)))
		p.run(job)
	}
}

// run executes the stages of one job in dependency order. A failed stage is
// logged and counted; later stages still run.
func (p *Persister) run(job PersistJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	log := p.logger.With(zap.String("job_id", job.ID))
	start := time.Now()
	failed := 0

	if p.repo != nil {
		if len(job.Publishers) > 0 && !p.stage(ctx, log, StagePublishers, func(ctx context.Context) error {
			return p.repo.UpsertPublishers(ctx, job.Publishers)
		}) {
			failed++
		}

		if len(job.Items) > 0 && !p.stage(ctx, log, StageItems, func(ctx context.Context) error {
			return p.repo.UpsertItems(ctx, job.Items)
		}) {
			failed++
		}

		if len(job.Scored) > 0 && !p.stage(ctx, log, StageScores, func(ctx context.Context) error {
			return p.repo.InsertScores(ctx, job.Scored)
		}) {
			failed++
		}

		if job.History != nil && !p.stage(ctx, log, StageHistory, func(ctx context.Context) error {
			return p.repo.SaveSearch(ctx, *job.History)
		}) {
			failed++
		}
	}

	if p.events != nil && job.Event != nil && !p.stage(ctx, log, StageEvent, func(ctx context.Context) error {
		return p.events.PublishSearch(ctx, *job.Event)
	}) {
		failed++
	}

	log.Debug("persist job finished",
		zap.Int("publishers", len(job.Publishers)),
		zap.Int("items", len(job.Items)),
		zap.Int("scores", len(job.Scored)),
		zap.Int("failed_stages", failed),
		zap.Duration("took", time.Since(start)),
	)
}

func (p *Persister) stage(ctx context.Context, log *zap.Logger, name string, fn func(context.Context) error) bool {
	if err := fn(ctx); err != nil {
		log.Error("persist stage failed", zap.String("stage", name), zap.Error(err))
		metrics.PersistFailuresTotal.WithLabelValues(name).Inc()

		return false
	}

	return true
}
