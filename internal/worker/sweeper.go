package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/super-videotheque/backend/pkg/queue"
)

// maxSweepRounds bounds one RunOnce so a huge backlog cannot pin the worker.
const maxSweepRounds = 100

// SweepConfig configures a Sweeper.
type SweepConfig struct {
	BatchSize int
	Retention time.Duration // zero disables purging
	// RequireArchived keeps expired rows until the archive job has stored them.
	RequireArchived bool
}

// Report is the outcome of one sweep.
type Report struct {
	Expired int   `json:"expired"`
	Purged  int64 `json:"purged"`
}

// Sweeper expires lapsed rentals ahead of the next read and purges old expired rows.
// Reads stay correct without it.
type Sweeper struct {
	store  RentalStore
	queue  JobQueue
	cfg    SweepConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewSweeper creates a sweeper. q may be nil when archiving is disabled.
func NewSweeper(store RentalStore, q JobQueue, cfg SweepConfig, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Sweeper{store: store, queue: q, cfg: cfg, logger: logger, now: time.Now}
}

// RunOnce expires every due rental, queues each for archiving, then purges.
func (s *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	var report Report
	now := s.now()

	for round := 0; round < maxSweepRounds; round++ {
		ids, err := s.store.ExpireDue(ctx, now, s.cfg.BatchSize)
		if err != nil {
			return report, err
		}
		report.Expired += len(ids)
		if s.queue != nil {
			for _, id := range ids {
				if err := s.queue.EnqueueRentalArchive(ctx, queue.RentalArchivePayload{RentalID: id, ExpiredAt: now}); err != nil {
					s.logger.Warn("enqueue rental archive failed", zap.Error(err), zap.String("rental_id", id.String()))
				}
			}
		}
		if len(ids) < s.cfg.BatchSize {
			break
		}
	}

	if s.cfg.Retention > 0 {
		purged, err := s.store.PurgeExpiredBefore(ctx, now.Add(-s.cfg.Retention), s.cfg.RequireArchived)
		if err != nil {
			return report, err
		}
		report.Purged = purged
	}

	if report.Expired > 0 || report.Purged > 0 {
		s.logger.Info("rental sweep finished", zap.Int("expired", report.Expired), zap.Int64("purged", report.Purged))
	}
	return report, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("rental sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return
		case <-ticker.C:
		}
	}
}
