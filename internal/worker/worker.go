package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/super-videotheque/backend/internal/models"
	"github.com/super-videotheque/backend/pkg/queue"
	"github.com/super-videotheque/backend/pkg/storage"
)

// RentalStore is the rental persistence the worker needs.
type RentalStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	MarkArchived(ctx context.Context, id uuid.UUID, at time.Time) error
	ExpireDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	PurgeExpiredBefore(ctx context.Context, cutoff time.Time, requireArchived bool) (int64, error)
}

// ObjectStore writes archive documents.
type ObjectStore interface {
	PutJSON(ctx context.Context, key string, v any) (string, error)
}

// JobQueue is the archive job queue.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
	EnqueueRentalArchive(ctx context.Context, payload queue.RentalArchivePayload) error
}

// ArchiveProcessor copies expired rentals to object storage.
type ArchiveProcessor struct {
	store   RentalStore
	objects ObjectStore
	queue   JobQueue
	logger  *zap.Logger
	now     func() time.Time
	backoff time.Duration
}

// NewArchiveProcessor creates an archive processor.
func NewArchiveProcessor(store RentalStore, objects ObjectStore, q JobQueue, logger *zap.Logger) *ArchiveProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveProcessor{store: store, objects: objects, queue: q, logger: logger, now: time.Now, backoff: queue.RetryBackoff}
}

// Process executes one rental archive job. Rentals that are gone, still active or already archived are skipped.
func (p *ArchiveProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeRentalArchive {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.RentalArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	rental, err := p.store.FindByID(ctx, payload.RentalID)
	if err != nil {
		return fmt.Errorf("find rental %s: %w", payload.RentalID, err)
	}
	if rental == nil {
		p.logger.Info("rental gone before archive", zap.String("rental_id", payload.RentalID.String()))
		return nil
	}
	if rental.Status != models.RentalStatusExpired || rental.ArchivedAt != nil {
		return nil
	}

	// signed URLs are bearer credentials until they lapse; keep them out of the archive
	doc := *rental
	doc.LastSignedURL = ""
	key := storage.RentalArchiveKey(rental.ID, rental.ExpiresAt.UTC().Year(), int(rental.ExpiresAt.UTC().Month()))
	loc, err := p.objects.PutJSON(ctx, key, doc)
	if err != nil {
		return fmt.Errorf("archive upload: %w", err)
	}
	if err := p.store.MarkArchived(ctx, rental.ID, p.now()); err != nil {
		return fmt.Errorf("mark archived: %w", err)
	}

	p.logger.Info("rental archived", zap.String("rental_id", rental.ID.String()), zap.String("location", loc))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ArchiveProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("archive worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *ArchiveProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
