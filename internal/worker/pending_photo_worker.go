package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/photoverify_api/internal/models"
)

const pendingPhotoBatch = 50

// PendingPhotoStore finds photos still awaiting processing and counts failed attempts.
type PendingPhotoStore interface {
	ListPending(ctx context.Context, olderThan time.Time, limit int) ([]models.VerificationPhoto, error)
	RecordFailure(ctx context.Context, id string, cause string) error
}

// PendingPhotoProcessor retries verification of a single photo.
type PendingPhotoProcessor interface {
	ProcessPending(ctx context.Context, p *models.VerificationPhoto, final bool) error
}

// PendingPhotoWorker retries photos left pending because their object could not be read.
type PendingPhotoWorker struct {
	repo        PendingPhotoStore
	processor   PendingPhotoProcessor
	interval    time.Duration
	grace       time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewPendingPhotoWorker constructs a PendingPhotoWorker.
func NewPendingPhotoWorker(
	repo PendingPhotoStore,
	processor PendingPhotoProcessor,
	interval, grace time.Duration,
	maxAttempts int,
) *PendingPhotoWorker {
	return &PendingPhotoWorker{
		repo:        repo,
		processor:   processor,
		interval:    interval,
		grace:       grace,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Start begins the periodic loop until context is canceled.
func (w *PendingPhotoWorker) Start(ctx context.Context) {
	log.Info().
		Dur("interval", w.interval).
		Dur("grace", w.grace).
		Int("max_attempts", w.maxAttempts).
		Msg("Starting pending photo worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Pending photo worker stopped")
			return
		}
	}
}

func (w *PendingPhotoWorker) run(ctx context.Context) {
	photos, err := w.repo.ListPending(ctx, w.now().Add(-w.grace), pendingPhotoBatch)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get pending photos")
		return
	}
	if len(photos) == 0 {
		return
	}
	log.Info().Int("count", len(photos)).Msg("Processing pending photos")

	for i := range photos {
		select {
		case <-ctx.Done():
			return
		default:
			w.processPhoto(ctx, &photos[i])
		}
	}
}

func (w *PendingPhotoWorker) processPhoto(ctx context.Context, p *models.VerificationPhoto) {
	final := p.ProcessingAttempts+1 >= w.maxAttempts
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("photo_id", p.ID).
				Msg("Panic while processing pending photo")
			if err := w.repo.RecordFailure(ctx, p.ID, fmt.Sprintf("panic: %v", r)); err != nil {
				log.Error().Err(err).Str("photo_id", p.ID).Msg("Failed to record processing failure")
			}
		}
	}()

	if err := w.processor.ProcessPending(ctx, p, final); err != nil {
		log.Warn().
			Err(err).
			Str("photo_id", p.ID).
			Int("attempt", p.ProcessingAttempts+1).
			Bool("final", final).
			Msg("Pending photo still unprocessed")
	}
}
