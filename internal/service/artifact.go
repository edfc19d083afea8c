package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
)

// ArtifactRecorder records artifact outcomes against a voucher. Implemented
// by VoucherService.
type ArtifactRecorder interface {
	MarkArtifactGenerated(ctx context.Context, id uuid.UUID) error
	AppendAuditNote(ctx context.Context, id uuid.UUID, note string) error
}

// ArtifactTrigger requests printable voucher rendering after activation.
// Rendering is async and best-effort: a failure is logged as a voucher audit
// note and never affects ledger state. Triggering is idempotent, so it is
// safe to enqueue again whenever qualifying data changes.
type ArtifactTrigger struct {
	renderer ArtifactRenderer
	recorder ArtifactRecorder
	timeout  time.Duration
	jobs     chan uuid.UUID
}

// NewArtifactTrigger creates an ArtifactTrigger with the given queue size.
// The render timeout belongs to the external call, not to ledger operations.
func NewArtifactTrigger(renderer ArtifactRenderer, recorder ArtifactRecorder, buffer int, timeout time.Duration) *ArtifactTrigger {
	if buffer < 1 {
		buffer = 1
	}
	return &ArtifactTrigger{
		renderer: renderer,
		recorder: recorder,
		timeout:  timeout,
		jobs:     make(chan uuid.UUID, buffer),
	}
}

// AfterMutation requests rendering for any active voucher that has no
// artifact yet. Implements RedemptionObserver.
func (t *ArtifactTrigger) AfterMutation(_ context.Context, v *model.Voucher) {
	if v.Status == model.StatusActive && !v.ArtifactGenerated {
		t.Enqueue(v.ID)
	}
}

// Enqueue requests rendering without blocking. A full queue drops the
// request; the next qualifying mutation re-enqueues it.
func (t *ArtifactTrigger) Enqueue(id uuid.UUID) {
	select {
	case t.jobs <- id:
	default:
		log.Warn().Str("voucher_id", id.String()).Msg("artifact queue full, dropping render request")
	}
}

// Start consumes the queue until the context is cancelled.
func (t *ArtifactTrigger) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-t.jobs:
			t.render(ctx, id)
		}
	}
}

func (t *ArtifactTrigger) render(ctx context.Context, id uuid.UUID) {
	renderCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.renderer.Render(renderCtx, id); err != nil {
		log.Error().Err(err).Str("voucher_id", id.String()).Msg("voucher artifact rendering failed")
		note := fmt.Sprintf("Voucher artifact generation failed: %s.", err)
		if noteErr := t.recorder.AppendAuditNote(ctx, id, note); noteErr != nil {
			log.Error().Err(noteErr).Str("voucher_id", id.String()).Msg("failed to record artifact failure note")
		}
		return
	}

	if err := t.recorder.MarkArtifactGenerated(ctx, id); err != nil {
		log.Error().Err(err).Str("voucher_id", id.String()).Msg("failed to mark artifact as generated")
		return
	}
	log.Info().Str("voucher_id", id.String()).Msg("voucher artifact generated")
}
