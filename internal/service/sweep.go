package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// SweepService periodically moves Active and Voided vouchers past their
// expiration date to Expired. It never touches a ledger; expiry is a status
// change only, and it is applied by this sweep rather than eagerly on read.
type SweepService struct {
	pool     TxBeginner
	vouchers VoucherRepositoryInterface
}

// NewSweepService creates a SweepService.
func NewSweepService(pool *pgxpool.Pool, vouchers VoucherRepositoryInterface) *SweepService {
	return &SweepService{pool: pool, vouchers: vouchers}
}

// NewSweepServiceWithTxBeginner creates a SweepService with a custom
// TxBeginner. Primarily used for testing.
func NewSweepServiceWithTxBeginner(pool TxBeginner, vouchers VoucherRepositoryInterface) *SweepService {
	return &SweepService{pool: pool, vouchers: vouchers}
}

// Run performs one sweep pass and returns how many vouchers were expired.
// Each voucher is expired in its own transaction; a failure on one voucher
// does not stop the pass.
func (s *SweepService) Run(ctx context.Context) (int, error) {
	now := time.Now()
	ids, err := s.vouchers.ListExpirable(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		changed, err := s.expireOne(ctx, id, now)
		if err != nil {
			log.Error().Err(err).Str("voucher_id", id.String()).Msg("expiry sweep failed for voucher")
			continue
		}
		if changed {
			expired++
		}
	}
	if expired > 0 {
		log.Info().Int("expired", expired).Msg("expiry sweep pass completed")
	}
	return expired, nil
}

func (s *SweepService) expireOne(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	v, err := s.vouchers.GetForUpdate(ctx, tx, id)
	if err != nil {
		return false, err
	}

	// The voucher may have been mutated between the list query and the row
	// lock; re-check against the locked row.
	changed, err := v.ExpireIfDue(now)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	if err := s.vouchers.Update(ctx, tx, v); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// Start runs sweep passes on the given interval until the context is
// cancelled.
func (s *SweepService) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				log.Error().Err(err).Msg("expiry sweep pass failed")
			}
		}
	}
}
