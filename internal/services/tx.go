package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-board-backend/internal/observability"
	"github.com/tbourn/go-board-backend/internal/repo"
)

// DefaultMaxAttempts bounds how many times a conflicting transaction is run.
const DefaultMaxAttempts = 5

// TxRunner runs units of work in a database transaction and re-runs the whole
// transaction when it fails with a conflict (a lost unique-index race reported
// as ErrConflict, or a busy/serialization failure from the store). Any other
// error is returned immediately.
type TxRunner struct {
	DB *gorm.DB

	// MaxAttempts caps the total number of runs; <= 0 means DefaultMaxAttempts.
	MaxAttempts int

	// InitialInterval is the first backoff delay; <= 0 means 5ms.
	InitialInterval time.Duration
}

// Run executes fn inside a transaction, retrying on conflict. After the last
// attempt a conflict is reported as ErrConflict.
func (r TxRunner) Run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	initial := r.InitialInterval
	if initial <= 0 {
		initial = 5 * time.Millisecond
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = 40 * initial

	try := 0
	op := func() (struct{}, error) {
		try++
		err := r.DB.WithContext(ctx).Transaction(fn)
		if err == nil {
			return struct{}{}, nil
		}
		if !isConflict(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		observability.NumberingConflicts.Inc()
		zerolog.Ctx(ctx).Debug().Err(err).Int("attempt", try).Msg("write conflict, retrying")
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(attempts)),
	)
	if err != nil && isConflict(err) {
		zerolog.Ctx(ctx).Warn().Int("attempts", try).Msg("write conflict persisted")
		return ErrConflict
	}
	return err
}

func isConflict(err error) bool {
	return errors.Is(err, ErrConflict) || repo.IsBusy(err)
}
