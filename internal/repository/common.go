package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	domainerrors "github.com/surdiana/modelbank/internal/errors"
	"gorm.io/gorm"
)

// maxTxRetries bounds retries of transactions aborted by lock
// timeouts or serialization failures.
const maxTxRetries = 3

// translateError maps driver errors to domain errors. Lock timeouts
// and serialization failures become CONTENTION so callers know a retry
// can succeed; missing rows become NOT_FOUND.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainerrors.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "40001", "40P01": // lock_not_available, serialization_failure, deadlock_detected
			return domainerrors.WrapError(domainerrors.ErrContention, err)
		case "23505": // unique_violation
			return domainerrors.WrapError(domainerrors.ErrVersionConflict, err)
		}
	}
	return err
}

// withRetry reruns fn while it fails with CONTENTION, backing off
// between attempts. Domain errors other than CONTENTION pass through
// untouched; retrying a VERSION_CONFLICT would never succeed.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, domainerrors.ErrContention) {
			return err
		}
		backoff := time.Duration(50<<uint(attempt)) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}

// setLockTimeout bounds how long the transaction waits for row locks.
// SET LOCAL scopes it to the current transaction.
func setLockTimeout(tx *gorm.DB, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.Milliseconds())).Error
}
