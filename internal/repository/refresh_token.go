package repository

import (
	"context"
	"time"

	"github.com/surdiana/modelbank/internal/model"
	"github.com/surdiana/modelbank/internal/service"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshTokenRepository persists the refresh token ledger.
type RefreshTokenRepository struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(db *gorm.DB, lockTimeout time.Duration) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db, lockTimeout: lockTimeout}
}

// Tx runs fn in a transaction with a bounded lock wait. Contention is
// retried with backoff; domain errors from fn pass through.
func (r *RefreshTokenRepository) Tx(ctx context.Context, fn func(tx service.RefreshTokenTx) error) error {
	return withRetry(ctx, func() error {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := setLockTimeout(tx, r.lockTimeout); err != nil {
				return err
			}
			return fn(&refreshTokenTx{tx: tx})
		})
		return translateError(err)
	})
}

// Create inserts a ledger row outside any caller transaction.
func (r *RefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	return translateError(r.db.WithContext(ctx).Create(token).Error)
}

// RevokeFamily marks every token of a family revoked.
func (r *RefreshTokenRepository) RevokeFamily(ctx context.Context, familyID string) error {
	err := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("family_id = ?", familyID).
		Update("revoked", true).Error
	return translateError(err)
}

// RevokeAllForUser marks every token of a user revoked.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("user_id = ?", userID).
		Update("revoked", true).Error
	return translateError(err)
}

// DeleteExpired removes rows whose expiry passed before the cutoff.
// Revocation state of live tokens is never touched.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&model.RefreshToken{})
	return result.RowsAffected, translateError(result.Error)
}

type refreshTokenTx struct {
	tx *gorm.DB
}

// GetForUpdate locks and returns one ledger row. Rotation decisions
// for the same token serialize on this lock.
func (t *refreshTokenTx) GetForUpdate(id string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	err := t.tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&token).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &token, nil
}

// MarkUsed stamps used_at on a previously unused row.
func (t *refreshTokenTx) MarkUsed(id string, at time.Time) error {
	err := t.tx.
		Model(&model.RefreshToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at).Error
	return translateError(err)
}

// RevokeFamily marks every token of a family revoked within the
// transaction.
func (t *refreshTokenTx) RevokeFamily(familyID string) error {
	err := t.tx.
		Model(&model.RefreshToken{}).
		Where("family_id = ?", familyID).
		Update("revoked", true).Error
	return translateError(err)
}

// Insert adds a ledger row within the transaction.
func (t *refreshTokenTx) Insert(token *model.RefreshToken) error {
	return translateError(t.tx.Create(token).Error)
}
