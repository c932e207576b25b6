package repository

import (
	"context"
	"time"

	"github.com/surdiana/modelbank/internal/model"
	"gorm.io/gorm"
)

// UserRepository persists accounts and password history in Postgres.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Count returns the number of accounts.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error
	return count, translateError(err)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

// RecordLoginFailure stores the bumped failure count and, when the
// threshold was crossed, the lockout deadline.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id string, failedCount int, lockedUntil *time.Time) error {
	updates := map[string]interface{}{
		"failed_login_count": failedCount,
		"locked_until":       lockedUntil,
	}
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
	return translateError(err)
}

// RecordLoginSuccess clears the failure state and stamps the login time.
func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	updates := map[string]interface{}{
		"failed_login_count": 0,
		"locked_until":       nil,
		"last_login_at":      at,
	}
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
	return translateError(err)
}

// ChangePassword installs the new hash, archives the old one and
// prunes history beyond keep, all in one transaction.
func (r *UserRepository) ChangePassword(ctx context.Context, id, oldHash, newHash string, at time.Time, keep int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"password_hash":       newHash,
			"password_changed_at": at,
			"updated_at":          at,
		}
		if err := tx.Model(&model.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Create(&model.PasswordHistory{
			UserID:       id,
			PasswordHash: oldHash,
			ChangedAt:    at,
		}).Error; err != nil {
			return err
		}

		if keep > 0 {
			return tx.Exec(`
				DELETE FROM password_history
				WHERE user_id = ? AND id NOT IN (
					SELECT id FROM (
						SELECT id FROM password_history
						WHERE user_id = ?
						ORDER BY changed_at DESC, id DESC
						LIMIT ?
					) recent
				)`, id, id, keep).Error
		}
		return nil
	})
	return translateError(err)
}

// PasswordHistory returns the most recent retired hashes, newest first.
func (r *UserRepository) PasswordHistory(ctx context.Context, id string, limit int) ([]string, error) {
	var hashes []string
	err := r.db.WithContext(ctx).
		Model(&model.PasswordHistory{}).
		Where("user_id = ?", id).
		Order("changed_at DESC, id DESC").
		Limit(limit).
		Pluck("password_hash", &hashes).Error
	if err != nil {
		return nil, translateError(err)
	}
	return hashes, nil
}

// List returns users with pagination.
func (r *UserRepository) List(ctx context.Context, page, pageSize int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, translateError(err)
	}
	return users, total, nil
}

// Update applies column updates to a user.
func (r *UserRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}
