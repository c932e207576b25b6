package repository

import (
	"context"
	"errors"

	"github.com/surdiana/modelbank/internal/model"
	"github.com/surdiana/modelbank/internal/service"
	"gorm.io/gorm"
)

// auditLockKey is the advisory lock serializing audit appends. One
// writer at a time sees the chain tail, computes the next link and
// inserts it; pg_advisory_xact_lock releases on commit or rollback.
const auditLockKey int64 = 0x6d_62_61_75_64_69_74 // "mbaudit"

// AuditRepository persists the hash-chained audit log.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append serializes on the advisory lock, reads the chain tail, calls
// the builder with it and inserts the result.
func (r *AuditRepository) Append(ctx context.Context, build func(lastID int64, lastHash string) (*model.AuditEntry, error)) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", auditLockKey).Error; err != nil {
			return err
		}

		lastID := int64(0)
		lastHash := model.GenesisHash()

		var tail model.AuditEntry
		err := tx.Order("id DESC").First(&tail).Error
		switch {
		case err == nil:
			lastID = tail.ID
			lastHash = tail.EntryHash
		case errors.Is(err, gorm.ErrRecordNotFound):
			// empty log, chain starts at genesis
		default:
			return err
		}

		entry, err := build(lastID, lastHash)
		if err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
	return translateError(err)
}

// Scan walks the log in ID order, batched so verification of a large
// log does not hold the whole table in memory.
func (r *AuditRepository) Scan(ctx context.Context, fn func(e *model.AuditEntry) error) error {
	var batch []model.AuditEntry
	result := r.db.WithContext(ctx).
		Model(&model.AuditEntry{}).
		FindInBatches(&batch, 500, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				if err := fn(&batch[i]); err != nil {
					return err
				}
			}
			return nil
		})
	return result.Error
}

// List returns entries newest first with optional filters.
func (r *AuditRepository) List(ctx context.Context, filter service.AuditFilter) ([]model.AuditEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.AuditEntry{})

	if filter.ActorID != "" {
		query = query.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != "" {
		query = query.Where("target_id = ?", filter.TargetID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var entries []model.AuditEntry
	err := query.
		Order("id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, translateError(err)
	}
	return entries, total, nil
}
