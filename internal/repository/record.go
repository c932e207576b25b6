package repository

import (
	"context"
	"fmt"
	"time"

	domainerrors "github.com/surdiana/modelbank/internal/errors"
	"github.com/surdiana/modelbank/internal/model"
	"github.com/surdiana/modelbank/internal/service"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Table and column names per record kind. The three kinds share one
// schema shape, so the store addresses them by name instead of
// repeating the queries three times.
func headerTable(kind service.RecordKind) string {
	switch kind {
	case service.KindEntity:
		return "entities"
	case service.KindRelationship:
		return "relationships"
	default:
		return "models"
	}
}

func versionTable(kind service.RecordKind) string {
	switch kind {
	case service.KindEntity:
		return "entity_versions"
	case service.KindRelationship:
		return "relationship_versions"
	default:
		return "model_versions"
	}
}

func typeColumn(kind service.RecordKind) string {
	switch kind {
	case service.KindEntity:
		return "entity_type"
	case service.KindRelationship:
		return "relationship_type"
	default:
		return "diagram_type"
	}
}

// RecordRepository persists versioned records in Postgres.
type RecordRepository struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *gorm.DB, lockTimeout time.Duration) *RecordRepository {
	return &RecordRepository{db: db, lockTimeout: lockTimeout}
}

// Tx runs fn in a transaction with a bounded lock wait. Contention is
// retried with backoff; version conflicts pass through untouched.
func (r *RecordRepository) Tx(ctx context.Context, fn func(tx service.RecordTx) error) error {
	return withRetry(ctx, func() error {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := setLockTimeout(tx, r.lockTimeout); err != nil {
				return err
			}
			return fn(&recordTx{tx: tx})
		})
		return translateError(err)
	})
}

func (r *RecordRepository) viewQuery(ctx context.Context, kind service.RecordKind) *gorm.DB {
	header := headerTable(kind)
	version := versionTable(kind)
	return r.db.WithContext(ctx).
		Table(header+" AS h").
		Select(fmt.Sprintf(
			"h.id, h.current_version, v.version, h.is_deleted, v.name, v.description, v.data, "+
				"v.change_type, v.change_summary, v.rollback_to, h.%s AS type_label, "+
				"h.created_at, h.created_by, h.updated_at",
			typeColumn(kind))).
		Joins(fmt.Sprintf("JOIN %s v ON v.record_id = h.id", version))
}

// Get returns one historical version joined with the header. Deleted
// records remain readable through their history.
func (r *RecordRepository) Get(ctx context.Context, kind service.RecordKind, id string, version int) (*model.RecordView, error) {
	var view model.RecordView
	err := r.viewQuery(ctx, kind).
		Where("h.id = ? AND v.version = ?", id, version).
		Take(&view).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &view, nil
}

// GetCurrent returns the live state of a record. Soft-deleted records
// read as NOT_FOUND here.
func (r *RecordRepository) GetCurrent(ctx context.Context, kind service.RecordKind, id string) (*model.RecordView, error) {
	var view model.RecordView
	err := r.viewQuery(ctx, kind).
		Where("h.id = ? AND v.version = h.current_version AND h.is_deleted = false", id).
		Take(&view).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &view, nil
}

// ListVersions returns a record's full history, oldest first.
func (r *RecordRepository) ListVersions(ctx context.Context, kind service.RecordKind, id string) ([]model.VersionSnapshot, error) {
	var exists int64
	err := r.db.WithContext(ctx).
		Table(headerTable(kind)).
		Where("id = ?", id).
		Count(&exists).Error
	if err != nil {
		return nil, translateError(err)
	}
	if exists == 0 {
		return nil, domainerrors.ErrNotFound
	}

	var snaps []model.VersionSnapshot
	err = r.db.WithContext(ctx).
		Table(versionTable(kind)).
		Where("record_id = ?", id).
		Order("version ASC").
		Find(&snaps).Error
	if err != nil {
		return nil, translateError(err)
	}
	return snaps, nil
}

// List returns current states matching the filter with pagination.
func (r *RecordRepository) List(ctx context.Context, kind service.RecordKind, filter service.RecordFilter) ([]model.RecordView, int64, error) {
	countQuery := r.db.WithContext(ctx).Table(headerTable(kind) + " AS h")
	listQuery := r.viewQuery(ctx, kind).Where("v.version = h.current_version")

	if !filter.IncludeDeleted {
		countQuery = countQuery.Where("h.is_deleted = false")
		listQuery = listQuery.Where("h.is_deleted = false")
	}
	if filter.TypeLabel != "" {
		cond := fmt.Sprintf("h.%s = ?", typeColumn(kind))
		countQuery = countQuery.Where(cond, filter.TypeLabel)
		listQuery = listQuery.Where(cond, filter.TypeLabel)
	}

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var views []model.RecordView
	err := listQuery.
		Order("h.updated_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&views).Error
	if err != nil {
		return nil, 0, translateError(err)
	}
	return views, total, nil
}

// EntityExists reports whether a live entity with the given ID exists.
func (r *RecordRepository) EntityExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Entity{}).
		Where("id = ? AND is_deleted = false", id).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

type recordTx struct {
	tx *gorm.DB
}

// HeaderForUpdate locks and returns a record header. Concurrent
// writers to the same record serialize on this lock, which makes the
// version check race-free.
func (t *recordTx) HeaderForUpdate(kind service.RecordKind, id string) (*model.RecordMeta, error) {
	var meta model.RecordMeta
	err := t.tx.
		Table(headerTable(kind)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&meta).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &meta, nil
}

// InsertHeader creates a header row with its kind-specific columns.
func (t *recordTx) InsertHeader(kind service.RecordKind, meta *model.RecordMeta, extras map[string]interface{}) error {
	row := map[string]interface{}{
		"id":              meta.ID,
		"current_version": meta.CurrentVersion,
		"is_deleted":      meta.IsDeleted,
		"created_at":      meta.CreatedAt,
		"created_by":      meta.CreatedBy,
		"updated_at":      meta.UpdatedAt,
	}
	for k, v := range extras {
		row[k] = v
	}
	return translateError(t.tx.Table(headerTable(kind)).Create(row).Error)
}

// UpdateHeader bumps the version pointer and deletion flag.
func (t *recordTx) UpdateHeader(kind service.RecordKind, id string, currentVersion int, isDeleted bool, updatedAt time.Time) error {
	err := t.tx.
		Table(headerTable(kind)).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_version": currentVersion,
			"is_deleted":      isDeleted,
			"updated_at":      updatedAt,
		}).Error
	return translateError(err)
}

// InsertSnapshot writes one immutable version row.
func (t *recordTx) InsertSnapshot(kind service.RecordKind, snap *model.VersionSnapshot) error {
	return translateError(t.tx.Table(versionTable(kind)).Create(snap).Error)
}

// Snapshot returns one version row within the transaction.
func (t *recordTx) Snapshot(kind service.RecordKind, id string, version int) (*model.VersionSnapshot, error) {
	var snap model.VersionSnapshot
	err := t.tx.
		Table(versionTable(kind)).
		Where("record_id = ? AND version = ?", id, version).
		Take(&snap).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &snap, nil
}
