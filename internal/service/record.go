package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/surdiana/modelbank/internal/dto"
	domainerrors "github.com/surdiana/modelbank/internal/errors"
	"github.com/surdiana/modelbank/internal/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Actor identifies the authenticated caller for audit purposes.
type Actor struct {
	UserID     string
	Username   string
	Role       string
	ClientAddr string
	SessionID  string
}

// RecordService implements versioned writes over the three record
// kinds. Every mutation checks the caller's base version against the
// header under a row lock, appends an immutable snapshot and bumps the
// header, so concurrent writers lose cleanly instead of overwriting.
type RecordService struct {
	store RecordStore
	audit *AuditService
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

// NewRecordService creates a record service
func NewRecordService(store RecordStore, audit *AuditService, log *zap.Logger) *RecordService {
	return &RecordService{
		store: store,
		audit: audit,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func auditActionFor(change string) string {
	switch change {
	case model.ChangeCreate:
		return model.ActionRecordCreate
	case model.ChangeRollback:
		return model.ActionRecordRollback
	case model.ChangeDelete:
		return model.ActionRecordDelete
	default:
		return model.ActionRecordUpdate
	}
}

func (s *RecordService) create(ctx context.Context, actor Actor, kind RecordKind, extras map[string]interface{}, name string, description *string, data datatypes.JSON) (*model.RecordView, error) {
	id := s.newID()
	now := s.now().UTC()

	err := s.store.Tx(ctx, func(tx RecordTx) error {
		meta := &model.RecordMeta{
			ID:             id,
			CurrentVersion: 1,
			CreatedAt:      now,
			CreatedBy:      actor.UserID,
			UpdatedAt:      now,
		}
		if err := tx.InsertHeader(kind, meta, extras); err != nil {
			return err
		}
		return tx.InsertSnapshot(kind, &model.VersionSnapshot{
			RecordID:    id,
			Version:     1,
			Name:        name,
			Description: description,
			Data:        data,
			ChangeType:  model.ChangeCreate,
			CreatedAt:   now,
			CreatedBy:   actor.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.TryRecord(ctx, AuditEvent{
		ActorID:    actor.UserID,
		ActorName:  actor.Username,
		Action:     model.ActionRecordCreate,
		TargetType: string(kind),
		TargetID:   id,
		Detail:     map[string]interface{}{"version": 1, "name": name},
		ClientAddr: actor.ClientAddr,
		SessionID:  actor.SessionID,
	})

	return s.store.GetCurrent(ctx, kind, id)
}

// CreateEntity creates an entity at version 1.
func (s *RecordService) CreateEntity(ctx context.Context, actor Actor, req dto.CreateEntityRequest) (*model.RecordView, error) {
	extras := map[string]interface{}{"entity_type": req.EntityType}
	return s.create(ctx, actor, KindEntity, extras, req.Name, req.Description, req.Data)
}

// CreateRelationship creates a relationship between two existing
// entities. Dangling endpoints are rejected up front.
func (s *RecordService) CreateRelationship(ctx context.Context, actor Actor, req dto.CreateRelationshipRequest) (*model.RecordView, error) {
	for _, entityID := range []string{req.SourceEntityID, req.TargetEntityID} {
		ok, err := s.store.EntityExists(ctx, entityID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domainerrors.ErrNotFound
		}
	}

	extras := map[string]interface{}{
		"source_entity_id":  req.SourceEntityID,
		"target_entity_id":  req.TargetEntityID,
		"relationship_type": req.RelationshipType,
	}
	return s.create(ctx, actor, KindRelationship, extras, req.Name, req.Description, req.Data)
}

// CreateModel creates a model artifact at version 1.
func (s *RecordService) CreateModel(ctx context.Context, actor Actor, req dto.CreateModelRequest) (*model.RecordView, error) {
	extras := map[string]interface{}{"diagram_type": req.DiagramType}
	return s.create(ctx, actor, KindModel, extras, req.Name, req.Description, req.Data)
}

// Update writes a new version if the caller's base version still
// matches the header. A mismatch is a VERSION_CONFLICT, never a merge.
func (s *RecordService) Update(ctx context.Context, actor Actor, kind RecordKind, id string, req dto.UpdateRecordRequest) (*model.RecordView, error) {
	var newVersion int
	err := s.store.Tx(ctx, func(tx RecordTx) error {
		header, err := tx.HeaderForUpdate(kind, id)
		if err != nil {
			return err
		}
		if header.IsDeleted {
			return domainerrors.ErrNotFound
		}
		if header.CurrentVersion != req.BaseVersion {
			return domainerrors.ErrVersionConflict
		}

		newVersion = header.CurrentVersion + 1
		now := s.now().UTC()
		if err := tx.InsertSnapshot(kind, &model.VersionSnapshot{
			RecordID:      id,
			Version:       newVersion,
			Name:          req.Name,
			Description:   req.Description,
			Data:          req.Data,
			ChangeType:    model.ChangeUpdate,
			ChangeSummary: req.ChangeSummary,
			CreatedAt:     now,
			CreatedBy:     actor.UserID,
		}); err != nil {
			return err
		}
		return tx.UpdateHeader(kind, id, newVersion, false, now)
	})
	if err != nil {
		return nil, err
	}

	s.audit.TryRecord(ctx, AuditEvent{
		ActorID:    actor.UserID,
		ActorName:  actor.Username,
		Action:     model.ActionRecordUpdate,
		TargetType: string(kind),
		TargetID:   id,
		Detail:     map[string]interface{}{"from_version": req.BaseVersion, "to_version": newVersion},
		ClientAddr: actor.ClientAddr,
		SessionID:  actor.SessionID,
	})

	return s.store.GetCurrent(ctx, kind, id)
}

// Rollback copies a prior version's content forward as a new version.
// History is never rewritten; the restored state gets its own version
// number with rollback_to pointing at the source.
func (s *RecordService) Rollback(ctx context.Context, actor Actor, kind RecordKind, id string, req dto.RollbackRequest) (*model.RecordView, error) {
	var newVersion int
	err := s.store.Tx(ctx, func(tx RecordTx) error {
		header, err := tx.HeaderForUpdate(kind, id)
		if err != nil {
			return err
		}
		if header.IsDeleted {
			return domainerrors.ErrNotFound
		}
		if header.CurrentVersion != req.BaseVersion {
			return domainerrors.ErrVersionConflict
		}

		target, err := tx.Snapshot(kind, id, req.TargetVersion)
		if err != nil {
			return err
		}

		newVersion = header.CurrentVersion + 1
		now := s.now().UTC()
		targetVersion := req.TargetVersion
		if err := tx.InsertSnapshot(kind, &model.VersionSnapshot{
			RecordID:      id,
			Version:       newVersion,
			Name:          target.Name,
			Description:   target.Description,
			Data:          target.Data,
			ChangeType:    model.ChangeRollback,
			ChangeSummary: req.ChangeSummary,
			RollbackTo:    &targetVersion,
			CreatedAt:     now,
			CreatedBy:     actor.UserID,
		}); err != nil {
			return err
		}
		return tx.UpdateHeader(kind, id, newVersion, false, now)
	})
	if err != nil {
		return nil, err
	}

	s.audit.TryRecord(ctx, AuditEvent{
		ActorID:    actor.UserID,
		ActorName:  actor.Username,
		Action:     model.ActionRecordRollback,
		TargetType: string(kind),
		TargetID:   id,
		Detail:     map[string]interface{}{"to_version": newVersion, "restored_from": req.TargetVersion},
		ClientAddr: actor.ClientAddr,
		SessionID:  actor.SessionID,
	})

	return s.store.GetCurrent(ctx, kind, id)
}

// Delete soft-deletes a record. The tombstone is itself a version, so
// the full history including the deletion survives.
func (s *RecordService) Delete(ctx context.Context, actor Actor, kind RecordKind, id string, req dto.DeleteRecordRequest) error {
	var newVersion int
	err := s.store.Tx(ctx, func(tx RecordTx) error {
		header, err := tx.HeaderForUpdate(kind, id)
		if err != nil {
			return err
		}
		if header.IsDeleted {
			return domainerrors.ErrNotFound
		}
		if header.CurrentVersion != req.BaseVersion {
			return domainerrors.ErrVersionConflict
		}

		current, err := tx.Snapshot(kind, id, header.CurrentVersion)
		if err != nil {
			return err
		}

		newVersion = header.CurrentVersion + 1
		now := s.now().UTC()
		if err := tx.InsertSnapshot(kind, &model.VersionSnapshot{
			RecordID:    id,
			Version:     newVersion,
			Name:        current.Name,
			Description: current.Description,
			Data:        current.Data,
			ChangeType:  model.ChangeDelete,
			CreatedAt:   now,
			CreatedBy:   actor.UserID,
		}); err != nil {
			return err
		}
		return tx.UpdateHeader(kind, id, newVersion, true, now)
	})
	if err != nil {
		return err
	}

	s.audit.TryRecord(ctx, AuditEvent{
		ActorID:    actor.UserID,
		ActorName:  actor.Username,
		Action:     model.ActionRecordDelete,
		TargetType: string(kind),
		TargetID:   id,
		Detail:     map[string]interface{}{"version": newVersion},
		ClientAddr: actor.ClientAddr,
		SessionID:  actor.SessionID,
	})

	return nil
}

// Get returns the current state of a record.
func (s *RecordService) Get(ctx context.Context, kind RecordKind, id string) (*model.RecordView, error) {
	return s.store.GetCurrent(ctx, kind, id)
}

// GetVersion returns a specific historical version.
func (s *RecordService) GetVersion(ctx context.Context, kind RecordKind, id string, version int) (*model.RecordView, error) {
	return s.store.Get(ctx, kind, id, version)
}

// ListVersions returns the full version history of a record, oldest
// first.
func (s *RecordService) ListVersions(ctx context.Context, kind RecordKind, id string) ([]model.VersionSnapshot, error) {
	return s.store.ListVersions(ctx, kind, id)
}

// List returns current states matching the filter with pagination.
func (s *RecordService) List(ctx context.Context, kind RecordKind, filter RecordFilter) ([]model.RecordView, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	return s.store.List(ctx, kind, filter)
}
