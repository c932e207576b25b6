package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/surdiana/modelbank/internal/dto"
	domainerrors "github.com/surdiana/modelbank/internal/errors"
	"github.com/surdiana/modelbank/internal/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func newRecordFixture() (*RecordService, *fakeRecordStore, *fakeAuditStore) {
	records := newFakeRecordStore()
	audit := newFakeAuditStore()
	svc := NewRecordService(records, NewAuditService(audit, zap.NewNop()), zap.NewNop())
	return svc, records, audit
}

func editorActor() Actor {
	return Actor{
		UserID:     "9f1b2a1c-0000-4000-8000-000000000001",
		Username:   "alice",
		Role:       model.RoleEditor,
		ClientAddr: "10.0.0.1",
		SessionID:  "session-1",
	}
}

func createEntity(t *testing.T, svc *RecordService) *model.RecordView {
	t.Helper()
	view, err := svc.CreateEntity(context.Background(), editorActor(), dto.CreateEntityRequest{
		Name:       "Customer",
		EntityType: "table",
		Data:       datatypes.JSON(`{"columns":["id","name"]}`),
	})
	require.NoError(t, err)
	return view
}

func TestRecordCreateStartsAtVersionOne(t *testing.T) {
	svc, _, audit := newRecordFixture()

	view := createEntity(t, svc)
	require.Equal(t, 1, view.CurrentVersion)
	require.Equal(t, 1, view.Version)
	require.Equal(t, model.ChangeCreate, view.ChangeType)
	require.Equal(t, "table", view.TypeLabel)
	require.Contains(t, audit.actions(), model.ActionRecordCreate)
}

func TestRecordUpdateBumpsVersion(t *testing.T) {
	svc, _, _ := newRecordFixture()
	view := createEntity(t, svc)

	updated, err := svc.Update(context.Background(), editorActor(), KindEntity, view.ID, dto.UpdateRecordRequest{
		BaseVersion: 1,
		Name:        "Customer",
		Data:        datatypes.JSON(`{"columns":["id","name","email"]}`),
	})
	require.NoError(t, err)
	require.Equal(t, 2, updated.CurrentVersion)
	require.Equal(t, model.ChangeUpdate, updated.ChangeType)

	// version 1 is still readable, untouched
	v1, err := svc.GetVersion(context.Background(), KindEntity, view.ID, 1)
	require.NoError(t, err)
	require.JSONEq(t, `{"columns":["id","name"]}`, string(v1.Data))
}

func TestRecordUpdateStaleBaseConflicts(t *testing.T) {
	svc, _, _ := newRecordFixture()
	view := createEntity(t, svc)

	_, err := svc.Update(context.Background(), editorActor(), KindEntity, view.ID, dto.UpdateRecordRequest{
		BaseVersion: 1,
		Name:        "Customer",
		Data:        datatypes.JSON(`{"v":2}`),
	})
	require.NoError(t, err)

	// A second writer still holding version 1 must lose.
	_, err = svc.Update(context.Background(), editorActor(), KindEntity, view.ID, dto.UpdateRecordRequest{
		BaseVersion: 1,
		Name:        "Customer",
		Data:        datatypes.JSON(`{"v":3}`),
	})
	require.ErrorIs(t, err, domainerrors.ErrVersionConflict)

	current, err := svc.Get(context.Background(), KindEntity, view.ID)
	require.NoError(t, err)
	require.Equal(t, 2, current.CurrentVersion)
	require.JSONEq(t, `{"v":2}`, string(current.Data))
}

func TestRecordRollbackCopiesContentForward(t *testing.T) {
	svc, _, audit := newRecordFixture()
	view := createEntity(t, svc)

	_, err := svc.Update(context.Background(), editorActor(), KindEntity, view.ID, dto.UpdateRecordRequest{
		BaseVersion: 1,
		Name:        "Customer v2",
		Data:        datatypes.JSON(`{"v":2}`),
	})
	require.NoError(t, err)

	restored, err := svc.Rollback(context.Background(), editorActor(), KindEntity, view.ID, dto.RollbackRequest{
		BaseVersion:   2,
		TargetVersion: 1,
	})
	require.NoError(t, err)
	require.Equal(t, 3, restored.CurrentVersion)
	require.Equal(t, model.ChangeRollback, restored.ChangeType)
	require.NotNil(t, restored.RollbackTo)
	require.Equal(t, 1, *restored.RollbackTo)
	require.Equal(t, "Customer", restored.Name)
	require.JSONEq(t, `{"columns":["id","name"]}`, string(restored.Data))

	// history keeps all three versions
	versions, err := svc.ListVersions(context.Background(), KindEntity, view.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	require.Contains(t, audit.actions(), model.ActionRecordRollback)
}

func TestRecordRollbackToMissingVersion(t *testing.T) {
	svc, _, _ := newRecordFixture()
	view := createEntity(t, svc)

	_, err := svc.Rollback(context.Background(), editorActor(), KindEntity, view.ID, dto.RollbackRequest{
		BaseVersion:   1,
		TargetVersion: 7,
	})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestRecordRollbackStaleBaseConflicts(t *testing.T) {
	svc, _, _ := newRecordFixture()
	view := createEntity(t, svc)

	_, err := svc.Rollback(context.Background(), editorActor(), KindEntity, view.ID, dto.RollbackRequest{
		BaseVersion:   5,
		TargetVersion: 1,
	})
	require.ErrorIs(t, err, domainerrors.ErrVersionConflict)
}

func TestRecordDeleteIsSoftAndVersioned(t *testing.T) {
	svc, _, audit := newRecordFixture()
	view := createEntity(t, svc)

	err := svc.Delete(context.Background(), editorActor(), KindEntity, view.ID, dto.DeleteRecordRequest{BaseVersion: 1})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), KindEntity, view.ID)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	// history, including the tombstone, remains readable
	versions, err := svc.ListVersions(context.Background(), KindEntity, view.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.Equal(t, model.ChangeDelete, versions[1].ChangeType)
	require.Contains(t, audit.actions(), model.ActionRecordDelete)

	// a second delete, and updates, see NOT_FOUND
	err = svc.Delete(context.Background(), editorActor(), KindEntity, view.ID, dto.DeleteRecordRequest{BaseVersion: 2})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestRelationshipRequiresLiveEndpoints(t *testing.T) {
	svc, _, _ := newRecordFixture()
	source := createEntity(t, svc)

	_, err := svc.CreateRelationship(context.Background(), editorActor(), dto.CreateRelationshipRequest{
		Name:             "owns",
		SourceEntityID:   source.ID,
		TargetEntityID:   "00000000-0000-4000-8000-00000000dead",
		RelationshipType: "ownership",
		Data:             datatypes.JSON(`{}`),
	})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	target := createEntity(t, svc)
	view, err := svc.CreateRelationship(context.Background(), editorActor(), dto.CreateRelationshipRequest{
		Name:             "owns",
		SourceEntityID:   source.ID,
		TargetEntityID:   target.ID,
		RelationshipType: "ownership",
		Data:             datatypes.JSON(`{}`),
	})
	require.NoError(t, err)
	require.Equal(t, "ownership", view.TypeLabel)
}

func TestRecordListFiltersDeletedAndType(t *testing.T) {
	svc, _, _ := newRecordFixture()

	kept := createEntity(t, svc)
	dropped := createEntity(t, svc)
	require.NoError(t, svc.Delete(context.Background(), editorActor(), KindEntity, dropped.ID, dto.DeleteRecordRequest{BaseVersion: 1}))

	views, total, err := svc.List(context.Background(), KindEntity, RecordFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, kept.ID, views[0].ID)

	views, _, err = svc.List(context.Background(), KindEntity, RecordFilter{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, views, 2)

	_, total, err = svc.List(context.Background(), KindEntity, RecordFilter{TypeLabel: "view"})
	require.NoError(t, err)
	require.Zero(t, total)
}
