package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	domainerrors "github.com/surdiana/modelbank/internal/errors"
	"github.com/surdiana/modelbank/internal/model"
	"go.uber.org/zap"
)

func newAuditFixture() (*AuditService, *fakeAuditStore) {
	store := newFakeAuditStore()
	return NewAuditService(store, zap.NewNop()), store
}

func appendN(t *testing.T, svc *AuditService, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := svc.Record(context.Background(), AuditEvent{
			ActorID:   "actor-1",
			ActorName: "alice",
			Action:    model.ActionRecordUpdate,
			Detail:    map[string]interface{}{"seq": i},
		})
		require.NoError(t, err)
	}
}

func TestAuditChainLinks(t *testing.T) {
	svc, store := newAuditFixture()
	appendN(t, svc, 3)

	require.Len(t, store.entries, 3)
	require.Equal(t, int64(1), store.entries[0].ID)
	require.Equal(t, model.GenesisHash(), store.entries[0].PreviousHash)

	for i := 1; i < len(store.entries); i++ {
		require.Equal(t, store.entries[i-1].ID+1, store.entries[i].ID)
		require.Equal(t, store.entries[i-1].EntryHash, store.entries[i].PreviousHash)
	}
	for i := range store.entries {
		require.Equal(t, store.entries[i].EntryHash, store.entries[i].ComputeHash())
	}
}

func TestAuditVerifyEmptyLog(t *testing.T) {
	svc, _ := newAuditFixture()

	report, err := svc.VerifyChain(context.Background())
	require.NoError(t, err)
	require.True(t, report.Valid)
	require.Zero(t, report.EntriesRead)
}

func TestAuditVerifyIntactChain(t *testing.T) {
	svc, _ := newAuditFixture()
	appendN(t, svc, 5)

	report, err := svc.VerifyChain(context.Background())
	require.NoError(t, err)
	require.True(t, report.Valid)
	require.Equal(t, int64(5), report.EntriesRead)
	require.Equal(t, int64(5), report.LastEntryID)
}

func TestAuditVerifyDetectsTamperedDetail(t *testing.T) {
	svc, store := newAuditFixture()
	appendN(t, svc, 5)

	store.tamper(3, func(e *model.AuditEntry) {
		e.Detail = `{"seq":99}`
	})

	report, err := svc.VerifyChain(context.Background())
	require.Error(t, err)

	var ierr *domainerrors.IntegrityError
	require.True(t, errors.As(err, &ierr))
	require.Equal(t, int64(3), ierr.EntryID)
	require.False(t, report.Valid)
	require.Equal(t, int64(3), report.FirstBadID)
}

func TestAuditVerifyDetectsRecomputedTail(t *testing.T) {
	svc, store := newAuditFixture()
	appendN(t, svc, 3)

	// Rewriting an entry and recomputing its own hash still breaks
	// the link from the next entry.
	store.tamper(2, func(e *model.AuditEntry) {
		e.Detail = `{"seq":99}`
		e.EntryHash = e.ComputeHash()
	})

	_, err := svc.VerifyChain(context.Background())
	var ierr *domainerrors.IntegrityError
	require.True(t, errors.As(err, &ierr))
	require.Equal(t, int64(3), ierr.EntryID)
}

func TestAuditVerifyDetectsDeletedEntry(t *testing.T) {
	svc, store := newAuditFixture()
	appendN(t, svc, 4)

	store.mu.Lock()
	store.entries = append(store.entries[:1], store.entries[2:]...)
	store.mu.Unlock()

	_, err := svc.VerifyChain(context.Background())
	var ierr *domainerrors.IntegrityError
	require.True(t, errors.As(err, &ierr))
	require.Equal(t, int64(3), ierr.EntryID)
}

func TestAuditListFilters(t *testing.T) {
	svc, _ := newAuditFixture()
	appendN(t, svc, 2)
	require.NoError(t, svc.Record(context.Background(), AuditEvent{
		ActorID:   "actor-2",
		ActorName: "bob",
		Action:    model.ActionLogin,
	}))

	entries, total, err := svc.List(context.Background(), AuditFilter{Action: model.ActionLogin, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "actor-2", entries[0].ActorID)
}
