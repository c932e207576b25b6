package service

import (
	"context"
	"sort"
	"sync"
	"time"

	domainerrors "github.com/surdiana/modelbank/internal/errors"
	"github.com/surdiana/modelbank/internal/model"
)

// In-memory store fakes. They honor the same contracts as the
// Postgres repositories, so the services' protocol logic is what the
// tests exercise.

type fakeUserStore struct {
	mu      sync.Mutex
	users   map[string]*model.User
	history map[string][]string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:   make(map[string]*model.User),
		history: make(map[string][]string),
	}
}

func (s *fakeUserStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *fakeUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (s *fakeUserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *fakeUserStore) RecordLoginFailure(_ context.Context, id string, failedCount int, lockedUntil *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	user.FailedLoginCount = failedCount
	user.LockedUntil = lockedUntil
	return nil
}

func (s *fakeUserStore) RecordLoginSuccess(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	user.FailedLoginCount = 0
	user.LockedUntil = nil
	user.LastLoginAt = &at
	return nil
}

func (s *fakeUserStore) ChangePassword(_ context.Context, id, oldHash, newHash string, at time.Time, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	user.PasswordHash = newHash
	user.PasswordChangedAt = &at
	s.history[id] = append([]string{oldHash}, s.history[id]...)
	if keep > 0 && len(s.history[id]) > keep {
		s.history[id] = s.history[id][:keep]
	}
	return nil
}

func (s *fakeUserStore) PasswordHistory(_ context.Context, id string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hashes := s.history[id]
	if len(hashes) > limit {
		hashes = hashes[:limit]
	}
	return append([]string(nil), hashes...), nil
}

func (s *fakeUserStore) List(_ context.Context, page, pageSize int) ([]model.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []model.User
	for _, user := range s.users {
		users = append(users, *user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	total := int64(len(users))
	start := (page - 1) * pageSize
	if start > len(users) {
		start = len(users)
	}
	end := start + pageSize
	if end > len(users) {
		end = len(users)
	}
	return users[start:end], total, nil
}

func (s *fakeUserStore) Update(_ context.Context, id string, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	if role, ok := updates["role"].(string); ok {
		user.Role = role
	}
	if active, ok := updates["is_active"].(bool); ok {
		user.IsActive = active
	}
	if at, ok := updates["updated_at"].(time.Time); ok {
		user.UpdatedAt = at
	}
	return nil
}

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*model.RefreshToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]*model.RefreshToken)}
}

func (s *fakeTokenStore) Tx(_ context.Context, fn func(tx RefreshTokenTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&fakeTokenTx{store: s})
}

func (s *fakeTokenStore) Create(_ context.Context, token *model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *token
	s.tokens[token.ID] = &copied
	return nil
}

func (s *fakeTokenStore) RevokeFamily(_ context.Context, familyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range s.tokens {
		if token.FamilyID == familyID {
			token.Revoked = true
		}
	}
	return nil
}

func (s *fakeTokenStore) RevokeAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range s.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (s *fakeTokenStore) get(id string) *model.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[id]
}

// fakeTokenTx operates under the store mutex held by Tx.
type fakeTokenTx struct {
	store *fakeTokenStore
}

func (t *fakeTokenTx) GetForUpdate(id string) (*model.RefreshToken, error) {
	token, ok := t.store.tokens[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (t *fakeTokenTx) MarkUsed(id string, at time.Time) error {
	token, ok := t.store.tokens[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	token.UsedAt = &at
	return nil
}

func (t *fakeTokenTx) RevokeFamily(familyID string) error {
	for _, token := range t.store.tokens {
		if token.FamilyID == familyID {
			token.Revoked = true
		}
	}
	return nil
}

func (t *fakeTokenTx) Insert(token *model.RefreshToken) error {
	copied := *token
	t.store.tokens[token.ID] = &copied
	return nil
}

type fakeRecordHeader struct {
	meta   model.RecordMeta
	extras map[string]interface{}
}

type fakeRecordStore struct {
	mu      sync.Mutex
	headers map[RecordKind]map[string]*fakeRecordHeader
	snaps   map[RecordKind]map[string]map[int]*model.VersionSnapshot
}

func newFakeRecordStore() *fakeRecordStore {
	s := &fakeRecordStore{
		headers: make(map[RecordKind]map[string]*fakeRecordHeader),
		snaps:   make(map[RecordKind]map[string]map[int]*model.VersionSnapshot),
	}
	for _, kind := range []RecordKind{KindEntity, KindRelationship, KindModel} {
		s.headers[kind] = make(map[string]*fakeRecordHeader)
		s.snaps[kind] = make(map[string]map[int]*model.VersionSnapshot)
	}
	return s
}

func (s *fakeRecordStore) Tx(_ context.Context, fn func(tx RecordTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&fakeRecordTx{store: s})
}

func (s *fakeRecordStore) view(kind RecordKind, header *fakeRecordHeader, snap *model.VersionSnapshot) *model.RecordView {
	typeLabel, _ := header.extras[string(kind)+"_type"].(string)
	if kind == KindModel {
		typeLabel, _ = header.extras["diagram_type"].(string)
	}
	return &model.RecordView{
		ID:             header.meta.ID,
		CurrentVersion: header.meta.CurrentVersion,
		Version:        snap.Version,
		IsDeleted:      header.meta.IsDeleted,
		Name:           snap.Name,
		Description:    snap.Description,
		Data:           snap.Data,
		ChangeType:     snap.ChangeType,
		ChangeSummary:  snap.ChangeSummary,
		RollbackTo:     snap.RollbackTo,
		TypeLabel:      typeLabel,
		CreatedAt:      header.meta.CreatedAt,
		CreatedBy:      header.meta.CreatedBy,
		UpdatedAt:      header.meta.UpdatedAt,
	}
}

func (s *fakeRecordStore) Get(_ context.Context, kind RecordKind, id string, version int) (*model.RecordView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	header, ok := s.headers[kind][id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	snap, ok := s.snaps[kind][id][version]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return s.view(kind, header, snap), nil
}

func (s *fakeRecordStore) GetCurrent(_ context.Context, kind RecordKind, id string) (*model.RecordView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	header, ok := s.headers[kind][id]
	if !ok || header.meta.IsDeleted {
		return nil, domainerrors.ErrNotFound
	}
	snap := s.snaps[kind][id][header.meta.CurrentVersion]
	return s.view(kind, header, snap), nil
}

func (s *fakeRecordStore) ListVersions(_ context.Context, kind RecordKind, id string) ([]model.VersionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byVersion, ok := s.snaps[kind][id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	var out []model.VersionSnapshot
	for _, snap := range byVersion {
		out = append(out, *snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (s *fakeRecordStore) List(_ context.Context, kind RecordKind, filter RecordFilter) ([]model.RecordView, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var views []model.RecordView
	for id, header := range s.headers[kind] {
		if header.meta.IsDeleted && !filter.IncludeDeleted {
			continue
		}
		snap := s.snaps[kind][id][header.meta.CurrentVersion]
		view := s.view(kind, header, snap)
		if filter.TypeLabel != "" && view.TypeLabel != filter.TypeLabel {
			continue
		}
		views = append(views, *view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, int64(len(views)), nil
}

func (s *fakeRecordStore) EntityExists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	header, ok := s.headers[KindEntity][id]
	return ok && !header.meta.IsDeleted, nil
}

// fakeRecordTx operates under the store mutex held by Tx.
type fakeRecordTx struct {
	store *fakeRecordStore
}

func (t *fakeRecordTx) HeaderForUpdate(kind RecordKind, id string) (*model.RecordMeta, error) {
	header, ok := t.store.headers[kind][id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	copied := header.meta
	return &copied, nil
}

func (t *fakeRecordTx) InsertHeader(kind RecordKind, meta *model.RecordMeta, extras map[string]interface{}) error {
	t.store.headers[kind][meta.ID] = &fakeRecordHeader{meta: *meta, extras: extras}
	t.store.snaps[kind][meta.ID] = make(map[int]*model.VersionSnapshot)
	return nil
}

func (t *fakeRecordTx) UpdateHeader(kind RecordKind, id string, currentVersion int, isDeleted bool, updatedAt time.Time) error {
	header, ok := t.store.headers[kind][id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	header.meta.CurrentVersion = currentVersion
	header.meta.IsDeleted = isDeleted
	header.meta.UpdatedAt = updatedAt
	return nil
}

func (t *fakeRecordTx) InsertSnapshot(kind RecordKind, snap *model.VersionSnapshot) error {
	copied := *snap
	t.store.snaps[kind][snap.RecordID][snap.Version] = &copied
	return nil
}

func (t *fakeRecordTx) Snapshot(kind RecordKind, id string, version int) (*model.VersionSnapshot, error) {
	snap, ok := t.store.snaps[kind][id][version]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	copied := *snap
	return &copied, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func newFakeAuditStore() *fakeAuditStore {
	return &fakeAuditStore{}
}

func (s *fakeAuditStore) Append(_ context.Context, build func(lastID int64, lastHash string) (*model.AuditEntry, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lastID := int64(0)
	lastHash := model.GenesisHash()
	if n := len(s.entries); n > 0 {
		lastID = s.entries[n-1].ID
		lastHash = s.entries[n-1].EntryHash
	}
	entry, err := build(lastID, lastHash)
	if err != nil {
		return err
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *fakeAuditStore) Scan(_ context.Context, fn func(e *model.AuditEntry) error) error {
	s.mu.Lock()
	entries := append([]model.AuditEntry(nil), s.entries...)
	s.mu.Unlock()
	for i := range entries {
		if err := fn(&entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeAuditStore) List(_ context.Context, filter AuditFilter) ([]model.AuditEntry, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AuditEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if filter.ActorID != "" && e.ActorID != filter.ActorID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.TargetType != "" && e.TargetType != filter.TargetType {
			continue
		}
		if filter.TargetID != "" && e.TargetID != filter.TargetID {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (s *fakeAuditStore) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.entries {
		out = append(out, e.Action)
	}
	return out
}

// tamper mutates a stored entry in place, breaking the chain.
func (s *fakeAuditStore) tamper(id int64, mutate func(e *model.AuditEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			mutate(&s.entries[i])
			return
		}
	}
}

var (
	_ UserStore         = (*fakeUserStore)(nil)
	_ RefreshTokenStore = (*fakeTokenStore)(nil)
	_ RecordStore       = (*fakeRecordStore)(nil)
	_ AuditStore        = (*fakeAuditStore)(nil)
)
