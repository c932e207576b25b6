package service

import (
	"context"
	"time"

	"github.com/surdiana/modelbank/internal/model"
)

// RecordKind selects one of the versioned record families.
type RecordKind string

const (
	KindEntity       RecordKind = "entity"
	KindRelationship RecordKind = "relationship"
	KindModel        RecordKind = "model"
)

// Valid reports whether k names a known record kind.
func (k RecordKind) Valid() bool {
	switch k {
	case KindEntity, KindRelationship, KindModel:
		return true
	}
	return false
}

// RecordFilter narrows record listings.
type RecordFilter struct {
	TypeLabel      string
	IncludeDeleted bool
	Page           int
	PageSize       int
}

// RecordTx is the transactional view of the record store. Header reads
// take row locks so that version checks and writes are atomic.
type RecordTx interface {
	HeaderForUpdate(kind RecordKind, id string) (*model.RecordMeta, error)
	InsertHeader(kind RecordKind, meta *model.RecordMeta, extras map[string]interface{}) error
	UpdateHeader(kind RecordKind, id string, currentVersion int, isDeleted bool, updatedAt time.Time) error
	InsertSnapshot(kind RecordKind, snap *model.VersionSnapshot) error
	Snapshot(kind RecordKind, id string, version int) (*model.VersionSnapshot, error)
}

// RecordStore abstracts persistence for versioned records.
type RecordStore interface {
	Tx(ctx context.Context, fn func(tx RecordTx) error) error
	Get(ctx context.Context, kind RecordKind, id string, version int) (*model.RecordView, error)
	GetCurrent(ctx context.Context, kind RecordKind, id string) (*model.RecordView, error)
	ListVersions(ctx context.Context, kind RecordKind, id string) ([]model.VersionSnapshot, error)
	List(ctx context.Context, kind RecordKind, filter RecordFilter) ([]model.RecordView, int64, error)
	EntityExists(ctx context.Context, id string) (bool, error)
}

// AuditFilter narrows audit log listings.
type AuditFilter struct {
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Page       int
	PageSize   int
}

// AuditStore abstracts the append-only audit log. Append serializes
// writers and hands the builder the current tail so the service can
// link the new entry; the store persists whatever the builder returns.
type AuditStore interface {
	Append(ctx context.Context, build func(lastID int64, lastHash string) (*model.AuditEntry, error)) error
	Scan(ctx context.Context, fn func(e *model.AuditEntry) error) error
	List(ctx context.Context, filter AuditFilter) ([]model.AuditEntry, int64, error)
}

// UserStore abstracts account persistence.
type UserStore interface {
	Count(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	RecordLoginFailure(ctx context.Context, id string, failedCount int, lockedUntil *time.Time) error
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error
	// ChangePassword installs the new hash, archives the old one and
	// prunes history beyond keep, in one transaction.
	ChangePassword(ctx context.Context, id, oldHash, newHash string, at time.Time, keep int) error
	PasswordHistory(ctx context.Context, id string, limit int) ([]string, error)
	List(ctx context.Context, page, pageSize int) ([]model.User, int64, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
}

// RefreshTokenTx is the transactional view of the refresh token
// ledger. GetForUpdate locks the row so rotation decisions serialize.
type RefreshTokenTx interface {
	GetForUpdate(id string) (*model.RefreshToken, error)
	MarkUsed(id string, at time.Time) error
	RevokeFamily(familyID string) error
	Insert(token *model.RefreshToken) error
}

// RefreshTokenStore abstracts the refresh token ledger.
type RefreshTokenStore interface {
	Tx(ctx context.Context, fn func(tx RefreshTokenTx) error) error
	Create(ctx context.Context, token *model.RefreshToken) error
	RevokeFamily(ctx context.Context, familyID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}
