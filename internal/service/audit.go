package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	domainerrors "github.com/surdiana/modelbank/internal/errors"
	"github.com/surdiana/modelbank/internal/model"
	"go.uber.org/zap"
)

// AuditEvent is everything a caller supplies for one audit entry. The
// service assigns the ID, timestamp and hashes.
type AuditEvent struct {
	ActorID    string
	ActorName  string
	Action     string
	TargetType string
	TargetID   string
	Detail     map[string]interface{}
	ClientAddr string
	SessionID  string
}

// VerifyReport summarizes a full chain verification pass.
type VerifyReport struct {
	Valid       bool
	EntriesRead int64
	FirstBadID  int64
	LastEntryID int64
}

// AuditService appends to and verifies the hash-chained audit log.
type AuditService struct {
	store AuditStore
	log   *zap.Logger
	now   func() time.Time
}

// NewAuditService creates an audit service
func NewAuditService(store AuditStore, log *zap.Logger) *AuditService {
	return &AuditService{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Record appends one entry to the chain. The store serializes writers;
// the builder runs with the chain tail in hand, so the link and hash
// are computed against the true predecessor even under concurrency.
func (s *AuditService) Record(ctx context.Context, ev AuditEvent) error {
	detail := ""
	if ev.Detail != nil {
		raw, err := json.Marshal(ev.Detail)
		if err != nil {
			return domainerrors.WrapError(domainerrors.ErrInternal, err)
		}
		detail = string(raw)
	}

	err := s.store.Append(ctx, func(lastID int64, lastHash string) (*model.AuditEntry, error) {
		entry := &model.AuditEntry{
			ID:           lastID + 1,
			Timestamp:    s.now().UTC().Format(model.AuditTimeFormat),
			ActorID:      ev.ActorID,
			ActorName:    ev.ActorName,
			Action:       ev.Action,
			TargetType:   ev.TargetType,
			TargetID:     ev.TargetID,
			Detail:       detail,
			ClientAddr:   ev.ClientAddr,
			SessionID:    ev.SessionID,
			PreviousHash: lastHash,
		}
		entry.EntryHash = entry.ComputeHash()
		return entry, nil
	})
	if err != nil {
		s.log.Error("audit append failed",
			zap.String("action", ev.Action),
			zap.String("actor_id", ev.ActorID),
			zap.Error(err))
		return err
	}
	return nil
}

// TryRecord appends an entry and logs instead of failing when the
// append cannot complete. Used where the primary operation has already
// committed and must not be unwound by audit trouble.
func (s *AuditService) TryRecord(ctx context.Context, ev AuditEvent) {
	_ = s.Record(ctx, ev)
}

// VerifyChain walks the log in ID order and recomputes every link.
// Returns an IntegrityError naming the first broken entry. An empty
// log is valid.
func (s *AuditService) VerifyChain(ctx context.Context) (*VerifyReport, error) {
	report := &VerifyReport{Valid: true}
	prevHash := model.GenesisHash()
	prevID := int64(0)

	err := s.store.Scan(ctx, func(e *model.AuditEntry) error {
		report.EntriesRead++
		report.LastEntryID = e.ID

		if e.ID != prevID+1 || e.PreviousHash != prevHash || e.ComputeHash() != e.EntryHash {
			report.Valid = false
			report.FirstBadID = e.ID
			return &domainerrors.IntegrityError{EntryID: e.ID}
		}

		prevID = e.ID
		prevHash = e.EntryHash
		return nil
	})
	if err != nil {
		var ierr *domainerrors.IntegrityError
		if errors.As(err, &ierr) {
			return report, err
		}
		return nil, err
	}
	return report, nil
}

// List returns audit entries newest first with pagination.
func (s *AuditService) List(ctx context.Context, filter AuditFilter) ([]model.AuditEntry, int64, error) {
	return s.store.List(ctx, filter)
}
