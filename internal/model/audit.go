package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// GenesisSeed anchors the first entry of the audit chain. Verification
// recomputes from this constant, so it must never change once a
// deployment has written its first entry.
const GenesisSeed = "MODELBANK_AUDIT_GENESIS"

// AuditTimeFormat is the canonical timestamp layout hashed into each
// entry. The timestamp is stored as text so that verification reads
// back the exact bytes that were hashed, untouched by driver rounding.
const AuditTimeFormat = "2006-01-02T15:04:05.000000Z07:00"

// AuditEntry is one link of the tamper-evident log. IDs are assigned
// by the writer, not the database, because the hash covers the ID and
// must be computed before insert.
type AuditEntry struct {
	ID           int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Timestamp    string `gorm:"type:varchar(40);not null" json:"timestamp"`
	ActorID      string `gorm:"type:varchar(64);index;not null" json:"actor_id"`
	ActorName    string `gorm:"type:varchar(64);not null" json:"actor_name"`
	Action       string `gorm:"type:varchar(64);index;not null" json:"action"`
	TargetType   string `gorm:"type:varchar(32);index" json:"target_type"`
	TargetID     string `gorm:"type:varchar(64);index" json:"target_id"`
	Detail       string `gorm:"type:text" json:"detail"`
	ClientAddr   string `gorm:"type:varchar(64)" json:"client_addr"`
	SessionID    string `gorm:"type:varchar(64)" json:"session_id"`
	PreviousHash string `gorm:"type:char(64);not null" json:"previous_hash"`
	EntryHash    string `gorm:"type:char(64);not null" json:"entry_hash"`
}

// TableName specifies the table name for AuditEntry model
func (AuditEntry) TableName() string {
	return "audit_log"
}

// GenesisHash returns the hash that stands in as the previous_hash of
// the first entry.
func GenesisHash() string {
	sum := sha256.Sum256([]byte(GenesisSeed))
	return hex.EncodeToString(sum[:])
}

// ComputeHash derives the entry hash from every stored field except
// EntryHash itself. Field order is part of the format.
func (e *AuditEntry) ComputeHash() string {
	payload := strings.Join([]string{
		strconv.FormatInt(e.ID, 10),
		e.Timestamp,
		e.ActorID,
		e.ActorName,
		e.Action,
		e.TargetType,
		e.TargetID,
		e.Detail,
		e.ClientAddr,
		e.SessionID,
		e.PreviousHash,
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Audit action labels. Dotted subject.verb style, grep-friendly.
const (
	ActionLogin          = "user.login"
	ActionLoginFailed    = "user.login_failed"
	ActionLockout        = "user.lockout"
	ActionLogout         = "user.logout"
	ActionTokenRefresh   = "token.refresh"
	ActionTokenReuse     = "token.reuse_detected"
	ActionPasswordChange = "user.password_change"
	ActionUserCreate     = "user.create"
	ActionUserUpdate     = "user.update"
	ActionSetup          = "system.setup"

	ActionRecordCreate   = "record.create"
	ActionRecordUpdate   = "record.update"
	ActionRecordRollback = "record.rollback"
	ActionRecordDelete   = "record.delete"
)
