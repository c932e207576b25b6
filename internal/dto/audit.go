package dto

// ListAuditQuery filters the audit log listing (admin only)
type ListAuditQuery struct {
	ActorID    string `form:"actor_id" binding:"omitempty,max=64"`
	Action     string `form:"action" binding:"omitempty,max=64"`
	TargetType string `form:"target_type" binding:"omitempty,max=32"`
	TargetID   string `form:"target_id" binding:"omitempty,max=64"`
	Page       int    `form:"page,default=1" binding:"omitempty,gte=1"`
	PageSize   int    `form:"page_size,default=20" binding:"omitempty,gte=1,lte=100"`
}

// VerifyResponse reports the outcome of a full chain verification
type VerifyResponse struct {
	Valid        bool  `json:"valid"`
	EntriesRead  int64 `json:"entries_read"`
	FirstBadID   int64 `json:"first_bad_id,omitempty"`
	LastEntryID  int64 `json:"last_entry_id"`
}
