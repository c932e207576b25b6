package constants

// Gin context keys set by the identity middleware
const (
	ContextUserID    = "user_id"
	ContextUsername  = "username"
	ContextRole      = "role"
	ContextSessionID = "session_id"
)

// Pagination bounds
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Rate limit categories
const (
	RateLimitLogin   = "login"
	RateLimitRefresh = "refresh"
	RateLimitGeneral = "general"
)
