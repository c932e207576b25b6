package dto

// CreateUserRequest provisions an account (admin only)
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64,alphanum"`
	Password string `json:"password" binding:"required,max=128"`
	Role     string `json:"role" binding:"required,oneof=admin editor viewer"`
}

// UpdateUserRequest changes role or active flag (admin only)
type UpdateUserRequest struct {
	Role     *string `json:"role" binding:"omitempty,oneof=admin editor viewer"`
	IsActive *bool   `json:"is_active"`
}

// ListQuery is shared pagination input for collection endpoints
type ListQuery struct {
	Page     int `form:"page,default=1" binding:"omitempty,gte=1"`
	PageSize int `form:"page_size,default=20" binding:"omitempty,gte=1,lte=100"`
}
