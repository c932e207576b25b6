package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/surdiana/modelbank/internal/constants"
	"gorm.io/gorm"
)

// HealthHandler reports process and database liveness.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler creates a health handler
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable,
			constants.ErrorResponse("database unreachable", nil))
		return
	}
	c.JSON(http.StatusOK, constants.SuccessResponse("ok", gin.H{"database": "up"}))
}
