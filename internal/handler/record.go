package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/surdiana/modelbank/internal/constants"
	"github.com/surdiana/modelbank/internal/dto"
	domainerrors "github.com/surdiana/modelbank/internal/errors"
	"github.com/surdiana/modelbank/internal/service"
)

// RecordHandler exposes the versioned record endpoints. One handler
// serves all three kinds; the router binds each method to a kind.
type RecordHandler struct {
	records *service.RecordService
}

// NewRecordHandler creates a record handler
func NewRecordHandler(records *service.RecordService) *RecordHandler {
	return &RecordHandler{records: records}
}

// CreateEntity handles POST /api/v1/entities
func (h *RecordHandler) CreateEntity(c *gin.Context) {
	var req dto.CreateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	view, err := h.records.CreateEntity(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, constants.SuccessResponse("entity created", view))
}

// CreateRelationship handles POST /api/v1/relationships
func (h *RecordHandler) CreateRelationship(c *gin.Context) {
	var req dto.CreateRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	view, err := h.records.CreateRelationship(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, constants.SuccessResponse("relationship created", view))
}

// CreateModel handles POST /api/v1/models
func (h *RecordHandler) CreateModel(c *gin.Context) {
	var req dto.CreateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	view, err := h.records.CreateModel(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, constants.SuccessResponse("model created", view))
}

// List handles GET /api/v1/{kind}s
func (h *RecordHandler) List(kind service.RecordKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query dto.ListRecordsQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			respondBindError(c, err)
			return
		}

		views, total, err := h.records.List(c.Request.Context(), kind, service.RecordFilter{
			TypeLabel:      query.Type,
			IncludeDeleted: query.IncludeDeleted,
			Page:           query.Page,
			PageSize:       query.PageSize,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, constants.PagedResponse("records", views, query.Page, query.PageSize, total))
	}
}

// Get handles GET /api/v1/{kind}s/:id
func (h *RecordHandler) Get(kind service.RecordKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := h.records.Get(c.Request.Context(), kind, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, constants.SuccessResponse("record", view))
	}
}

// GetVersion handles GET /api/v1/{kind}s/:id/versions/:version
func (h *RecordHandler) GetVersion(kind service.RecordKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		version, err := strconv.Atoi(c.Param("version"))
		if err != nil || version < 1 {
			respondError(c, domainerrors.ErrNotFound)
			return
		}

		view, err := h.records.GetVersion(c.Request.Context(), kind, c.Param("id"), version)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, constants.SuccessResponse("record version", view))
	}
}

// ListVersions handles GET /api/v1/{kind}s/:id/versions
func (h *RecordHandler) ListVersions(kind service.RecordKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		versions, err := h.records.ListVersions(c.Request.Context(), kind, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, constants.SuccessResponse("version history", versions))
	}
}

// Update handles PUT /api/v1/{kind}s/:id
func (h *RecordHandler) Update(kind service.RecordKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.UpdateRecordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		view, err := h.records.Update(c.Request.Context(), actorFrom(c), kind, c.Param("id"), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, constants.SuccessResponse("record updated", view))
	}
}

// Rollback handles POST /api/v1/{kind}s/:id/rollback
func (h *RecordHandler) Rollback(kind service.RecordKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.RollbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		view, err := h.records.Rollback(c.Request.Context(), actorFrom(c), kind, c.Param("id"), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, constants.SuccessResponse("record rolled back", view))
	}
}

// Delete handles DELETE /api/v1/{kind}s/:id
func (h *RecordHandler) Delete(kind service.RecordKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.DeleteRecordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		if err := h.records.Delete(c.Request.Context(), actorFrom(c), kind, c.Param("id"), req); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, constants.SuccessResponse("record deleted", nil))
	}
}
