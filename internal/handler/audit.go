package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/surdiana/modelbank/internal/constants"
	"github.com/surdiana/modelbank/internal/dto"
	domainerrors "github.com/surdiana/modelbank/internal/errors"
	"github.com/surdiana/modelbank/internal/service"
)

// AuditHandler exposes the audit log to administrators.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler creates an audit handler
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List handles GET /api/v1/audit
func (h *AuditHandler) List(c *gin.Context) {
	var query dto.ListAuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	entries, total, err := h.audit.List(c.Request.Context(), service.AuditFilter{
		ActorID:    query.ActorID,
		Action:     query.Action,
		TargetType: query.TargetType,
		TargetID:   query.TargetID,
		Page:       query.Page,
		PageSize:   query.PageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, constants.PagedResponse("audit entries", entries, query.Page, query.PageSize, total))
}

// Verify handles GET /api/v1/audit/verify. A broken chain is reported
// in the body, not hidden behind a 500, so operators can see where.
func (h *AuditHandler) Verify(c *gin.Context) {
	report, err := h.audit.VerifyChain(c.Request.Context())

	var ierr *domainerrors.IntegrityError
	if err != nil && !errors.As(err, &ierr) {
		respondError(c, err)
		return
	}

	resp := dto.VerifyResponse{
		Valid:       report.Valid,
		EntriesRead: report.EntriesRead,
		FirstBadID:  report.FirstBadID,
		LastEntryID: report.LastEntryID,
	}
	if report.Valid {
		c.JSON(http.StatusOK, constants.SuccessResponse("audit chain intact", resp))
		return
	}
	c.JSON(http.StatusOK, constants.ErrorResponse("audit chain broken", resp))
}
