package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/surdiana/modelbank/internal/constants"
	domainerrors "github.com/surdiana/modelbank/internal/errors"
	"github.com/surdiana/modelbank/internal/service"
	"github.com/surdiana/modelbank/pkg/validation"
)

// respondError maps a service error onto the response envelope.
func respondError(c *gin.Context, err error) {
	status := domainerrors.ToHTTPStatus(err)

	var policyErr *domainerrors.PolicyError
	if errors.As(err, &policyErr) {
		c.JSON(status, constants.ErrorResponse("password policy violation", policyErr.Violations))
		return
	}

	c.JSON(status, constants.ErrorResponse(domainerrors.GetErrorMessage(err), nil))
}

// respondBindError reports request validation failures field by field.
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest,
		constants.ErrorResponse("validation failed", validation.Messages(err)))
}

// actorFrom builds the audit actor from the authenticated context.
func actorFrom(c *gin.Context) service.Actor {
	return service.Actor{
		UserID:     c.GetString(constants.ContextUserID),
		Username:   c.GetString(constants.ContextUsername),
		Role:       c.GetString(constants.ContextRole),
		ClientAddr: c.ClientIP(),
		SessionID:  c.GetString(constants.ContextSessionID),
	}
}
