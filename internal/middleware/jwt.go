package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/surdiana/modelbank/internal/constants"
	"github.com/surdiana/modelbank/internal/service"
)

// Authentication validates the bearer token and stores the caller's
// identity on the request context.
func Authentication(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				constants.ErrorResponse("missing or malformed authorization header", nil))
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "), service.TokenTypeAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				constants.ErrorResponse("invalid or expired token", nil))
			return
		}

		c.Set(constants.ContextUserID, claims.Subject)
		c.Set(constants.ContextUsername, claims.Username)
		c.Set(constants.ContextRole, claims.Role)
		c.Set(constants.ContextSessionID, claims.ID)
		c.Next()
	}
}

// RequireRole gates a route group to the named roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(constants.ContextRole)
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden,
				constants.ErrorResponse("insufficient role", nil))
			return
		}
		c.Next()
	}
}
