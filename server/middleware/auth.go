package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/relaygate/auth"
	"github.com/kbukum/relaygate/auth/authctx"
	apperrors "github.com/kbukum/relaygate/errors"
)

// ClaimsKey is the gin context key holding validated claims.
const ClaimsKey = "claims"

// Auth is a gin handler that requires a valid bearer token. Claims are
// stored in the gin context and in the request context via authctx.
func Auth(v auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, appErr := auth.Authenticate(v, c.GetHeader("Authorization"))
		if appErr != nil {
			abortWithError(c, appErr)
			return
		}
		c.Set(ClaimsKey, claims)
		c.Request = c.Request.WithContext(authctx.Set(c.Request.Context(), claims))
		c.Next()
	}
}

func abortWithError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}
