package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"DevChat/tools/errs"
	sec "DevChat/tools/security"
)

// CtxUserIDKey is where the middleware stores the authenticated public user
// ID; handlers read it back with UserID(c).
const CtxUserIDKey = "authUserId"

// Middleware verifies the Authorization bearer token and aborts with 401 on
// failure.
func Middleware(opts sec.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrAuthFailed.WithDetail("missing token"))
			return
		}
		userID, err := sec.Verify(opts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrAuthFailed)
			return
		}
		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user ID set by Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}

func bearerToken(c *gin.Context) string {
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if authz == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return authz
}
