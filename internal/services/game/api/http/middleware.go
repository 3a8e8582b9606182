package http

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// userCtxKey is the gin context key holding the authenticated user id.
const userCtxKey = "user_id"

// Authorizer resolves a bearer credential to a stable user id.
type Authorizer interface {
	Verify(token string) (string, error)
}

// BearerAuthMiddleware authenticates requests with a bearer token and
// stores the resolved user id on the request context. The resolved id is
// the only identity the handlers trust; any participant id claimed in a
// payload must match it.
func BearerAuthMiddleware(authorizer Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		token := ""
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
		if token == "" {
			writeError(c, codeAuthMismatch, "missing credentials")
			return
		}
		userID, err := authorizer.Verify(token)
		if err != nil || userID == "" {
			writeError(c, codeAuthMismatch, "invalid credentials")
			return
		}
		c.Set(userCtxKey, userID)
		c.Next()
	}
}

// authedUser returns the authenticated user id from the request context.
func authedUser(c *gin.Context) string {
	value, _ := c.Get(userCtxKey)
	userID, _ := value.(string)
	return userID
}
