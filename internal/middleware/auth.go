package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/legalvault/internal/pkg/errcode"
	"github.com/xxxsen/legalvault/internal/pkg/jwt"
	"github.com/xxxsen/legalvault/internal/pkg/response"
)

const ContextSubjectKey = "subject"

// TokenAuth requires a bearer token carrying scope. An empty secret
// disables the check.
func TokenAuth(secret []byte, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil || claims.Scope != scope {
			response.Error(c, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextSubjectKey, claims.Subject)
		c.Next()
	}
}
