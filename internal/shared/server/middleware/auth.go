package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"roast-backend/internal/shared/server/respond"
)

const principalKey = "principal"

// ServiceAuth requires "Authorization: Bearer <secret>" matching the
// configured service-role secret. An unset secret is a configuration error,
// never an open door.
func ServiceAuth(secret string) gin.HandlerFunc {
	want := []byte(strings.TrimSpace(secret))
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		if len(want) == 0 {
			respond.Error(c, http.StatusInternalServerError, "not_configured", "Service authentication not configured")
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok || subtle.ConstantTimeCompare([]byte(token), want) != 1 {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}

		c.Set(principalKey, "service")
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return token, token != ""
}

// PrincipalFromContext returns the caller identity set by ServiceAuth.
func PrincipalFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(principalKey)
}
