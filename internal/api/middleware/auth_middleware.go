package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"menufolio/internal/auth"
	"menufolio/internal/database"
	"menufolio/internal/store"
)

const principalKey = "principal"

// AuthMiddleware 校验访问令牌，解析出账号并注入上下文。
// A missing header and an unusable token get distinct messages, but a
// well-signed token whose subject no longer resolves to an account is
// reported exactly like a bad token, so probing cannot tell the cases
// apart. Rejections are warn-logged; successes are not logged here.
func AuthMiddleware(authService *auth.AuthService, users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			LoggerFromContext(c).Warn("auth rejected: missing authorization header")
			abortWithMessage(c, "Authentication required")
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			LoggerFromContext(c).Warn("auth rejected: malformed authorization header")
			abortWithMessage(c, "Invalid token")
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			LoggerFromContext(c).Warn("auth rejected: token validation failed", slog.Any("error", err))
			abortWithMessage(c, "Invalid token")
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			LoggerFromContext(c).Warn("auth rejected: subject does not resolve",
				slog.Uint64("user_id", uint64(claims.UserID)),
				slog.Any("error", err),
			)
			abortWithMessage(c, "Invalid token")
			return
		}

		c.Set(principalKey, user)
		c.Next()
	}
}

func abortWithMessage(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msg})
}

// PrincipalFromContext 返回鉴权中间件注入的账号。
func PrincipalFromContext(c *gin.Context) (*database.User, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*database.User)
	if !ok {
		return nil, false
	}
	return user, true
}
