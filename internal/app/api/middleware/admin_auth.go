package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/fatflowers/dukabill/pkg/logctx"
	"github.com/fatflowers/dukabill/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"
)

// AdminAuthMiddleware accepts HS256 bearer tokens signed with secret. The
// token subject becomes the admin id recorded on audit entries.
func AdminAuthMiddleware(secret string, base *zap.SugaredLogger) gin.HandlerFunc {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}

	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "admin api disabled"))
			return
		}
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing bearer token"))
			return
		}

		claims := &jwt.StandardClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, keyFunc)
		if err != nil || !token.Valid || claims.Subject == "" {
			logctx.FromGin(c, base).Warnw("admin token rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "invalid token"))
			return
		}

		lg := logctx.FromGin(c, base).With("admin_id", claims.Subject)
		c.Set(logctx.KeyAdminID, claims.Subject)
		c.Set(logctx.KeyLogger, lg)
		c.Request = c.Request.WithContext(logctx.WithLogger(c.Request.Context(), lg))
		c.Next()
	}
}

// AdminID returns the authenticated admin set by AdminAuthMiddleware.
func AdminID(c *gin.Context) string {
	return c.GetString(logctx.KeyAdminID)
}
