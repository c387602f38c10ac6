package security

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"PChat/logger"
	"PChat/service/storage"
	errs "PChat/tools/errs"
	"PChat/tools/security"
)

const (
	// Gin context keys set by Auth.
	CtxUserID = "auth_user_id"
	CtxToken  = "auth_token"
)

// Auth returns the bearer-token middleware for the REST surface. The same
// two checks the realtime gate makes: valid signature, live session for
// the token hash.
func Auth(opts security.Options, sessions storage.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			reject(c)
			return
		}
		claims, err := security.Verify(opts, token)
		if err != nil {
			logger.Debugf("[auth] verify err=%v", err)
			reject(c)
			return
		}
		sub := claims.Subject()
		if sub == "" {
			reject(c)
			return
		}

		hash := security.HashToken(token)
		sess, err := sessions.GetByTokenHash(c.Request.Context(), hash)
		if err != nil || sess.UserID != sub || sess.Expired(time.Now()) {
			reject(c)
			return
		}
		if err := sessions.Touch(c.Request.Context(), hash, time.Now()); err != nil {
			logger.Debugf("[auth] touch session err=%v", err)
		}

		c.Set(CtxUserID, sub)
		c.Set(CtxToken, token)
		c.Next()
	}
}

// UserID reads the authenticated user set by Auth; empty on public routes.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserID)
}

// Token reads the raw bearer token set by Auth.
func Token(c *gin.Context) string {
	return c.GetString(CtxToken)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func reject(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": errs.ErrAuthenticationFailed.Code,
		"msg":  errs.ErrAuthenticationFailed.Msg,
	})
}
