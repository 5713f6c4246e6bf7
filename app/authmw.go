package app

import (
	"errors"
	"net/http"

	"Gin_postgres_redis_inventory/config"
	"Gin_postgres_redis_inventory/models"
	"Gin_postgres_redis_inventory/session"
	"Gin_postgres_redis_inventory/store"

	"github.com/gin-gonic/gin"
)

const AppSessionCookie = "app_session"

// gin.Context keys set by AuthRequired
const (
	CtxEmail   = "email"
	CtxRole    = "role"
	CtxIsAdmin = "isAdmin"
)

func AuthRequired(appSess *session.AppSessionStore, st *store.Store, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		ctx := c.Request.Context()
		as, err := appSess.Get(ctx, ck.Value)
		if errors.Is(err, session.ErrNoSession) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, H{"error": "session store unavailable"})
			return
		}

		// 确认用户仍存在（数据库挂了就查本地镜像），角色每次现取
		u, err := st.GetUser(ctx, as.Email)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, models.ErrUnavailable) {
				status = http.StatusServiceUnavailable
			}
			c.AbortWithStatusJSON(status, H{"error": err.Error()})
			return
		}
		if u == nil {
			_ = appSess.Delete(ctx, ck.Value)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}

		c.Set(CtxEmail, u.Email)
		c.Set(CtxRole, string(u.Role))
		c.Set(CtxIsAdmin, u.Role == models.RoleAdmin || cfg.IsAdminEmail(u.Email))
		c.Next()
	}
}

// AdminOnly 必须挂在 AuthRequired 之后
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(CtxEmail); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func CurrentEmail(c *gin.Context) string { return c.GetString(CtxEmail) }

func IsAdmin(c *gin.Context) bool { return c.GetBool(CtxIsAdmin) }
