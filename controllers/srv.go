// controllers/srv.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"Gin_postgres_redis_inventory/app"
	"Gin_postgres_redis_inventory/config"
	"Gin_postgres_redis_inventory/db"
	"Gin_postgres_redis_inventory/logger"
	"Gin_postgres_redis_inventory/models"
	"Gin_postgres_redis_inventory/session"
	"Gin_postgres_redis_inventory/store"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

type Srv struct {
	WA         *webauthn.WebAuthn
	Store      *store.Store
	Repo       *db.Repo // passkey 凭据只在远端
	Ceremonies *session.CeremonyStore
	AppSess    *session.AppSessionStore
	Cfg        config.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		WA:         a.WA,
		Store:      a.Store,
		Repo:       a.Repo,
		Ceremonies: a.Ceremonies(),
		AppSess:    a.AppSessions(),
		Cfg:        a.Config,
	}
}

// --- helpers ---

// reqCtx 每个请求的存储调用都带超时
func (s *Srv) reqCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	d := s.Cfg.RequestTimeout
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), d)
}

// fail 把哨兵错误映射成 HTTP 状态
func fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, app.H{"error": verr.Error(), "fields": verr.FieldErrors})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, app.H{"error": "invalid email or password"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": "not found"})
	case errors.Is(err, models.ErrDuplicate):
		c.JSON(http.StatusConflict, app.H{"error": "already exists"})
	case errors.Is(err, models.ErrInsufficientStock):
		c.JSON(http.StatusConflict, app.H{"error": "not enough units available"})
	case errors.Is(err, models.ErrAlreadyReturned):
		c.JSON(http.StatusConflict, app.H{"error": "already returned"})
	case errors.Is(err, models.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, app.H{"error": "storage unavailable, try again later"})
	default:
		logger.Error(c.Request.Context(), "unhandled error", logger.ErrorF(err))
		c.JSON(http.StatusInternalServerError, app.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
}

// 统一设置业务会话 Cookie
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Cfg.SecureCookies(),
		MaxAge:   int(maxAge / time.Second),
	})
}

func (s *Srv) clearAppCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Cfg.SecureCookies(),
	})
}

// issueSession 登录成功：建 Redis 会话 + 写 Cookie
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, email string) error {
	id := uuid.NewString()
	if err := s.AppSess.Create(ctx, id, email); err != nil {
		return err
	}
	s.setAppCookie(w, id, s.AppSess.TTL())
	logger.Info(ctx, "session issued", logger.String("user", email))
	return nil
}

// userView 对外的用户表示：不含口令哈希，附带是否管理员
func (s *Srv) userView(u *models.User) app.H {
	return app.H{
		"user":    u.Public(),
		"isAdmin": u.Role == models.RoleAdmin || s.Cfg.IsAdminEmail(u.Email),
	}
}
