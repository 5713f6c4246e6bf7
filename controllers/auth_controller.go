package controllers

import (
	"net/http"

	"Gin_postgres_redis_inventory/app"
	"Gin_postgres_redis_inventory/store"

	"github.com/gin-gonic/gin"
)

type registerReq struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Name      string `json:"name" binding:"required"`
	NIP       string `json:"nip"`
	BirthDate *Date  `json:"birthDate"`
	Address   string `json:"address"`
}

// POST /api/auth/register 自助注册，角色固定为 user，注册即登录
func (s *Srv) Register(c *gin.Context) {
	var in registerReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := s.reqCtx(c)
	defer cancel()

	u, err := s.Store.Register(ctx, store.NewUser{
		Email:     in.Email,
		Password:  in.Password,
		Name:      in.Name,
		NIP:       in.NIP,
		BirthDate: in.BirthDate.Ptr(),
		Address:   in.Address,
	})
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.issueSession(ctx, c.Writer, u.Email); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": "create app session failed"})
		return
	}
	c.JSON(http.StatusCreated, s.userView(u))
}

// POST /api/auth/login
func (s *Srv) Login(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := s.reqCtx(c)
	defer cancel()

	u, err := s.Store.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.issueSession(ctx, c.Writer, u.Email); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": "create app session failed"})
		return
	}
	c.JSON(http.StatusOK, s.userView(u))
}

// POST /api/auth/logout 删 Redis 会话，Cookie 置空
func (s *Srv) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
		_ = s.AppSess.Delete(c.Request.Context(), ck.Value)
	}
	s.clearAppCookie(c.Writer)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/auth/me
func (s *Srv) Me(c *gin.Context) {
	ctx, cancel := s.reqCtx(c)
	defer cancel()
	u, err := s.Store.GetUser(ctx, app.CurrentEmail(c))
	if err != nil {
		fail(c, err)
		return
	}
	if u == nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, s.userView(u))
}
