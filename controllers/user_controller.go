package controllers

import (
	"context"
	"net/http"

	"Gin_postgres_redis_inventory/app"
	"Gin_postgres_redis_inventory/logger"
	"Gin_postgres_redis_inventory/models"
	"Gin_postgres_redis_inventory/store"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type UserController struct{ *Srv }

func NewUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/users
func (uc *UserController) ListUsers(c *gin.Context) {
	ctx, cancel := uc.reqCtx(c)
	defer cancel()
	users, err := uc.Store.ListUsers(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"users": lo.Map(users, func(u models.User, _ int) models.User { return u.Public() }),
	})
}

// GET /api/users/:email
func (uc *UserController) GetUser(c *gin.Context) {
	ctx, cancel := uc.reqCtx(c)
	defer cancel()
	u, err := uc.Store.GetUser(ctx, c.Param("email"))
	if err != nil {
		fail(c, err)
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, uc.userView(u))
}

// POST /api/users（管理员）可指定角色
func (uc *UserController) CreateUser(c *gin.Context) {
	var in struct {
		registerReq
		Role models.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := uc.reqCtx(c)
	defer cancel()
	u, err := uc.Store.AddUser(ctx, store.NewUser{
		Email:     in.Email,
		Password:  in.Password,
		Role:      in.Role,
		Name:      in.Name,
		NIP:       in.NIP,
		BirthDate: in.BirthDate.Ptr(),
		Address:   in.Address,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, uc.userView(u))
}

type userUpdateReq struct {
	Password  *string `json:"password"`
	Name      *string `json:"name"`
	NIP       *string `json:"nip"`
	BirthDate *Date   `json:"birthDate"`
	Address   *string `json:"address"`
}

func (r userUpdateReq) toUpdate() store.UserUpdate {
	return store.UserUpdate{
		Password:  r.Password,
		Name:      r.Name,
		NIP:       r.NIP,
		BirthDate: r.BirthDate.Ptr(),
		Address:   r.Address,
	}
}

// PUT /api/users/:email（管理员）
func (uc *UserController) UpdateUser(c *gin.Context) {
	var in struct {
		userUpdateReq
		Role *models.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	upd := in.toUpdate()
	upd.Role = in.Role
	email := c.Param("email")

	ctx, cancel := uc.reqCtx(c)
	defer cancel()
	if in.Role != nil && *in.Role != models.RoleAdmin && !uc.keepsAnAdmin(ctx, c, email) {
		return
	}
	u, err := uc.Store.UpdateUser(ctx, email, upd)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, uc.userView(u))
}

// PUT /api/profile 自己改资料，不能改角色
func (uc *UserController) UpdateProfile(c *gin.Context) {
	var in userUpdateReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := uc.reqCtx(c)
	defer cancel()
	u, err := uc.Store.UpdateUser(ctx, app.CurrentEmail(c), in.toUpdate())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, uc.userView(u))
}

// DELETE /api/users/:email（管理员）借用记录保留
func (uc *UserController) DeleteUser(c *gin.Context) {
	email := store.NormalizeEmail(c.Param("email"))

	// 不允许删除自己，避免锁死
	if email == app.CurrentEmail(c) {
		c.JSON(http.StatusBadRequest, app.H{"error": "cannot delete yourself"})
		return
	}
	// ADMIN_EMAILS 里的管理员受保护
	if uc.Cfg.IsAdminEmail(email) {
		c.JSON(http.StatusForbidden, app.H{"error": "cannot delete an admin"})
		return
	}

	ctx, cancel := uc.reqCtx(c)
	defer cancel()
	if !uc.keepsAnAdmin(ctx, c, email) {
		return
	}
	if err := uc.Store.DeleteUser(ctx, email); err != nil {
		fail(c, err)
		return
	}
	// 撤销该用户的所有登录会话
	if err := uc.AppSess.RevokeAllForUser(ctx, email); err != nil {
		logger.Warn(ctx, "revoke sessions failed", logger.String("user", email), logger.ErrorF(err))
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// keepsAnAdmin 目标是最后一个管理员时拒绝删除/降级，已写好响应则返回 false
func (uc *UserController) keepsAnAdmin(ctx context.Context, c *gin.Context, email string) bool {
	target, err := uc.Store.GetUser(ctx, email)
	if err != nil {
		fail(c, err)
		return false
	}
	if target == nil || target.Role != models.RoleAdmin {
		return true
	}
	n, err := uc.Store.CountAdmins(ctx)
	if err != nil {
		fail(c, err)
		return false
	}
	if n <= 1 {
		c.JSON(http.StatusConflict, app.H{"error": "cannot remove the last admin"})
		return false
	}
	return true
}
