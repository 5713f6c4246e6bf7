package routes

import (
	"net/http"

	"Gin_postgres_redis_inventory/app"
	"Gin_postgres_redis_inventory/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	itemCtl := controllers.NewItemController(s)
	borrowCtl := controllers.NewBorrowController(s)
	userCtl := controllers.NewUserController(s)

	// 复用的中间件
	authMW := app.AuthRequired(a.AppSessions(), a.Store, a.Config)
	adminMW := app.AdminOnly()

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })

	// ------------------------------
	// 登录 / 注册（公开）
	// ------------------------------
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", s.Register)
		auth.POST("/login", s.Login)
		auth.POST("/logout", s.Logout)
		auth.POST("/passkey/login/begin", s.BeginLogin)
		auth.POST("/passkey/login/finish", s.FinishLogin)
		auth.GET("/me", authMW, s.Me)
	}

	api := r.Group("/api", authMW)

	// 已登录用户绑定 Passkey
	passkeys := api.Group("/passkeys")
	{
		passkeys.POST("/register/begin", s.BeginAddCredential)
		passkeys.POST("/register/finish", s.FinishAddCredential)
	}

	// ------------------------------
	// 物品：所有人可看，管理员可改
	// ------------------------------
	items := api.Group("/items")
	{
		items.GET("", itemCtl.ListItems)
		items.GET("/:id", itemCtl.GetItem)
		items.POST("", adminMW, itemCtl.CreateItem)
		items.PUT("/:id", adminMW, itemCtl.UpdateItem)
		items.DELETE("/:id", adminMW, itemCtl.DeleteItem)
	}

	// ------------------------------
	// 借还
	// ------------------------------
	borrows := api.Group("/borrows")
	{
		borrows.GET("", borrowCtl.ListBorrows) // ?userEmail=&itemId=&status=
		borrows.GET("/:id", borrowCtl.GetBorrow)
		borrows.POST("", borrowCtl.CreateBorrow)
		borrows.POST("/:id/return", borrowCtl.ReturnBorrow)
		borrows.DELETE("/:id", adminMW, borrowCtl.DeleteBorrow)
	}

	api.PUT("/profile", userCtl.UpdateProfile)

	// ------------------------------
	// 用户管理（仅管理员）
	// ------------------------------
	users := api.Group("/users", adminMW)
	{
		users.GET("", userCtl.ListUsers)
		users.GET("/:email", userCtl.GetUser)
		users.POST("", userCtl.CreateUser)
		users.PUT("/:email", userCtl.UpdateUser)
		users.DELETE("/:email", userCtl.DeleteUser)
	}

	reports := api.Group("/reports", adminMW)
	{
		reports.GET("/items.csv", s.ItemsReport)
		reports.GET("/borrows.csv", s.BorrowsReport)
	}
}
