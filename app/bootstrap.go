// app/bootstrap.go
package app

import (
	"context"

	"Gin_postgres_redis_inventory/config"
	"Gin_postgres_redis_inventory/logger"
	"Gin_postgres_redis_inventory/models"
	"Gin_postgres_redis_inventory/store"
)

// BootstrapFirstAdmin 配置了 BOOTSTRAP_ADMIN_EMAIL/PASSWORD 且该用户不存在时，创建管理员
func BootstrapFirstAdmin(ctx context.Context, cfg config.Config, st *store.Store) error {
	if cfg.BootstrapEmail == "" || cfg.BootstrapPassword == "" {
		return nil
	}
	existing, err := st.GetUser(ctx, cfg.BootstrapEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Debug(ctx, "bootstrap admin already present", logger.String("email", existing.Email))
		return nil
	}

	u, err := st.AddUser(ctx, store.NewUser{
		Email:    cfg.BootstrapEmail,
		Password: cfg.BootstrapPassword,
		Role:     models.RoleAdmin,
		Name:     "Administrator",
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "bootstrap admin created", logger.String("email", u.Email))
	return nil
}
