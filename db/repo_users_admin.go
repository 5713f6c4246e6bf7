// db/repo_users_admin.go
package db

import (
	"context"

	"Gin_postgres_redis_inventory/models"
)

// CountAdmins 按存储的角色计数；ADMIN_EMAILS 里的不算
func (r *Repo) CountAdmins(ctx context.Context) (int, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&n).Error
	return int(n), wrap("db.CountAdmins", err)
}
