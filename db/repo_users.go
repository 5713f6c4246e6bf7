package db

import (
	"context"

	"Gin_postgres_redis_inventory/models"
)

func (r *Repo) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&users).Error
	return users, wrap("db.ListUsers", err)
}

func (r *Repo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, wrap("db.FindUserByEmail", err)
	}
	return &u, nil
}

func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	return wrap("db.CreateUser", r.DB.WithContext(ctx).Create(u).Error)
}

func (r *Repo) UpdateUser(ctx context.Context, email string, patch models.UserPatch) (*models.User, error) {
	if cols := patch.Columns(); len(cols) > 0 {
		res := r.DB.WithContext(ctx).Model(&models.User{}).
			Where("email = ?", email).
			Updates(cols)
		if err := notFoundIfNone("db.UpdateUser", res); err != nil {
			return nil, err
		}
	}
	return r.FindUserByEmail(ctx, email)
}

// DeleteUser 硬删除；借用记录保留（不级联），passkey 一并删除
func (r *Repo) DeleteUser(ctx context.Context, email string) error {
	if err := r.DB.WithContext(ctx).Where("user_email = ?", email).Delete(&models.Credential{}).Error; err != nil {
		return wrap("db.DeleteUser", err)
	}
	res := r.DB.WithContext(ctx).Delete(&models.User{}, "email = ?", email)
	return notFoundIfNone("db.DeleteUser", res)
}
