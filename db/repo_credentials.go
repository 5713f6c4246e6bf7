package db

import (
	"context"

	"Gin_postgres_redis_inventory/models"

	"gorm.io/gorm"
)

// Passkey 凭据只存远端

func (r *Repo) AddCredential(ctx context.Context, c *models.Credential) error {
	return wrap("db.AddCredential", r.DB.WithContext(ctx).Create(c).Error)
}

func (r *Repo) LoadUserCredentials(ctx context.Context, email string) ([]models.Credential, error) {
	var cs []models.Credential
	err := r.DB.WithContext(ctx).Where("user_email = ?", email).Find(&cs).Error
	return cs, wrap("db.LoadUserCredentials", err)
}

func (r *Repo) FindCredential(ctx context.Context, credID []byte) (*models.Credential, error) {
	var c models.Credential
	if err := r.DB.WithContext(ctx).Where("credential_id = ?", credID).First(&c).Error; err != nil {
		return nil, wrap("db.FindCredential", err)
	}
	return &c, nil
}

// TouchCredential 登录成功后更新签名计数和最近使用时间
func (r *Repo) TouchCredential(ctx context.Context, credID []byte, signCount uint32, cloneWarn bool) error {
	res := r.DB.WithContext(ctx).Model(&models.Credential{}).
		Where("credential_id = ?", credID).
		Updates(map[string]any{
			"sign_count":    signCount,
			"clone_warning": cloneWarn,
			"last_used_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		})
	return notFoundIfNone("db.TouchCredential", res)
}
