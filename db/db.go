package db

import (
	"context"
	"fmt"

	"Gin_postgres_redis_inventory/logger"
	"Gin_postgres_redis_inventory/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ConnectDB 打开 Postgres 并确认表存在
func ConnectDB(dsn string) (*gorm.DB, error) {
	conn, err := Open(postgres.Open(dsn))
	if err != nil {
		return nil, err
	}
	logger.Info(context.Background(), "database connected")
	return conn, nil
}

// Dial 不 ping、不检查表。启动时数据库不可达就用它，之后每次调用失败都会走本地镜像。
func Dial(dsn string) (*gorm.DB, error) {
	cfg := gormConfig()
	cfg.DisableAutomaticPing = true
	conn, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("dial db: %w", err)
	}
	return conn, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		// 唯一键冲突 -> gorm.ErrDuplicatedKey
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}
}

// Open 用任意 dialector 打开（测试里用 sqlite）
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	conn, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	created, err := EnsureSchema(conn)
	if err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if len(created) > 0 {
		logger.Info(context.Background(), "created missing tables", logger.Strings("tables", created))
	}
	return conn, nil
}

// EnsureSchema 一次性检查表是否存在，只创建缺失的表；不做迁移。
func EnsureSchema(db *gorm.DB) ([]string, error) {
	tables := []struct {
		name  string
		model any
	}{
		{models.UserTable, &models.User{}},
		{models.ItemTable, &models.InventoryItem{}},
		{models.BorrowTable, &models.BorrowRecord{}},
		{models.Credential{}.TableName(), &models.Credential{}},
	}

	var created []string
	m := db.Migrator()
	for _, t := range tables {
		if m.HasTable(t.model) {
			continue
		}
		if err := m.CreateTable(t.model); err != nil {
			return created, fmt.Errorf("create %s: %w", t.name, err)
		}
		created = append(created, t.name)
	}
	return created, nil
}
