package app

import (
	"context"
	"fmt"
	"time"

	"Gin_postgres_redis_inventory/cache"
	"Gin_postgres_redis_inventory/config"
	"Gin_postgres_redis_inventory/db"
	"Gin_postgres_redis_inventory/logger"
	"Gin_postgres_redis_inventory/models"
	"Gin_postgres_redis_inventory/session"
	"Gin_postgres_redis_inventory/store"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	WA     *webauthn.WebAuthn
	Config config.Config

	Repo  *db.Repo
	Store *store.Store

	appSess    *session.AppSessionStore
	ceremonies *session.CeremonyStore
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }
func (a *App) Ceremonies() *session.CeremonyStore    { return a.ceremonies }

func New(cfg config.Config) (*App, error) {
	ctx := context.Background()

	// --- DB: Postgres ---
	dbConn, err := db.ConnectDB(cfg.DSN())
	if err != nil {
		// 数据库起不来也照样启动，读写走本地镜像
		logger.Error(ctx, "database unreachable at startup, serving from local mirror", logger.ErrorF(err))
		if dbConn, err = db.Dial(cfg.DSN()); err != nil {
			return nil, err
		}
	}

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	// --- WebAuthn RP ---
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "Inventory Passkeys",
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("webauthn: %w", err)
	}

	return Assemble(cfg, dbConn, rdb, wa), nil
}

// Assemble wires already opened connections; tests pass sqlite and miniredis here.
func Assemble(cfg config.Config, dbConn *gorm.DB, rdb *redis.Client, wa *webauthn.WebAuthn, opts ...store.Option) *App {
	repo := db.NewRepo(dbConn)
	return &App{
		Router: newRouter(cfg),
		DB:     dbConn, RDB: rdb, WA: wa, Config: cfg,
		Repo:       repo,
		Store:      store.New(repo, mirrors(cfg, rdb), opts...),
		appSess:    session.NewAppSessionStore(rdb, cfg.SessionTTL),
		ceremonies: session.NewCeremonyStore(rdb, cfg.CeremonyTTL),
	}
}

func MustNew(cfg config.Config) *App {
	a, err := New(cfg)
	if err != nil {
		logger.L().Fatal("init app", logger.ErrorF(err))
	}
	return a
}

func newRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(RequestLogger(), gin.Recovery())
	useCORS(r, cfg)
	return r
}

func mirrors(cfg config.Config, rdb *redis.Client) store.Mirrors {
	if cfg.MirrorBackend == "memory" {
		return store.MemoryMirrors()
	}
	return store.Mirrors{
		Items:   cache.NewRedisMirror[models.InventoryItem](rdb, cache.KeyItems),
		Users:   cache.NewRedisMirror[models.User](rdb, cache.KeyUsers),
		Borrows: cache.NewRedisMirror[models.BorrowRecord](rdb, cache.KeyBorrows),
	}
}

func (a *App) Close() {
	_ = a.RDB.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
