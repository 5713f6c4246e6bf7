package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config 全部来自环境变量（.env 可选）
type Config struct {
	Port string `env:"PORT" envDefault:"3001"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBUser      string `env:"DB_USER" envDefault:"postgres"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME" envDefault:"inventory"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPwd      string `env:"REDIS_PASSWORD"`
	MirrorBackend string `env:"MIRROR_BACKEND" envDefault:"redis"`

	WebOrigin string   `env:"WEB_ORIGIN" envDefault:"http://localhost:5173"`
	RPID      string   `env:"RP_ID" envDefault:"localhost"`
	RPOrigins []string `env:"RP_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CeremonyTTL    time.Duration `env:"CEREMONY_TTL" envDefault:"10m"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`

	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	BootstrapEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"true"`
}

// LoadEnv 读取 .env；文件不存在不算错误
func LoadEnv(path ...string) error {
	if err := godotenv.Load(path...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config.LoadEnv: %w", err)
	}
	return nil
}

func Load() (Config, error) {
	const op = "config.Load"

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", op, err)
	}

	switch cfg.MirrorBackend {
	case "redis", "memory":
	default:
		return Config{}, fmt.Errorf("%s: MIRROR_BACKEND must be redis or memory, got %q", op, cfg.MirrorBackend)
	}

	cfg.RPOrigins = normalizeList(cfg.RPOrigins, false)
	cfg.AdminEmails = normalizeList(cfg.AdminEmails, true)
	cfg.BootstrapEmail = strings.ToLower(strings.TrimSpace(cfg.BootstrapEmail))
	return cfg, nil
}

// DSN 优先 DATABASE_URL，否则用 DB_* 拼
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range c.AdminEmails {
		if email == admin {
			return true
		}
	}
	return false
}

func (c Config) SecureCookies() bool { return strings.HasPrefix(c.WebOrigin, "https://") }

func normalizeList(in []string, lower bool) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			if lower {
				t = strings.ToLower(t)
			}
			out = append(out, t)
		}
	}
	return out
}
