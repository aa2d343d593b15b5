package config

import (
	"fmt"
	"time"
)

type Config struct {
	Env              string                  `env:"ENV,default=local"`
	Logger           LoggerConfig            `env:",prefix=LOGGER_"`
	Observability    ObservabilityHTTPConfig `env:",prefix=OBSERVABILITY_"`
	ShutdownDuration time.Duration           `env:"SHUTDOWN_DURATION,default=30s"`
	DB               SQLiteConfig            `env:",prefix=DB_"`
	API              APIConfig               `env:",prefix=API_"`
	Telegram         TelegramConfig          `env:",prefix=TELEGRAM_"`
}

// APIConfig описывает HTTP сервер админ-панели.
type APIConfig struct {
	Host          string        `env:"HOST,default=127.0.0.1"`
	Port          uint16        `env:"PORT,default=8080"`
	ReadTimeout   time.Duration `env:"READ_TIMEOUT,default=30s"`
	WriteTimeout  time.Duration `env:"WRITE_TIMEOUT,default=30s"`
	IdleTimeout   time.Duration `env:"IDLE_TIMEOUT,default=1m"`
	AdminUser     string        `env:"ADMIN_USER,required"`
	AdminPassword string        `env:"ADMIN_PASSWORD,required"`
	SessionSecret string        `env:"SESSION_SECRET,required"`
	SessionTTL    time.Duration `env:"SESSION_TTL,default=12h"`
	SecureCookie  bool          `env:"SECURE_COOKIE,default=false"`
}

func (a APIConfig) ADDR() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

type TelegramConfig struct {
	Timeout      time.Duration `env:"TIMEOUT,default=30s"`
	SyncInterval time.Duration `env:"SYNC_INTERVAL,default=5m"`
	AdminIDs     []int64       `env:"ADMIN_IDS"`
}

type LoggerConfig struct {
	Level string `env:"LEVEL,default=debug"`
}

type ObservabilityHTTPConfig struct {
	Host         string        `env:"HOST,default=127.0.0.1"`
	Port         uint16        `env:"PORT,default=8383"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT,default=30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,default=30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT,default=1m"`
}

func (a ObservabilityHTTPConfig) ADDR() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

type SQLiteConfig struct {
	Path         string `env:"PATH,default=./data/tgadmin.db"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS,default=25"`
	MaxIdleConns int    `env:"MAX_IDLE_CONNS,default=5"`
	MaxLifetime  string `env:"MAX_LIFETIME,default=5m"`
}
