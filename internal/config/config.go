package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Notification NotificationConfig
	Ledger       LedgerConfig
	TwoFactor    TwoFactorConfig
	RateLimit    RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	RequestTimeout time.Duration
	AllowedOrigins []string
	MigrationsDir  string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	Schema          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr is host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

type NotificationConfig struct {
	ProviderURL string
	APIKey      string
	From        string
	AdminEmail  string
	Timeout     time.Duration
}

type LedgerConfig struct {
	OrderNumberPrefix string
	LowStockThreshold int
	ShippingFlatRate  string
}

type TwoFactorConfig struct {
	Store   string // memory or redis
	CodeTTL time.Duration
}

type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
}

// IsDevelopment reports whether the server runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

func Load() *Config {
	// .env is optional; real deployments pass plain environment variables.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env file loaded: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("SERVER_REQUEST_TIMEOUT", "15s")
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("MIGRATIONS_DIR", "migrations")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("REDIS_ENABLED", true)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("NOTIFY_FROM", "ZEN Store <orders@zen.store>")
	viper.SetDefault("NOTIFY_TIMEOUT", "5s")
	viper.SetDefault("ORDER_NUMBER_PREFIX", "ZEN")
	viper.SetDefault("LOW_STOCK_THRESHOLD", 5)
	viper.SetDefault("SHIPPING_FLAT_RATE", "0")
	viper.SetDefault("TWO_FACTOR_STORE", "redis")
	viper.SetDefault("TWO_FACTOR_CODE_TTL", "10m")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 60)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			RequestTimeout: viper.GetDuration("SERVER_REQUEST_TIMEOUT"),
			AllowedOrigins: splitList(viper.GetString("SERVER_ALLOWED_ORIGINS")),
			MigrationsDir:  viper.GetString("MIGRATIONS_DIR"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_DATABASE"),
			Schema:          viper.GetString("DB_SCHEMA"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		Notification: NotificationConfig{
			ProviderURL: viper.GetString("NOTIFY_PROVIDER_URL"),
			APIKey:      viper.GetString("NOTIFY_API_KEY"),
			From:        viper.GetString("NOTIFY_FROM"),
			AdminEmail:  viper.GetString("NOTIFY_ADMIN_EMAIL"),
			Timeout:     viper.GetDuration("NOTIFY_TIMEOUT"),
		},
		Ledger: LedgerConfig{
			OrderNumberPrefix: viper.GetString("ORDER_NUMBER_PREFIX"),
			LowStockThreshold: viper.GetInt("LOW_STOCK_THRESHOLD"),
			ShippingFlatRate:  viper.GetString("SHIPPING_FLAT_RATE"),
		},
		TwoFactor: TwoFactorConfig{
			Store:   viper.GetString("TWO_FACTOR_STORE"),
			CodeTTL: viper.GetDuration("TWO_FACTOR_CODE_TTL"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:            viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
