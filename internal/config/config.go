package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Sync protocols the server can be configured for.
const (
	ProtocolWebSocket = "websocket"
	ProtocolSSE       = "sse"
)

// Config holds sync-player server configuration.
type Config struct {
	AppEnv   string // APP_ENV
	AppHost  string // APP_HOST
	HTTPPort string // APP_PORT or HTTP_PORT
	LogLevel string // LOG_LEVEL

	// Database. Dialect selects the GORM driver: sqlite (default, embedded),
	// postgres (SQL migrations) or mysql.
	DB struct {
		Dialect  string
		Storage  string // sqlite file path
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	// Sync transport.
	SyncProtocol      string // websocket or sse
	WSReadBufferSize  int
	WSWriteBufferSize int
	WSMaxMessageSize  int64
	SSEHeartbeat      time.Duration

	CORSAllowOrigins []string
}

// Load loads config from environment (.env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	readBuf, _ := strconv.Atoi(getEnv("WS_READ_BUFFER_SIZE", "1024"))
	writeBuf, _ := strconv.Atoi(getEnv("WS_WRITE_BUFFER_SIZE", "1024"))
	maxMsg, _ := strconv.ParseInt(getEnv("WS_MAX_MESSAGE_SIZE", "4096"), 10, 64)
	sseBeat, _ := strconv.Atoi(getEnv("SSE_HEARTBEAT_SECONDS", "30"))

	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		AppHost:           getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:          firstEnv("APP_PORT", "HTTP_PORT", "3000"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		SyncProtocol:      getEnv("SYNC_PROTOCOL", ProtocolWebSocket),
		WSReadBufferSize:  readBuf,
		WSWriteBufferSize: writeBuf,
		WSMaxMessageSize:  maxMsg,
		SSEHeartbeat:      time.Duration(sseBeat) * time.Second,
		CORSAllowOrigins:  splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173,http://localhost:3000")),
	}
	cfg.DB.Dialect = getEnv("DB_DIALECT", "sqlite")
	cfg.DB.Storage = getEnv("DB_STORAGE", "./data/sync-player.sqlite")
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", defaultDBPort(cfg.DB.Dialect))
	cfg.DB.User = getEnv("DB_USER", defaultDBUser(cfg.DB.Dialect))
	cfg.DB.Password = getEnv("DB_PASSWORD", "")
	cfg.DB.Database = getEnv("DB_DATABASE", "sync_player")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg, nil
}

// Validate checks required fields and production safety.
func (c *Config) Validate() error {
	switch c.SyncProtocol {
	case ProtocolWebSocket, ProtocolSSE:
	default:
		return fmt.Errorf("config: unsupported sync protocol %q", c.SyncProtocol)
	}
	switch c.DB.Dialect {
	case "sqlite":
		if c.DB.Storage == "" {
			return errors.New("config: DB_STORAGE is required for sqlite")
		}
	case "postgres", "mysql":
		if c.DB.Host == "" {
			return errors.New("config: DB_HOST is required")
		}
		if c.DB.User == "" {
			return errors.New("config: DB_USER is required")
		}
		if c.DB.Database == "" {
			return errors.New("config: DB_DATABASE is required")
		}
		if c.AppEnv == "production" && c.DB.Password == "" {
			return errors.New("config: in production DB_PASSWORD is required")
		}
	default:
		return fmt.Errorf("config: unsupported DB_DIALECT %q", c.DB.Dialect)
	}
	return nil
}

// DSN returns the GORM connection string for the configured dialect.
func (c *Config) DSN() string {
	switch c.DB.Dialect {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Database)
	default:
		return c.DB.Storage
	}
}

// DatabaseURL returns the postgres URL for golang-migrate.
func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func defaultDBPort(dialect string) string {
	if dialect == "mysql" {
		return "3306"
	}
	return "5432"
}

func defaultDBUser(dialect string) string {
	if dialect == "mysql" {
		return "root"
	}
	return "postgres"
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	keys := keysAndDef[:len(keysAndDef)-1]
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
