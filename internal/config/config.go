package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Messenger    MessengerConfig
	Trends       TrendsConfig
	Presence     PresenceConfig
	Liveboard    LiveboardConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines staff authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig controls the fanout of transition events.
type NotificationConfig struct {
	PublicUpdates      bool
	StaffPingDefault   bool
	StaffRoleMention   string
	ReportsChannelID   string
	ResponsesChannelID string
	ModlogChannelID    string
}

// MessengerConfig points at the outbound messaging gateway.
type MessengerConfig struct {
	BaseURL        string
	BotToken       string
	TimeoutSeconds int
}

// TrendsConfig controls the external trending-titles source.
type TrendsConfig struct {
	BearerToken         string
	RefreshIntervalMin  int
	FetchTimeoutSeconds int
	LimitEach           int
}

// PresenceConfig controls the rotating presence string.
type PresenceConfig struct {
	RotationIntervalMin int
	ExtraPhrases        []string
}

// LiveboardConfig controls the periodically refreshed active-reports board.
type LiveboardConfig struct {
	Enabled           bool
	ChannelID         string
	UpdateIntervalMin int
	MaxRowsPerSection int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "stream-report-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			PublicUpdates:      getEnvAsBool("PUBLIC_UPDATES", true),
			StaffPingDefault:   getEnvAsBool("STAFF_PINGS_DEFAULT", true),
			StaffRoleMention:   getEnv("STAFF_ROLE_MENTION", ""),
			ReportsChannelID:   getEnv("REPORTS_CHANNEL_ID", ""),
			ResponsesChannelID: getEnv("RESPONSES_CHANNEL_ID", ""),
			ModlogChannelID:    getEnv("MODLOG_CHANNEL_ID", ""),
		},
		Messenger: MessengerConfig{
			BaseURL:        getEnv("MESSENGER_BASE_URL", ""),
			BotToken:       os.Getenv("MESSENGER_BOT_TOKEN"),
			TimeoutSeconds: getEnvAsInt("MESSENGER_TIMEOUT_SECONDS", 10),
		},
		Trends: TrendsConfig{
			BearerToken:         strings.TrimSpace(os.Getenv("TMDB_BEARER_TOKEN")),
			RefreshIntervalMin:  getEnvAsInt("TRENDS_REFRESH_INTERVAL_MINUTES", 360),
			FetchTimeoutSeconds: getEnvAsInt("TRENDS_FETCH_TIMEOUT_SECONDS", 15),
			LimitEach:           getEnvAsInt("TRENDS_LIMIT_EACH", 30),
		},
		Presence: PresenceConfig{
			RotationIntervalMin: getEnvAsInt("PRESENCE_ROTATION_INTERVAL_MINUTES", 5),
			ExtraPhrases:        getEnvAsList("PRESENCE_EXTRA_PHRASES"),
		},
		Liveboard: LiveboardConfig{
			Enabled:           getEnvAsBool("LIVEBOARD_ENABLED", false),
			ChannelID:         getEnv("LIVEBOARD_CHANNEL_ID", ""),
			UpdateIntervalMin: getEnvAsInt("LIVEBOARD_UPDATE_INTERVAL_MINUTES", 10),
			MaxRowsPerSection: getEnvAsInt("LIVEBOARD_MAX_ROWS", 20),
		},
	}

	if cfg.Notification.PublicUpdates && cfg.Notification.ResponsesChannelID == "" {
		cfg.Notification.ResponsesChannelID = cfg.Notification.ReportsChannelID
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RefreshInterval returns the trend refresh period.
func (t TrendsConfig) RefreshInterval() time.Duration {
	if t.RefreshIntervalMin <= 0 {
		return 6 * time.Hour
	}
	return time.Duration(t.RefreshIntervalMin) * time.Minute
}

// FetchTimeout bounds a single trending fetch.
func (t TrendsConfig) FetchTimeout() time.Duration {
	if t.FetchTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(t.FetchTimeoutSeconds) * time.Second
}

// RotationInterval returns the presence rotation period.
func (p PresenceConfig) RotationInterval() time.Duration {
	if p.RotationIntervalMin <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(p.RotationIntervalMin) * time.Minute
}

// UpdateInterval returns the liveboard refresh period.
func (l LiveboardConfig) UpdateInterval() time.Duration {
	if l.UpdateIntervalMin <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(l.UpdateIntervalMin) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
