package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseDriver         string
	DatabaseURL            string
	RedisURL               string
	JWTSecret              string
	JWTResetSecret         string
	TokenTTL               time.Duration
	ResetTokenTTL          time.Duration
	MaxActiveGroups        int
	MinGroupCapacity       int
	MaxGroupCapacity       int
	MessageDenylist        []string
	MessageMaxLength       int
	NotificationRetention  time.Duration
	NotificationSweepCron  string
	NotificationWorkers    int
	AllowedEmailDomains    []string
	CORSOrigins            []string
	AuthRateLimitMax       int
	AuthRateLimitWindow    time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxSizeMB        int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production error verbosity.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CONNEXA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Connexa API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3001")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "connexa.db")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("jwt.reset_ttl", "1h")
	v.SetDefault("groups.max_active", 5)
	v.SetDefault("groups.min_capacity", 2)
	v.SetDefault("groups.max_capacity", 50)
	v.SetDefault("messages.denylist", "spam,lixo,idiota,burro,estúpido")
	v.SetDefault("messages.max_length", 1000)
	v.SetDefault("notifications.retention", "720h")
	v.SetDefault("notifications.sweep_schedule", "")
	v.SetDefault("notifications.fanout_workers", 8)
	v.SetDefault("cors.origins", "*")
	v.SetDefault("ratelimit.auth_max", 5)
	v.SetDefault("ratelimit.auth_window", "15m")
	v.SetDefault("cloudinary.folder", "connexa/profile-pics")
	v.SetDefault("upload.max_size_mb", 5)

	tokenTTL, err := parseDuration(v, "jwt.ttl")
	if err != nil {
		return Config{}, err
	}
	resetTTL, err := parseDuration(v, "jwt.reset_ttl")
	if err != nil {
		return Config{}, err
	}
	retention, err := parseDuration(v, "notifications.retention")
	if err != nil {
		return Config{}, err
	}
	authWindow, err := parseDuration(v, "ratelimit.auth_window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseDriver:         strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTResetSecret:         v.GetString("jwt.reset_secret"),
		TokenTTL:               tokenTTL,
		ResetTokenTTL:          resetTTL,
		MaxActiveGroups:        v.GetInt("groups.max_active"),
		MinGroupCapacity:       v.GetInt("groups.min_capacity"),
		MaxGroupCapacity:       v.GetInt("groups.max_capacity"),
		MessageDenylist:        splitList(v.GetString("messages.denylist")),
		MessageMaxLength:       v.GetInt("messages.max_length"),
		NotificationRetention:  retention,
		NotificationSweepCron:  strings.TrimSpace(v.GetString("notifications.sweep_schedule")),
		NotificationWorkers:    v.GetInt("notifications.fanout_workers"),
		AllowedEmailDomains:    splitList(v.GetString("auth.allowed_email_domains")),
		CORSOrigins:            splitList(v.GetString("cors.origins")),
		AuthRateLimitMax:       v.GetInt("ratelimit.auth_max"),
		AuthRateLimitWindow:    authWindow,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.JWTResetSecret == "" {
		cfg.JWTResetSecret = cfg.JWTSecret
	}

	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.MinGroupCapacity < 2 {
		cfg.MinGroupCapacity = 2
	}
	if cfg.MaxGroupCapacity < cfg.MinGroupCapacity {
		return Config{}, fmt.Errorf("groups.max_capacity (%d) must be >= groups.min_capacity (%d)", cfg.MaxGroupCapacity, cfg.MinGroupCapacity)
	}
	if cfg.MaxActiveGroups <= 0 {
		cfg.MaxActiveGroups = 5
	}
	if cfg.MessageMaxLength <= 0 {
		cfg.MessageMaxLength = 1000
	}
	if cfg.NotificationWorkers <= 0 {
		cfg.NotificationWorkers = 8
	}
	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 5
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
