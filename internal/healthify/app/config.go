package app

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/healthify/pkg/httpx"
)

type Config struct {
	AuthURL      string   // Identity provider base URL (default: http://localhost:8081)
	ClientID     string   // OAuth2 client id registered with the provider (default: healthify)
	RedirectURI  string   // Redirect URI registered for the client (default: http://localhost:8080/callback)
	Scopes       []string // Requested scopes, space or comma separated (default: profile:read)
	AuthIssuer   string   // Optional: when set, access tokens are verified against the provider JWKS
	AuthAudience []string // Optional: accepted aud values when verifying tokens

	DatabaseFile  string // Path to SQLite database file (default: ./healthify.db)
	MasterKeyPath string // Path to master encryption key file (default: ./master.key)

	AutoRefreshInterval  time.Duration // Token refresh check interval (default: 30s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	SampleRetention      time.Duration // How long device samples are kept (default: 30 days)

	CalorieGoal int    // Daily calorie goal in kcal (default: 2000)
	WaterGoalML int    // Daily water goal in ml (default: 2500)
	TimeZone    string // Optional: IANA zone used for "today" (default: local)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	LogOutput           io.Writer     // Optional: log destination (default: stdout)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	RateLimits httpx.RateLimits
}

func LoadConfig() Config {
	return Config{
		AuthURL:      getEnvOrDefault("HEALTHIFY_AUTH_URL", "http://localhost:8081"),
		ClientID:     getEnvOrDefault("HEALTHIFY_CLIENT_ID", "healthify"),
		RedirectURI:  getEnvOrDefault("HEALTHIFY_REDIRECT_URI", "http://localhost:8080/callback"),
		Scopes:       splitList(getEnvOrDefault("HEALTHIFY_SCOPES", "profile:read")),
		AuthIssuer:   os.Getenv("HEALTHIFY_AUTH_ISSUER"),
		AuthAudience: splitList(os.Getenv("HEALTHIFY_AUTH_AUDIENCE")),

		DatabaseFile:  getEnvOrDefault("HEALTHIFY_DATABASE_FILE", "healthify.db"),
		MasterKeyPath: getEnvOrDefault("HEALTHIFY_MASTER_KEY_PATH", "master.key"),

		AutoRefreshInterval:  getEnvDurationOrDefault("HEALTHIFY_AUTO_REFRESH_INTERVAL", 30*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		SampleRetention:      getEnvDurationOrDefault("HEALTHIFY_SAMPLE_RETENTION", 30*24*time.Hour),

		CalorieGoal: getEnvIntOrDefault("HEALTHIFY_CALORIE_GOAL", 2000),
		WaterGoalML: getEnvIntOrDefault("HEALTHIFY_WATER_GOAL_ML", 2500),
		TimeZone:    os.Getenv("HEALTHIFY_TIMEZONE"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		RateLimits: httpx.RateLimitsFromEnv(),
	}
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	u, err := url.Parse(c.AuthURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid HEALTHIFY_AUTH_URL %q", c.AuthURL)
	}
	if c.ClientID == "" {
		return errors.New("HEALTHIFY_CLIENT_ID is required")
	}
	if c.AutoRefreshInterval <= 0 {
		return errors.New("HEALTHIFY_AUTO_REFRESH_INTERVAL must be positive")
	}
	if c.CalorieGoal <= 0 || c.WaterGoalML <= 0 {
		return errors.New("daily goals must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid HEALTHIFY_TIMEZONE: %w", err)
	}
	return nil
}

// Location resolves TimeZone, falling back to the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
