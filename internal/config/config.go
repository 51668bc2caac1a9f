package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment string
	HTTPPort    string
	ServiceName string

	// AppURL is the public base URL of this service; ClientURL is the SPA origin
	// the callback redirects back to. They may be different origins, which is why
	// the sync-token handoff exists at all.
	AppURL    string
	ClientURL string

	TwitterClientID     string
	TwitterClientSecret string
	TwitterRedirectURI  string
	TwitterAuthURL      string
	TwitterTokenURL     string
	TwitterAPIBaseURL   string

	SessionSecret string
	SessionTTL    time.Duration
	StateTTL      time.Duration
	SyncTokenTTL  time.Duration

	ProfileCacheWindow  time.Duration
	ListsCacheWindow    time.Duration
	TimelineCacheWindow time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitRPM      int
	TelemetryEndpoint string
	TelemetryInsecure bool

	CORSAllowedMethods []string
	CORSAllowedHeaders []string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	secret := strings.TrimSpace(os.Getenv("SESSION_SECRET"))
	if secret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET is required")
	}

	cfg := Config{
		Environment: getEnv("APP_ENV", "development"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		ServiceName: getEnv("SERVICE_NAME", "mycontentbuddy"),

		AppURL:    getEnv("APP_URL", "http://localhost:8080"),
		ClientURL: getEnv("CLIENT_URL", "http://localhost:3000"),

		TwitterClientID:     strings.TrimSpace(os.Getenv("TWITTER_CLIENT_ID")),
		TwitterClientSecret: strings.TrimSpace(os.Getenv("TWITTER_CLIENT_SECRET")),
		TwitterRedirectURI:  strings.TrimSpace(os.Getenv("TWITTER_REDIRECT_URI")),
		TwitterAuthURL:      getEnv("TWITTER_AUTH_URL", "https://twitter.com/i/oauth2/authorize"),
		TwitterTokenURL:     getEnv("TWITTER_TOKEN_URL", "https://api.twitter.com/2/oauth2/token"),
		TwitterAPIBaseURL:   getEnv("TWITTER_API_BASE_URL", "https://api.twitter.com/2"),

		SessionSecret: secret,
		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),
		StateTTL:      getDuration("OAUTH_STATE_TTL", 10*time.Minute),
		SyncTokenTTL:  getDuration("SYNC_TOKEN_TTL", 5*time.Minute),

		ProfileCacheWindow:  getDuration("PROFILE_CACHE_WINDOW", 30*time.Minute),
		ListsCacheWindow:    getDuration("LISTS_CACHE_WINDOW", 15*time.Minute),
		TimelineCacheWindow: getDuration("TIMELINE_CACHE_WINDOW", 5*time.Minute),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		RateLimitRPM:      getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure: getBool("OTEL_EXPORTER_OTLP_INSECURE", true),

		CORSAllowedMethods: getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders: getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
	}

	return cfg, nil
}

// OAuthConfigured reports whether the Twitter app credentials are present.
// Missing credentials disable the OAuth routes, not the whole process.
func (c Config) OAuthConfigured() bool {
	return c.TwitterClientID != "" && c.TwitterClientSecret != "" && c.TwitterRedirectURI != ""
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
