package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

type Config struct {
	Port           string
	Environment    string
	AllowedOrigins []string
	JWTSecret      string
	StoreBackend   string
	Redis          RedisConfig
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ClientConfig configures the call client.
type ClientConfig struct {
	// ServerURL is the base of the registration API, e.g. http://localhost:8080
	ServerURL string
	// SignalURL is either an absolute ws(s):// URL or a path resolved
	// against ServerURL.
	SignalURL   string
	ICEServers  []string
	// MediaSource is "devices", "synthetic" or "none".
	MediaSource string
	RecordDir   string
}

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

func Load() *Config {
	// Parse allowed origins (comma-separated)
	origins := splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"))

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: origins,
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		StoreBackend:   getEnv("STORE_BACKEND", StoreMemory),
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		},
	}
}

func LoadClient() *ClientConfig {
	return &ClientConfig{
		ServerURL:   getEnv("SERVER_URL", "http://localhost:8080"),
		SignalURL:   getEnv("SIGNAL_URL", "/ws/signal"),
		ICEServers:  splitList(getEnv("ICE_SERVERS", "stun:stun.l.google.com:19302")),
		MediaSource: getEnv("MEDIA_SOURCE", "synthetic"),
		RecordDir:   getEnv("RECORD_DIR", ""),
	}
}

// SignalEndpoint resolves the relay websocket URL for username. A relative
// SignalURL inherits host and scheme from ServerURL (http->ws, https->wss).
func (c *ClientConfig) SignalEndpoint(username, token string) (string, error) {
	base, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	ref, err := url.Parse(c.SignalURL)
	if err != nil {
		return "", fmt.Errorf("invalid signal url: %w", err)
	}

	u := base.ResolveReference(ref)
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported signal url scheme %q", u.Scheme)
	}

	u = u.JoinPath(username)
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
