package config

import (
	"os"
	"strconv"
	"time"
)

// Development fallbacks of the hosted collaborator, used when the
// environment does not provide them.
const (
	DevSupabaseURL     = "http://127.0.0.1:54321"
	DevSupabaseAnonKey = "dev-anon-key"
)

const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

type HubConfig struct {
	ServerAddr string
	Backend    string

	SupabaseURL     string
	SupabaseAnonKey string

	CDNHost         string
	CDNCloudName    string
	CDNDeliveryType string

	DatabasePath    string
	LocalStorageDir string
	LocalJWTSecret  string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	RequestTimeout         time.Duration
	SessionRefreshInterval time.Duration
	SessionRefreshWindow   time.Duration

	RealtimeInitialBackoff    time.Duration
	RealtimeMaxBackoff        time.Duration
	RealtimeBackoffMultiplier float64

	UploadConcurrency int

	AdminUsername string
	AdminPassword string

	// Warnings lists configuration that fell back to a development default.
	Warnings []string
}

// LoadHubConfig reads hub config from environment or returns defaults
func LoadHubConfig() (*HubConfig, error) {
	cfg := &HubConfig{
		ServerAddr:      envOrDefault("HUB_ADDR", "127.0.0.1:8090"),
		Backend:         envOrDefault("BACKEND_DRIVER", BackendRemote),
		CDNHost:         envOrDefault("CDN_HOST", "res.cloudinary.com"),
		CDNCloudName:    envOrDefault("CDN_CLOUD_NAME", "demo"),
		CDNDeliveryType: envOrDefault("CDN_DELIVERY_TYPE", "upload"),
		DatabasePath:    envOrDefault("DATABASE_PATH", "./data/hub.db"),
		LocalStorageDir: envOrDefault("LOCAL_STORAGE_DIR", "./data/storage"),
		LocalJWTSecret:  envOrDefault("LOCAL_JWT_SECRET", "local-dev-secret"),
		RedisHost:       os.Getenv("REDIS_HOST"),
		RedisPort:       envOrDefault("REDIS_PORT", "6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         envInt("REDIS_DB", 0),

		RequestTimeout:         envSeconds("REQUEST_TIMEOUT", 10*time.Second),
		SessionRefreshInterval: envSeconds("SESSION_REFRESH_INTERVAL", time.Minute),
		SessionRefreshWindow:   envSeconds("SESSION_REFRESH_WINDOW", 5*time.Minute),

		RealtimeInitialBackoff:    envSeconds("REALTIME_INITIAL_BACKOFF", time.Second),
		RealtimeMaxBackoff:        envSeconds("REALTIME_MAX_BACKOFF", 30*time.Second),
		RealtimeBackoffMultiplier: envFloat("REALTIME_BACKOFF_MULTIPLIER", 2.0),

		UploadConcurrency: envInt("UPLOAD_CONCURRENCY", 4),

		AdminUsername: envOrDefault("ADMIN_USER", "admin"),
		AdminPassword: envOrDefault("ADMIN_PASSWORD", "password"),
	}

	cfg.SupabaseURL = os.Getenv("SUPABASE_URL")
	if cfg.SupabaseURL == "" {
		cfg.SupabaseURL = DevSupabaseURL
		cfg.Warnings = append(cfg.Warnings, "SUPABASE_URL not set, using development fallback "+DevSupabaseURL)
	}
	cfg.SupabaseAnonKey = os.Getenv("SUPABASE_ANON_KEY")
	if cfg.SupabaseAnonKey == "" {
		cfg.SupabaseAnonKey = DevSupabaseAnonKey
		cfg.Warnings = append(cfg.Warnings, "SUPABASE_ANON_KEY not set, using development fallback key")
	}

	if cfg.UploadConcurrency < 1 {
		cfg.UploadConcurrency = 1
	}

	return cfg, nil
}

// UsesRedis reports whether the local change bus should go through redis.
func (c *HubConfig) UsesRedis() bool {
	return c.RedisHost != ""
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// envSeconds reads a whole number of seconds.
func envSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
