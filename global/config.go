package global

import (
	"os"
	"strconv"
	"time"
)

// Config carries everything the process needs at boot. Values come from the
// environment with development defaults matching the original deployment.
type Config struct {
	Addr     string // HTTP listen address
	MongoURL string
	MongoDB  string
	Redis    RedisConfig

	JWTSecret string
	JWTTTL    time.Duration

	// AuthWindow bounds how long a fresh websocket may stay unauthenticated
	// before it is closed.
	AuthWindow time.Duration

	// SendQueueSize is the per-connection outbound buffer; a full queue marks
	// the client as lagging and the event is dropped.
	SendQueueSize int

	// PresenceTTL is the expiry on the redis presence mirror keys.
	PresenceTTL time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func Load() *Config {
	cfg := &Config{
		Addr:          envStr("PORT_ADDR", ":3000"),
		MongoURL:      envStr("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:       envStr("MONGO_DB", "devchat"),
		Redis:         RedisConfig{Addr: envStr("REDIS_ADDR", "localhost:6379"), Password: os.Getenv("REDIS_PASSWORD"), DB: envInt("REDIS_DB", 0)},
		JWTSecret:     envStr("JWT_SECRET", "dev_secret_change_me"),
		JWTTTL:        envDur("JWT_TTL", 30*24*time.Hour),
		AuthWindow:    envDur("AUTH_WINDOW", 10*time.Second),
		SendQueueSize: envInt("SEND_QUEUE_SIZE", 256),
		PresenceTTL:   envDur("PRESENCE_TTL", 2*time.Minute),
	}
	// The presence refresher ticks at TTL/2; a zero TTL from the
	// environment must not reach it.
	if cfg.PresenceTTL <= 0 {
		cfg.PresenceTTL = 2 * time.Minute
	}
	return cfg
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
