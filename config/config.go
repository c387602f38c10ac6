package config

import (
	"os"
	"strconv"
	"time"

	"PChat/tools/security"
)

type Config struct {
	ListenAddr string

	RedisAddr     string // empty => in-memory stores
	RedisPassword string
	RedisDB       int

	JWTSecret string
	TokenTTL  time.Duration

	MaxLoginAttempts int
	AccountLockTime  time.Duration

	// websocket tuning
	SendQueueSize int
	ReadLimit     int64
	PongWait      time.Duration
	PingPeriod    time.Duration
	WriteWait     time.Duration
}

func Load() Config {
	c := Config{
		ListenAddr:       envStr("LISTEN_ADDR", ":8080"),
		RedisAddr:        envStr("REDIS_ADDR", ""),
		RedisPassword:    envStr("REDIS_PASSWORD", ""),
		RedisDB:          envInt("REDIS_DB", 0),
		JWTSecret:        envStr("JWT_SECRET", "change-me-in-production"),
		TokenTTL:         envDur("TOKEN_TTL", 24*time.Hour),
		MaxLoginAttempts: envInt("MAX_LOGIN_ATTEMPTS", 5),
		AccountLockTime:  envDur("ACCOUNT_LOCK_TIME", 15*time.Minute),
		SendQueueSize:    envInt("WS_SEND_QUEUE", 256),
		ReadLimit:        int64(envInt("WS_READ_LIMIT", 1<<20)),
		PongWait:         envDur("WS_PONG_WAIT", 60*time.Second),
		WriteWait:        envDur("WS_WRITE_WAIT", 5*time.Second),
	}
	// ping must fire before the pong deadline lapses
	c.PingPeriod = c.PongWait * 9 / 10
	return c
}

// JWTOptions builds the token options every signer and verifier shares.
func (c Config) JWTOptions() security.Options {
	opts := security.DefaultOptions([]byte(c.JWTSecret))
	opts.TTL = c.TokenTTL
	return opts
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
