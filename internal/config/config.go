package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port               string
	DatabaseURL        string
	Timezone           *time.Location
	RecallWindow       time.Duration
	CallFreshness      time.Duration
	ResetCheckInterval time.Duration
	SessionTTL         time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
	AdminUsername      string
	AdminPassword      string
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	timezone := time.Local
	if name := os.Getenv("TIMEZONE"); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			log.Printf("invalid TIMEZONE %q, using local: %v", name, err)
		} else {
			timezone = loc
		}
	}

	return Config{
		Port:               port,
		DatabaseURL:        os.Getenv("DB_DSN"),
		Timezone:           timezone,
		RecallWindow:       readDurationSeconds("RECALL_WINDOW_SECONDS", 8),
		CallFreshness:      readDurationSeconds("CALL_FRESHNESS_SECONDS", 10),
		ResetCheckInterval: readDurationSeconds("RESET_CHECK_INTERVAL_SECONDS", 60),
		SessionTTL:         time.Duration(readInt("SESSION_TTL_HOURS", 8)) * time.Hour,
		RateLimitPerMinute: readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:     readInt("RATE_LIMIT_BURST", 30),
		AdminUsername:      readString("ADMIN_USERNAME", "admin"),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
	}
}

func readString(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
