package config

import (
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Port               string
	RedisURL           string
	FrontendURL        string
	LogLevel           string
	SeedFile           string
	SubmitDelay        time.Duration
	SubmitRateLimit    int64
	SubmitRateWindow   time.Duration
	SessionIdleTimeout time.Duration
	SweepInterval      time.Duration
	FallbackLat        float64
	FallbackLng        float64
	JitterSeed         int64
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "4000"),
		RedisURL:           getEnv("REDIS_URL", "redis://redis:6379"),
		FrontendURL:        getEnv("FRONTEND_URL", "*"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		SeedFile:           getEnv("SEED_FILE", "data/seed_reports.yaml"),
		SubmitDelay:        getDuration("SUBMIT_DELAY", 2*time.Second),
		SubmitRateLimit:    getInt("SUBMIT_RATE_LIMIT", 5),
		SubmitRateWindow:   getDuration("SUBMIT_RATE_WINDOW", time.Minute),
		SessionIdleTimeout: getDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SweepInterval:      getDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		FallbackLat:        getFloat("FALLBACK_LAT", 6.9271),
		FallbackLng:        getFloat("FALLBACK_LNG", 79.8612),
		JitterSeed:         getInt("JITTER_SEED", time.Now().UnixNano()),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logrus.Warnf("invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		logrus.Warnf("invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logrus.Warnf("invalid %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}
