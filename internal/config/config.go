package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"chronicle/reorder/internal/hittest"
)

const (
	LayoutStacked = "stacked"
	LayoutBrowser = "browser"
)

type Config struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	ReposDir      string
	MigrationsDir string
	AutoMigrate   bool
	CORSOrigin    string
	LogLevel      string
	// Layout selects how gesture replays measure the document when the
	// client sends no snapshot.
	Layout     string
	HitTest    hittest.Config
	HideDelay  time.Duration
	GestureTTL time.Duration
}

func Load() Config {
	defaults := hittest.DefaultConfig()
	return Config{
		Addr: getenv("API_ADDR", ":8787"),
		// empty disables the move audit log
		DatabaseURL: os.Getenv("DATABASE_URL"),
		// empty keeps gesture claims in process memory
		RedisURL:      os.Getenv("REDIS_URL"),
		ReposDir:      getenv("REORDER_REPOS_DIR", "./data/repos"),
		MigrationsDir: getenv("REORDER_MIGRATIONS_DIR", "./db/migrations"),
		AutoMigrate:   getenvBool("REORDER_AUTO_MIGRATE", true),
		CORSOrigin:    getenv("REORDER_CORS_ORIGIN", "*"),
		LogLevel:      getenv("REORDER_LOG_LEVEL", "info"),
		Layout:        layoutMode(getenv("REORDER_LAYOUT", LayoutStacked)),
		HitTest: hittest.Config{
			HandleWidth: getenvFloat("REORDER_HANDLE_WIDTH", defaults.HandleWidth),
			HandleGap:   getenvFloat("REORDER_HANDLE_GAP", defaults.HandleGap),
			ZoneWidth:   getenvFloat("REORDER_ZONE_WIDTH", defaults.ZoneWidth),
			ProbeInset:  getenvFloat("REORDER_PROBE_INSET", defaults.ProbeInset),
		},
		HideDelay:  time.Duration(getenvInt("REORDER_HIDE_DELAY_MS", 300)) * time.Millisecond,
		GestureTTL: time.Duration(getenvInt("REORDER_GESTURE_TTL_SECONDS", 600)) * time.Second,
	}
}

func layoutMode(value string) string {
	if strings.EqualFold(strings.TrimSpace(value), LayoutBrowser) {
		return LayoutBrowser
	}
	return LayoutStacked
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
