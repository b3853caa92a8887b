package config

import (
	"testing"
	"time"

	"chronicle/reorder/internal/hittest"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"API_ADDR", "DATABASE_URL", "REDIS_URL", "REORDER_LAYOUT",
		"REORDER_HIDE_DELAY_MS", "REORDER_HANDLE_WIDTH", "REORDER_AUTO_MIGRATE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Addr != ":8787" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.DatabaseURL != "" || cfg.RedisURL != "" {
		t.Fatalf("expected optional backends to be disabled, got %+v", cfg)
	}
	if cfg.Layout != LayoutStacked {
		t.Fatalf("Layout = %q", cfg.Layout)
	}
	if cfg.HitTest != hittest.DefaultConfig() {
		t.Fatalf("HitTest = %+v", cfg.HitTest)
	}
	if cfg.HideDelay != 300*time.Millisecond {
		t.Fatalf("HideDelay = %v", cfg.HideDelay)
	}
	if !cfg.AutoMigrate {
		t.Fatal("expected AutoMigrate by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REORDER_LAYOUT", "Browser")
	t.Setenv("REORDER_HIDE_DELAY_MS", "0")
	t.Setenv("REORDER_HANDLE_WIDTH", "24.5")
	t.Setenv("REORDER_ZONE_WIDTH", "-3")
	t.Setenv("REORDER_GESTURE_TTL_SECONDS", "not-a-number")
	t.Setenv("REORDER_AUTO_MIGRATE", "false")

	cfg := Load()
	if cfg.Layout != LayoutBrowser {
		t.Fatalf("Layout = %q", cfg.Layout)
	}
	if cfg.HideDelay != 0 {
		t.Fatalf("HideDelay = %v", cfg.HideDelay)
	}
	if cfg.HitTest.HandleWidth != 24.5 {
		t.Fatalf("HandleWidth = %v", cfg.HitTest.HandleWidth)
	}
	if cfg.HitTest.ZoneWidth != hittest.DefaultConfig().ZoneWidth {
		t.Fatalf("negative ZoneWidth should fall back, got %v", cfg.HitTest.ZoneWidth)
	}
	if cfg.GestureTTL != 600*time.Second {
		t.Fatalf("GestureTTL = %v", cfg.GestureTTL)
	}
	if cfg.AutoMigrate {
		t.Fatal("expected AutoMigrate to be disabled")
	}
}
