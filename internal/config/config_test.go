package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoad_defaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "LOG_LEVEL", "DATABASE_URL", "CORS_ORIGINS", "DEFAULT_TREE_PATH", "REFRESH_INTERVAL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":8081" || cfg.LogLevel != "info" || cfg.DatabaseURL != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"*"}) {
		t.Fatalf("expected wildcard origins, got %v", cfg.CORSOrigins)
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Fatalf("expected 30s refresh interval, got %s", cfg.RefreshInterval)
	}
}

func TestLoad_overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("CORS_ORIGINS", " http://grafana:3000, ,https://ops.example ")
	t.Setenv("DEFAULT_TREE_PATH", "/etc/sites.yaml")
	t.Setenv("REFRESH_INTERVAL", "2m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Fatalf("expected addr override, got %q", cfg.HTTPAddr)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"http://grafana:3000", "https://ops.example"}) {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
	if cfg.DefaultTreePath != "/etc/sites.yaml" || cfg.RefreshInterval != 2*time.Minute {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoad_rejectsBadInterval(t *testing.T) {
	for _, v := range []string{"soon", "0s", "-5s"} {
		t.Setenv("REFRESH_INTERVAL", v)
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for REFRESH_INTERVAL=%q", v)
		}
	}
}
