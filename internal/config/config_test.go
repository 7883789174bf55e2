package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadExpandsEnvAndDefaults(t *testing.T) {
	t.Setenv("TEST_REDIS_PASSWORD", "hunter2")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: 9090
redis:
  addr: "redis:6379"
  password: "${TEST_REDIS_PASSWORD}"
game:
  seed: 7
  flags:
    skip_second_write_cycle: true
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Redis.Password != "hunter2" {
		t.Fatalf("env expansion failed, got %q", cfg.Redis.Password)
	}
	if cfg.Redis.SessionTTL != 72*time.Hour {
		t.Fatalf("session TTL default missing, got %v", cfg.Redis.SessionTTL)
	}
	if !cfg.Game.Flags["skip_second_write_cycle"] {
		t.Fatalf("flags not parsed")
	}
	if cfg.Game.Seed != 7 {
		t.Fatalf("expected seed 7, got %d", cfg.Game.Seed)
	}
	if cfg.Kafka.Topic == "" || cfg.Narrator.Model == "" {
		t.Fatalf("defaults must fill untouched sections")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("expected default redis addr, got %q", cfg.Redis.Addr)
	}
	if cfg.Postgres.ConnectionString() == "" {
		t.Fatalf("connection string must always render")
	}
	if cfg.Game.Flags == nil {
		t.Fatalf("flags map must never be nil")
	}
}
