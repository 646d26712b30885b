package postgres

import (
	"testing"
	"time"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
	if cfg.MaxOpenConns != 10 || cfg.MaxIdleConns != 5 {
		t.Fatalf("unexpected pool defaults %+v", cfg)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("WEATHERSTREAM_DATABASE_URL", "postgres://u:p@db:5432/ws")
	t.Setenv("WEATHERSTREAM_DATABASE_PING_TIMEOUT", "5s")
	t.Setenv("WEATHERSTREAM_DATABASE_MAX_OPEN_CONNS", "3")
	t.Setenv("WEATHERSTREAM_DATABASE_MAX_IDLE_CONNS", "2")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if cfg.URL != "postgres://u:p@db:5432/ws" || cfg.PingTimeout != 5*time.Second || cfg.MaxOpenConns != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	base := Config{URL: "postgres://localhost/ws", PingTimeout: time.Second, MaxOpenConns: 2, MaxIdleConns: 1}

	cfg := base
	cfg.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty URL must be rejected")
	}

	cfg = base
	cfg.MaxIdleConns = 5
	if err := cfg.Validate(); err == nil {
		t.Fatal("idle conns above open conns must be rejected")
	}
}
