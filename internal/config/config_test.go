package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("REDIS_ADDR", "localhost:6380")
	t.Setenv("LOGIN_RATE_LIMIT_PER_MINUTE", "30")

	cfgPath := writeConfig(t, `
port: "8080"
logLevel: "info"
jwtSecret: "file-secret"
redisAddr: "localhost:6379"
loginRateLimitPerMinute: 10
`)
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Fatalf("jwtSecret = %q, want env override", cfg.JWTSecret)
	}
	if cfg.RedisAddr != "localhost:6380" {
		t.Fatalf("redisAddr = %q, want env override", cfg.RedisAddr)
	}
	if cfg.LoginRateLimitPerMinute != 30 {
		t.Fatalf("loginRateLimitPerMinute = %d, want 30", cfg.LoginRateLimitPerMinute)
	}
}

func TestValidateConfigRequiresPort(t *testing.T) {
	cfgPath := writeConfig(t, `
jwtSecret: "secret"
`)
	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("expected error for missing port")
	}
}

func TestValidateConfigJWTStrategyNeedsSecret(t *testing.T) {
	cfgPath := writeConfig(t, `
port: "8080"
`)
	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("expected error for missing jwtSecret")
	}
}

func TestValidateConfigRedisStrategyNeedsAddr(t *testing.T) {
	cfgPath := writeConfig(t, `
port: "8080"
sessionStrategy: "redis"
`)
	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("expected error for missing redisAddr")
	}
}

func TestParseSessionTTL(t *testing.T) {
	dur, err := ParseSessionTTL("48h")
	if err != nil {
		t.Fatalf("parse ttl: %v", err)
	}
	if dur != 48*time.Hour {
		t.Fatalf("ttl = %v, want 48h", dur)
	}
	if _, err := ParseSessionTTL("not-a-duration"); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
	dur, err = ParseSessionTTL("")
	if err != nil || dur != 0 {
		t.Fatalf("empty ttl should be zero, got %v %v", dur, err)
	}
}

func TestReplyDelay(t *testing.T) {
	cfg := FileConfig{ReplyDelayMillis: 2500}
	if cfg.ReplyDelay() != 2500*time.Millisecond {
		t.Fatalf("replyDelay = %v, want 2.5s", cfg.ReplyDelay())
	}
}
