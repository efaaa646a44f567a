package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoadAppliesScoringDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/leadscore")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetScoreCacheTTL() != time.Hour {
		t.Fatalf("expected cache ttl 1h, got %s", cfg.GetScoreCacheTTL())
	}
	if cfg.GetScoreStaleAfter() != 24*time.Hour {
		t.Fatalf("expected stale-after 24h, got %s", cfg.GetScoreStaleAfter())
	}
	if cfg.GetAsynqQueueName() != "default" {
		t.Fatalf("expected default queue, got %q", cfg.GetAsynqQueueName())
	}
}

func TestLoadRejectsWildcardWithCredentials(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/leadscore")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for wildcard origins with credentials")
	}
}
