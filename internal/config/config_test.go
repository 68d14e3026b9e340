package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("ADMIN_PASSWORD_HASH", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.AdminPasswordHash != "" {
		t.Fatalf("expected empty ADMIN_PASSWORD_HASH when unset, got %q", cfg.AdminPasswordHash)
	}
	if cfg.AuthEnabled() {
		t.Fatalf("expected auth to be disabled without a secret")
	}
}

func TestLoadFallsBackOnInvalidNumbers(t *testing.T) {
	t.Setenv("STATS_CACHE_TTL_SECONDS", "-5")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "soon")
	t.Setenv("MIGRATE_ON_START", "maybe")

	cfg := Load()
	if cfg.StatsCacheTTLSeconds != 300 {
		t.Fatalf("expected default stats ttl, got %d", cfg.StatsCacheTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected default token ttl, got %d", cfg.AccessTokenTTLMinutes)
	}
	if !cfg.MigrateOnStart {
		t.Fatalf("expected migrations to run on start by default")
	}
}

func TestLoadReadsExplicitValues(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MIGRATE_ON_START", "false")
	t.Setenv("ADMIN_USERNAME", "owner")
	t.Setenv("REDIS_DB", "3")

	cfg := Load()
	if cfg.Address() != ":9090" {
		t.Fatalf("expected :9090, got %s", cfg.Address())
	}
	if cfg.MigrateOnStart {
		t.Fatalf("expected MIGRATE_ON_START=false to be honoured")
	}
	if cfg.AdminUsername != "owner" {
		t.Fatalf("expected admin username owner, got %s", cfg.AdminUsername)
	}
	if cfg.RedisDB != 3 {
		t.Fatalf("expected redis db 3, got %d", cfg.RedisDB)
	}
}
