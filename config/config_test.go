package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("SOLO_AUTH_JWT_SECRET", "secret")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Server.HTTPAddress != ":8080" {
		t.Errorf("Expected default http address :8080, got %s", cfg.Server.HTTPAddress)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Expected default driver sqlite, got %s", cfg.Database.Driver)
	}
	if cfg.Leveling.BaseXP != 100 || cfg.Leveling.Growth != 1.25 || cfg.Leveling.StatPointsPerLevel != 5 {
		t.Errorf("Unexpected leveling defaults: %+v", cfg.Leveling)
	}
	if cfg.Auth.TokenTTL != 7*24*time.Hour {
		t.Errorf("Expected 7 day token ttl, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.JWTSecret != "secret" {
		t.Errorf("Expected secret from environment, got %q", cfg.Auth.JWTSecret)
	}
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
database:
  driver: postgres
  postgres:
    host: db.internal
    port: 6543
auth:
  jwt_secret: from-file
leveling:
  base_xp: 200
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SOLO_LEVELING_GROWTH", "1.5")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.Postgres.Host != "db.internal" || cfg.Database.Postgres.Port != 6543 {
		t.Errorf("Unexpected database config: %+v", cfg.Database)
	}
	if cfg.Auth.JWTSecret != "from-file" {
		t.Errorf("Expected jwt secret from file, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Leveling.BaseXP != 200 {
		t.Errorf("Expected base xp 200, got %d", cfg.Leveling.BaseXP)
	}
	if cfg.Leveling.Growth != 1.5 {
		t.Errorf("Expected growth override 1.5, got %v", cfg.Leveling.Growth)
	}
	want := "host=db.internal port=6543 user=postgres password= dbname=sololeveling sslmode=disable"
	if got := cfg.Database.Postgres.DSN(); got != want {
		t.Errorf("DSN mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{RateLimit: RateLimitConfig{RequestsPerMinute: 30, Burst: 10, MaxClients: 100}},
			Database: DatabaseConfig{Driver: "sqlite"},
			Auth:     AuthConfig{JWTSecret: "s", TokenTTL: time.Hour},
			Leveling: LevelingConfig{BaseXP: 100, Growth: 1.25, StatPointsPerLevel: 5},
			Game:     GameConfig{Timezone: "UTC"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"zero rate limit", func(c *Config) { c.Server.RateLimit.RequestsPerMinute = 0 }},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"zero base xp", func(c *Config) { c.Leveling.BaseXP = 0 }},
		{"flat growth", func(c *Config) { c.Leveling.Growth = 1 }},
		{"bad timezone", func(c *Config) { c.Game.Timezone = "Mars/Olympus" }},
	}

	valid := base()
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected base config to be valid, got %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
