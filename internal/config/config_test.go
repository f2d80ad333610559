package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 2333 {
		t.Errorf("port = %d, want 2333", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("expected development mode by default")
	}
	if cfg.PublicBaseURL != "http://localhost:2333" {
		t.Errorf("public base url = %q", cfg.PublicBaseURL)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	raw := `
port: 8080
env: production
jwt_secret: topsecret
public_base_url: https://lynk.example.com/
allowed_origins:
  - lynk.example.com
  - "*.example.com"
oauth:
  github:
    client_id: gh-id
    client_secret: gh-secret
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Port)
	}
	if cfg.IsDev() {
		t.Error("expected production mode")
	}
	if cfg.PublicBaseURL != "https://lynk.example.com" {
		t.Errorf("trailing slash not trimmed: %q", cfg.PublicBaseURL)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("allowed origins = %v", cfg.AllowedOrigins)
	}
	if cfg.OAuth.GitHub.ClientID != "gh-id" || cfg.OAuth.GitHub.ClientSecret != "gh-secret" {
		t.Errorf("github oauth = %+v", cfg.OAuth.GitHub)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LYNKPAGE_PORT", "9090")
	t.Setenv("LYNKPAGE_ENV", "production")
	t.Setenv("LYNKPAGE_JWT_SECRET", "env-secret")
	t.Setenv("LYNKPAGE_ALLOWED_ORIGINS", "a.example.com, b.example.com")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Port)
	}
	if cfg.IsDev() {
		t.Error("expected production mode from env")
	}
	if cfg.JWTSecret != "env-secret" {
		t.Errorf("jwt secret = %q", cfg.JWTSecret)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "b.example.com" {
		t.Errorf("allowed origins = %v", cfg.AllowedOrigins)
	}
}
