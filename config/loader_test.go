package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoader_DefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
name: registry
version: "1.0.0"
server:
  http:
    port: 9090
cache:
  enabled: true
  type: memory
  default_ttl: 2m
  route_ttl:
    "GET /api/codes": 30
`)

	cm, err := NewConfigurationManager(path)
	if err != nil {
		t.Fatalf("NewConfigurationManager: %v", err)
	}

	config := cm.GetConfig()
	if config.Name != "registry" {
		t.Errorf("name = %q", config.Name)
	}
	if config.Server.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", config.Server.HTTP.Port)
	}
	if config.Server.HTTP.Host != "localhost" {
		t.Errorf("default host = %q", config.Server.HTTP.Host)
	}
	if config.Cache.DefaultTTL != 2*time.Minute {
		t.Errorf("default_ttl = %v", config.Cache.DefaultTTL)
	}
	if config.Cache.RouteTTL["GET /api/codes"] != 30 {
		t.Errorf("route_ttl = %v", config.Cache.RouteTTL)
	}
}

func TestLoader_MissingRequiredFields(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    port: 8080
`)

	if _, err := NewConfigurationManager(path); err == nil {
		t.Fatal("expected validation error for missing name and version")
	}
}

func TestLoader_EnvExpansion(t *testing.T) {
	t.Setenv("REGISTRY_PORT", "7070")

	path := writeConfig(t, `
name: registry
version: "1.0.0"
server:
  http:
    host: "${REGISTRY_HOST:0.0.0.0}"
    port: ${REGISTRY_PORT}
`)

	cm, err := NewConfigurationManager(path)
	if err != nil {
		t.Fatalf("NewConfigurationManager: %v", err)
	}

	config := cm.GetConfig()
	if config.Server.HTTP.Port != 7070 {
		t.Errorf("port = %d, want env value 7070", config.Server.HTTP.Port)
	}
	if config.Server.HTTP.Host != "0.0.0.0" {
		t.Errorf("host = %q, want fallback 0.0.0.0", config.Server.HTTP.Host)
	}
}

func TestParser_GetValue(t *testing.T) {
	path := writeConfig(t, `
name: registry
version: "1.0.0"
cron:
  enabled: true
  timezone: UTC
  sweep_schedule: "*/5 * * * *"
`)

	cm, err := NewConfigurationManager(path)
	if err != nil {
		t.Fatalf("NewConfigurationManager: %v", err)
	}

	if got := cm.GetValue("cron.sweep_schedule", ""); got != "*/5 * * * *" {
		t.Errorf("sweep_schedule = %v", got)
	}
	if got := cm.GetValue("cron.missing", "fallback"); got != "fallback" {
		t.Errorf("missing path = %v, want fallback", got)
	}
}
