package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "gateway"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Service != "gateway" {
			t.Errorf("expected logging service to follow name, got %q", cfg.Logging.Service)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "gateway", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{"valid", ServiceConfig{Name: "gateway", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "gateway", Environment: "qa"}, "config.environment must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Registry      struct {
		Backend    string        `mapstructure:"backend"`
		StaleAfter time.Duration `mapstructure:"stale_after"`
	} `mapstructure:"registry"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: gateway
environment: staging
registry:
  backend: sqlite
  stale_after: 2m
`)

	var cfg testConfig
	if err := LoadConfig("gateway", &cfg, WithConfigFile(path), WithEnvPrefix("RGTEST")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "gateway" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config %+v", cfg.ServiceConfig)
	}
	if cfg.Registry.Backend != "sqlite" {
		t.Errorf("expected sqlite backend, got %q", cfg.Registry.Backend)
	}
	if cfg.Registry.StaleAfter != 2*time.Minute {
		t.Errorf("expected 2m, got %v", cfg.Registry.StaleAfter)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: gateway\nregistry:\n  backend: sqlite\n")
	t.Setenv("RGTEST_REGISTRY_BACKEND", "redis")
	t.Setenv("RGTEST_REGISTRY_STALE_AFTER", "90s")

	var cfg testConfig
	if err := LoadConfig("gateway", &cfg, WithConfigFile(path), WithEnvPrefix("RGTEST")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Registry.Backend != "redis" {
		t.Errorf("expected env override, got %q", cfg.Registry.Backend)
	}
	if cfg.Registry.StaleAfter != 90*time.Second {
		t.Errorf("expected 90s, got %v", cfg.Registry.StaleAfter)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: gateway\n")
	envPath := writeFile(t, dir, ".env", "RGTEST_ENVFILE_REGISTRY_BACKEND=memory\n")
	t.Cleanup(func() { os.Unsetenv("RGTEST_ENVFILE_REGISTRY_BACKEND") })

	var cfg testConfig
	err := LoadConfig("gateway", &cfg, WithConfigFile(path), WithEnvFile(envPath), WithEnvPrefix("RGTEST_ENVFILE"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Registry.Backend != "memory" {
		t.Errorf("expected value from .env, got %q", cfg.Registry.Backend)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("gateway", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(string) error    { return nil }

func TestSearchPathsPreferCmdDirectory(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/gateway/config.yml": true,
		"./config.yml":             true,
	}}
	if got := findFirst(fs, configSearchPaths("gateway")); got != "./cmd/gateway/config.yml" {
		t.Errorf("expected cmd config first, got %q", got)
	}
	if got := findFirst(fs, envSearchPaths("gateway")); got != "" {
		t.Errorf("expected no env file, got %q", got)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("REGISTRY_STALE_AFTER")
	want := []string{
		"registry.stale.after",
		"registry_stale.after",
		"registry.stale_after",
		"registry_stale_after",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d variants, got %v", len(want), got)
	}
	for _, w := range want {
		if !slices.Contains(got, w) {
			t.Errorf("missing variant %q in %v", w, got)
		}
	}
	if v := envKeyVariants("PORT"); len(v) != 1 || v[0] != "port" {
		t.Errorf("single word key should map to itself, got %v", v)
	}
}

func TestBindEnvRespectsPrefix(t *testing.T) {
	v := viper.New()
	bindEnv(v, "RG", []string{"RG_SERVER_PORT=9000", "PATH=/bin", "broken"})
	if v.GetString("server.port") != "9000" {
		t.Errorf("expected server.port bound, got %q", v.GetString("server.port"))
	}
	if v.IsSet("path") {
		t.Error("unprefixed variables should be ignored")
	}
}
