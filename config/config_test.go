package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

// clearEnv blanks the override variables so ambient CI values cannot leak
// into assertions about file and default precedence.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"HOST", "PORT", "MODEL_PATH", "LOG_LEVEL", "CACHE_SIZE"} {
		t.Setenv(key, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load with missing file: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want default 8000", cfg.Server.Port)
	}
	if cfg.Model.Path != "models/wine_classifier.json" {
		t.Errorf("model path = %q, want default", cfg.Model.Path)
	}
	if cfg.Cache.Size != 256 {
		t.Errorf("cache size = %d, want default 256", cfg.Cache.Size)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `server:
  port: 9001
  host: 127.0.0.1
model:
  path: testdata/model.json
log:
  level: warn
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Model.Path != "testdata/model.json" {
		t.Errorf("model path = %q", cfg.Model.Path)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q, want warn", cfg.Log.Level)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Server.ReadTimeoutSeconds != 10 {
		t.Errorf("read timeout = %d, want default 10", cfg.Server.ReadTimeoutSeconds)
	}
	if cfg.Cache.Size != 256 {
		t.Errorf("cache size = %d, want default 256", cfg.Cache.Size)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `server:
  port: 8500
log:
  level: info
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	clearEnv(t)
	t.Setenv("PORT", "9100")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CACHE_SIZE", "32")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want env override 9100", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want env override debug", cfg.Log.Level)
	}
	if cfg.Cache.Size != 32 {
		t.Errorf("cache size = %d, want env override 32", cfg.Cache.Size)
	}
}

func TestEnvBadIntIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want default 8000 when PORT is unparseable", cfg.Server.Port)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"empty model path", func(c *Config) { c.Model.Path = "" }},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeoutSeconds = 0 }},
		{"zero body limit", func(c *Config) { c.Server.MaxBodyBytes = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestServerConfigDurations(t *testing.T) {
	s := ServerConfig{ReadTimeoutSeconds: 3, ShutdownSeconds: 7, Host: "0.0.0.0", Port: 8000}
	if got := s.ReadTimeout(); got != 3*time.Second {
		t.Errorf("read timeout = %v, want 3s", got)
	}
	if got := s.ShutdownTimeout(); got != 7*time.Second {
		t.Errorf("shutdown timeout = %v, want 7s", got)
	}
	if got := s.Addr(); got != "0.0.0.0:8000" {
		t.Errorf("addr = %q", got)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, path, zap.NewNop(), func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// The watcher may not be registered yet when the first rewrite lands, so
	// keep rewriting until a reload is observed.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Log.Level != "debug" {
				t.Fatalf("reloaded level = %q, want debug", cfg.Log.Level)
			}
			cancel()
			<-done
			return
		case <-tick.C:
			if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
				t.Fatalf("rewrite config: %v", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
	}
}
