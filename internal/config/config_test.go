package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/lunar/internal/core"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090

simulation:
  default_days: 14
  start_price: 150

sessions:
  max_sessions: 50
  ttl_minutes: 10

archive:
  type: localfs
  path: "/tmp/lunar/exports"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Simulation.DefaultDays != 14 {
		t.Errorf("expected default_days 14, got %d", cfg.Simulation.DefaultDays)
	}
	if cfg.Simulation.StartPrice != 150 {
		t.Errorf("expected start_price 150, got %f", cfg.Simulation.StartPrice)
	}
	// untouched keys keep defaults
	if cfg.Simulation.FloorPrice != 100 {
		t.Errorf("expected default floor_price 100, got %f", cfg.Simulation.FloorPrice)
	}
	if cfg.Simulation.DailySwing.Min != -4 || cfg.Simulation.DailySwing.Max != 4 {
		t.Errorf("expected default daily swing [-4,4], got %+v", cfg.Simulation.DailySwing)
	}
	if cfg.Sessions.TTL() != 10*time.Minute {
		t.Errorf("expected ttl 10m, got %s", cfg.Sessions.TTL())
	}
	if cfg.Archive.Path != "/tmp/lunar/exports" {
		t.Errorf("expected archive path, got %s", cfg.Archive.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("LUNAR_TEST_CLAUDE_KEY", "sk-test")
	content := []byte(`
llm:
  provider: claude
  claude:
    api_key: "${LUNAR_TEST_CLAUDE_KEY}"
`)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.LLM.Claude.APIKey != "sk-test" {
		t.Errorf("expected expanded api key, got %q", cfg.LLM.Claude.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Simulation.MinDays != 7 || cfg.Simulation.MaxDays != 30 {
		t.Errorf("expected day range [7,30], got [%d,%d]", cfg.Simulation.MinDays, cfg.Simulation.MaxDays)
	}
	if cfg.Simulation.StartPrice != 145 {
		t.Errorf("expected start price 145, got %f", cfg.Simulation.StartPrice)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestSimulationConfig_Generator(t *testing.T) {
	gen := Defaults().Simulation.Generator()

	if gen.StartPrice != 145 || gen.FloorPrice != 100 {
		t.Errorf("unexpected prices: %+v", gen)
	}
	if gen.FullMoonBias.Min != 0.5 || gen.FullMoonBias.Max != 1.5 {
		t.Errorf("unexpected full moon bias: %+v", gen.FullMoonBias)
	}
	if gen.NewMoonBias.Min != 0.5 || gen.NewMoonBias.Max != 1.2 {
		t.Errorf("unexpected new moon bias: %+v", gen.NewMoonBias)
	}
}

func TestSimulationConfig_CheckDays(t *testing.T) {
	sim := Defaults().Simulation

	for _, days := range []int{7, 15, 30} {
		if err := sim.CheckDays(days); err != nil {
			t.Errorf("CheckDays(%d) unexpected error: %v", days, err)
		}
	}
	for _, days := range []int{-1, 0, 6, 31} {
		err := sim.CheckDays(days)
		if !errors.Is(err, core.ErrInvalidArgument) {
			t.Errorf("CheckDays(%d) = %v, want invalid argument", days, err)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid port - zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "invalid port - too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "chatty" },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "inverted day range",
			mutate:  func(c *Config) { c.Simulation.MinDays = 40 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "default days outside range",
			mutate:  func(c *Config) { c.Simulation.DefaultDays = 60 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "start below floor",
			mutate:  func(c *Config) { c.Simulation.StartPrice = 50 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "inverted swing",
			mutate:  func(c *Config) { c.Simulation.DailySwing = RangeConfig{Min: 4, Max: -4} },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "no session capacity",
			mutate:  func(c *Config) { c.Sessions.MaxSessions = 0 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "negative ttl",
			mutate:  func(c *Config) { c.Sessions.TTLMinutes = -1 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "claude without key",
			mutate:  func(c *Config) { c.LLM.Provider = "claude" },
			wantErr: core.ErrConfigMissing,
		},
		{
			name: "ollama with endpoint",
			mutate: func(c *Config) {
				c.LLM.Provider = "ollama"
				c.LLM.Ollama.Endpoint = "http://localhost:11434"
			},
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.LLM.Provider = "oracle" },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.Archive.Type = "s3" },
			wantErr: core.ErrConfigMissing,
		},
		{
			name:    "unknown archive",
			mutate:  func(c *Config) { c.Archive.Type = "tape" },
			wantErr: core.ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
