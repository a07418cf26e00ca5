package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/simulator"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Sessions   SessionsConfig   `mapstructure:"sessions"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// SimulationConfig holds series generation settings. MinDays and MaxDays
// bound what the CLI and API accept; the generator itself takes any
// positive day count.
type SimulationConfig struct {
	DefaultDays  int         `mapstructure:"default_days"`
	MinDays      int         `mapstructure:"min_days"`
	MaxDays      int         `mapstructure:"max_days"`
	StartPrice   float64     `mapstructure:"start_price"`
	FloorPrice   float64     `mapstructure:"floor_price"`
	DailySwing   RangeConfig `mapstructure:"daily_swing"`
	FullMoonBias RangeConfig `mapstructure:"full_moon_bias"`
	NewMoonBias  RangeConfig `mapstructure:"new_moon_bias"`
}

type RangeConfig struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// SessionsConfig holds session store settings.
type SessionsConfig struct {
	MaxSessions   int    `mapstructure:"max_sessions"`
	TTLMinutes    int    `mapstructure:"ttl_minutes"`
	SweepSchedule string `mapstructure:"sweep_schedule"` // cron spec with seconds field
}

// LLMConfig selects the model that narrates outlooks. An empty provider
// keeps narration rule-based.
type LLMConfig struct {
	Provider       string       `mapstructure:"provider"`
	TimeoutSeconds int          `mapstructure:"timeout_seconds"`
	MaxTokens      int          `mapstructure:"max_tokens"`
	Claude         ClaudeConfig `mapstructure:"claude"`
	OpenAI         OpenAIConfig `mapstructure:"openai"`
	Ollama         OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// ArchiveConfig holds report export settings.
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	// Support environment variable overrides
	v.SetEnvPrefix("LUNAR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("simulation.default_days", d.Simulation.DefaultDays)
	v.SetDefault("simulation.min_days", d.Simulation.MinDays)
	v.SetDefault("simulation.max_days", d.Simulation.MaxDays)
	v.SetDefault("simulation.start_price", d.Simulation.StartPrice)
	v.SetDefault("simulation.floor_price", d.Simulation.FloorPrice)
	v.SetDefault("simulation.daily_swing.min", d.Simulation.DailySwing.Min)
	v.SetDefault("simulation.daily_swing.max", d.Simulation.DailySwing.Max)
	v.SetDefault("simulation.full_moon_bias.min", d.Simulation.FullMoonBias.Min)
	v.SetDefault("simulation.full_moon_bias.max", d.Simulation.FullMoonBias.Max)
	v.SetDefault("simulation.new_moon_bias.min", d.Simulation.NewMoonBias.Min)
	v.SetDefault("simulation.new_moon_bias.max", d.Simulation.NewMoonBias.Max)
	v.SetDefault("sessions.max_sessions", d.Sessions.MaxSessions)
	v.SetDefault("sessions.ttl_minutes", d.Sessions.TTLMinutes)
	v.SetDefault("sessions.sweep_schedule", d.Sessions.SweepSchedule)
	v.SetDefault("llm.timeout_seconds", d.LLM.TimeoutSeconds)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("archive.type", d.Archive.Type)
	v.SetDefault("archive.path", d.Archive.Path)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	sim := simulator.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
		},
		Simulation: SimulationConfig{
			DefaultDays:  30,
			MinDays:      7,
			MaxDays:      30,
			StartPrice:   sim.StartPrice,
			FloorPrice:   sim.FloorPrice,
			DailySwing:   RangeConfig(sim.DailySwing),
			FullMoonBias: RangeConfig(sim.FullMoonBias),
			NewMoonBias:  RangeConfig(sim.NewMoonBias),
		},
		Sessions: SessionsConfig{
			MaxSessions:   1000,
			TTLMinutes:    60,
			SweepSchedule: "0 */5 * * * *",
		},
		LLM: LLMConfig{
			TimeoutSeconds: 20,
			MaxTokens:      200,
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "./exports",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Generator converts the simulation section into generator parameters.
func (c SimulationConfig) Generator() simulator.Config {
	return simulator.Config{
		StartPrice:   c.StartPrice,
		FloorPrice:   c.FloorPrice,
		DailySwing:   simulator.Range(c.DailySwing),
		FullMoonBias: simulator.Range(c.FullMoonBias),
		NewMoonBias:  simulator.Range(c.NewMoonBias),
	}
}

// Timeout returns the per-call narration deadline.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TTL returns the session idle timeout.
func (c SessionsConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// CheckDays enforces the configured day range on user input.
func (c SimulationConfig) CheckDays(days int) error {
	if days < c.MinDays || days > c.MaxDays {
		return core.WrapError(core.ErrInvalidArgument,
			fmt.Errorf("days must be between %d and %d, got %d", c.MinDays, c.MaxDays, days))
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("log level %q: %w", c.Log.Level, err))
		}
	}

	// Simulation validation
	sim := c.Simulation
	if sim.MinDays < 1 || sim.MaxDays < sim.MinDays {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("day range must satisfy 1 <= min_days <= max_days, got [%d, %d]", sim.MinDays, sim.MaxDays))
	}
	if sim.DefaultDays < sim.MinDays || sim.DefaultDays > sim.MaxDays {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("default_days %d outside [%d, %d]", sim.DefaultDays, sim.MinDays, sim.MaxDays))
	}
	if sim.StartPrice < sim.FloorPrice {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("start_price %.2f below floor_price %.2f", sim.StartPrice, sim.FloorPrice))
	}
	for name, r := range map[string]RangeConfig{
		"daily_swing":    sim.DailySwing,
		"full_moon_bias": sim.FullMoonBias,
		"new_moon_bias":  sim.NewMoonBias,
	} {
		if r.Min > r.Max {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s min %.2f greater than max %.2f", name, r.Min, r.Max))
		}
	}

	// Sessions validation
	if c.Sessions.MaxSessions < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_sessions must be positive, got %d", c.Sessions.MaxSessions))
	}
	if c.Sessions.TTLMinutes < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("ttl_minutes cannot be negative, got %d", c.Sessions.TTLMinutes))
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	// Archive validation
	switch c.Archive.Type {
	case "", "localfs":
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Archive.Type))
	}

	return nil
}
