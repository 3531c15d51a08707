// Package config loads the YAML configuration for the voice pipeline.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration
type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	Models    ModelsConfig    `yaml:"models"`
	Wakeword  WakewordConfig  `yaml:"wakeword"`
	Collector CollectorConfig `yaml:"collector"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Command   CommandConfig   `yaml:"command"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AudioConfig selects the input and how it is chunked
type AudioConfig struct {
	// Input is a wav file to replay; empty means the default microphone.
	Input         string        `yaml:"input"`
	Realtime      bool          `yaml:"realtime"`
	ChunkDuration time.Duration `yaml:"chunk_duration"`
	Window        time.Duration `yaml:"window"`
}

// ModelsConfig points at the whisper models for each engine tier
type ModelsConfig struct {
	Fast     string `yaml:"fast"`
	Slow     string `yaml:"slow"`
	Language string `yaml:"language"`
}

type WakewordConfig struct {
	Phrases     []string `yaml:"phrases"`
	MaxNoSpeech float64  `yaml:"max_no_speech"`
}

type CollectorConfig struct {
	SilenceThreshold float64       `yaml:"silence_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

type MonitorConfig struct {
	LivenessTimeout time.Duration `yaml:"liveness_timeout"`
}

// CommandConfig decides where finished commands go
type CommandConfig struct {
	// BotHost is the assistant bot base URL; empty means commands are only logged.
	BotHost string        `yaml:"bot_host"`
	Timeout time.Duration `yaml:"timeout"`
}

type MetricsConfig struct {
	// Address serves /metrics when set, e.g. ":9090".
	Address string `yaml:"address"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			Realtime:      true,
			ChunkDuration: 500 * time.Millisecond,
			Window:        2 * time.Second,
		},
		Models: ModelsConfig{
			Fast:     "models/ggml-base.en.bin",
			Slow:     "models/ggml-medium.en.bin",
			Language: "en",
		},
		Wakeword: WakewordConfig{
			Phrases: []string{"hey smart home"},
		},
		Collector: CollectorConfig{
			SilenceThreshold: 0.7,
			Timeout:          15 * time.Second,
		},
		Monitor: MonitorConfig{
			LivenessTimeout: 10 * time.Second,
		},
		Command: CommandConfig{
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads the file at path over the defaults and validates the result.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Models.Validate(); err != nil {
		return fmt.Errorf("models config: %w", err)
	}

	if err := c.Wakeword.Validate(); err != nil {
		return fmt.Errorf("wakeword config: %w", err)
	}

	if err := c.Collector.Validate(); err != nil {
		return fmt.Errorf("collector config: %w", err)
	}

	if err := c.Monitor.Validate(); err != nil {
		return fmt.Errorf("monitor config: %w", err)
	}

	if err := c.Command.Validate(); err != nil {
		return fmt.Errorf("command config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func (a *AudioConfig) Validate() error {
	if a.ChunkDuration <= 0 {
		return fmt.Errorf("chunk_duration must be positive, got %s", a.ChunkDuration)
	}

	if a.Window < a.ChunkDuration || a.Window%a.ChunkDuration != 0 {
		return fmt.Errorf("window (%s) must be a whole multiple of chunk_duration (%s)", a.Window, a.ChunkDuration)
	}

	return nil
}

func (m *ModelsConfig) Validate() error {
	if m.Fast == "" {
		return fmt.Errorf("fast model cannot be empty")
	}

	if m.Slow == "" {
		return fmt.Errorf("slow model cannot be empty")
	}

	return nil
}

// ApplyFlags overrides the model paths given on the command line. A fast
// model given alone also serves the slow tier, but only while the slow model
// is still the default; it reports whether that happened.
func (m *ModelsConfig) ApplyFlags(fast, slow string) (slowFromFast bool) {
	if fast != "" {
		m.Fast = fast

		if slow == "" && m.Slow == Default().Models.Slow {
			m.Slow = fast
			slowFromFast = true
		}
	}

	if slow != "" {
		m.Slow = slow
	}

	return slowFromFast
}

func (w *WakewordConfig) Validate() error {
	if len(w.Phrases) == 0 {
		return fmt.Errorf("phrases cannot be empty")
	}

	if w.MaxNoSpeech < 0 || w.MaxNoSpeech > 1 {
		return fmt.Errorf("max_no_speech must be between 0 and 1, got %f", w.MaxNoSpeech)
	}

	return nil
}

func (c *CollectorConfig) Validate() error {
	if c.SilenceThreshold <= 0 || c.SilenceThreshold > 1 {
		return fmt.Errorf("silence_threshold must be in (0, 1], got %f", c.SilenceThreshold)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}

	return nil
}

func (m *MonitorConfig) Validate() error {
	if m.LivenessTimeout <= 0 {
		return fmt.Errorf("liveness_timeout must be positive, got %s", m.LivenessTimeout)
	}

	return nil
}

func (c *CommandConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}

	return nil
}

func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error, got %q", l.Level)
	}

	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format must be text or json, got %q", l.Format)
	}

	return nil
}
