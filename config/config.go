package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki"`
}

// TelemetryConfig configures the Prometheus exporter.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"`
}

// InstrumentConfig describes one instrument the demo feed produces
// prices for.
type InstrumentConfig struct {
	ID           string  `yaml:"id"`
	InitialPrice float64 `yaml:"initial_price"`
	Volatility   float64 `yaml:"volatility,omitempty"`
}

// FeedConfig controls the demo producers and consumers.
type FeedConfig struct {
	Producers         int                `yaml:"producers"`
	Consumers         int                `yaml:"consumers"`
	Instruments       []InstrumentConfig `yaml:"instruments"`
	BatchInterval     Duration           `yaml:"batch_interval"`
	PollInterval      Duration           `yaml:"poll_interval"`
	ChunkSize         int                `yaml:"chunk_size"`
	ChunksPerBatch    int                `yaml:"chunks_per_batch"`
	CancelProbability float64            `yaml:"cancel_probability,omitempty"`
	Seed              *int64             `yaml:"seed,omitempty"`
}

// Config is the root configuration structure for the demo binary.
type Config struct {
	Name      string          `yaml:"name,omitempty"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Feed      FeedConfig      `yaml:"feed"`
}

const (
	defaultBatchInterval = 250 * time.Millisecond
	defaultPollInterval  = 100 * time.Millisecond
	defaultChunkSize     = 1000
	defaultTelemetryAddr = ":19090"
)

// Load reads and decodes the configuration file from disk.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path must not be empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Feed.Producers <= 0 {
		c.Feed.Producers = 1
	}
	if c.Feed.Consumers < 0 {
		c.Feed.Consumers = 0
	}
	if c.Feed.BatchInterval.Duration <= 0 {
		c.Feed.BatchInterval.Duration = defaultBatchInterval
	}
	if c.Feed.PollInterval.Duration <= 0 {
		c.Feed.PollInterval.Duration = defaultPollInterval
	}
	if c.Feed.ChunkSize <= 0 {
		c.Feed.ChunkSize = defaultChunkSize
	}
	if c.Feed.ChunksPerBatch <= 0 {
		c.Feed.ChunksPerBatch = 1
	}
	if c.Telemetry.Enabled && c.Telemetry.Listen == "" {
		c.Telemetry.Listen = defaultTelemetryAddr
	}
}

// Validate checks the configuration for inconsistencies that would only
// surface at runtime otherwise.
func (c *Config) Validate() error {
	if len(c.Feed.Instruments) == 0 {
		return errors.New("feed: at least one instrument must be configured")
	}
	seen := make(map[string]struct{}, len(c.Feed.Instruments))
	for _, instrument := range c.Feed.Instruments {
		if instrument.ID == "" {
			return errors.New("feed: instrument id must not be empty")
		}
		if _, ok := seen[instrument.ID]; ok {
			return fmt.Errorf("feed: duplicate instrument id %q", instrument.ID)
		}
		seen[instrument.ID] = struct{}{}
		if instrument.InitialPrice <= 0 {
			return fmt.Errorf("feed: instrument %s: initial_price must be positive", instrument.ID)
		}
		if instrument.Volatility < 0 {
			return fmt.Errorf("feed: instrument %s: volatility must not be negative", instrument.ID)
		}
	}
	if c.Feed.CancelProbability < 0 || c.Feed.CancelProbability > 1 {
		return errors.New("feed: cancel_probability must be between 0 and 1")
	}
	return nil
}
