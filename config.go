package faas

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration. It is read from a YAML file and then
// overridden by FAAS_* environment variables.
type Config struct {
	Addr              string        `yaml:"addr"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	StatusCodes       bool          `yaml:"status_codes"`
	Codec             string        `yaml:"codec"`
	LogLevel          string        `yaml:"log_level"`
	MetricsAddr       string        `yaml:"metrics_addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns the configuration used when no file or environment
// override is present.
func DefaultConfig() Config {
	return Config{
		Addr:              "127.0.0.1:3000",
		Codec:             "json",
		LogLevel:          "info",
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   30 * time.Second,
	}
}

// LoadConfig reads the YAML file at path over DefaultConfig, applies
// environment overrides, and validates the result. An empty path skips the
// file.
func LoadConfig(path string) (Config, error) {
	return loadConfig(path, os.LookupEnv)
}

func loadConfig(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("FAAS_ADDR"); ok {
		c.Addr = v
	}
	if v, ok := lookup("FAAS_MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("FAAS_MAX_BODY_BYTES: %w", err)
		}
		c.MaxBodyBytes = n
	}
	if v, ok := lookup("FAAS_STATUS_CODES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FAAS_STATUS_CODES: %w", err)
		}
		c.StatusCodes = b
	}
	if v, ok := lookup("FAAS_CODEC"); ok {
		c.Codec = v
	}
	if v, ok := lookup("FAAS_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup("FAAS_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr is required")
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("config: max_body_bytes must not be negative, got %d", c.MaxBodyBytes)
	}
	if _, err := CodecByName(c.Codec); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.ShutdownTimeout < 0 || c.ReadHeaderTimeout < 0 {
		return errors.New("config: timeouts must not be negative")
	}
	return nil
}

// Options converts the pipeline-related fields into Options.
func (c Config) Options() ([]Option, error) {
	codec, err := CodecByName(c.Codec)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithCodec(codec),
		WithMaxBodyBytes(c.MaxBodyBytes),
		WithStatusCodes(c.StatusCodes),
	}, nil
}
