package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Config is the CLI's view of a channel: which key to sync, over which
// store, with which knobs.
type Config struct {
	Key       string `json:"key"`
	Namespace string `json:"namespace,omitempty"`

	Store StoreConfig `json:"store"`

	// PollInterval is a Go duration string (e.g. "500ms", "2s").
	// Applies to the polling transport only.
	PollInterval string `json:"poll_interval,omitempty"`

	Encryption EncryptionConfig `json:"encryption,omitempty"`
	Logging    LoggingConfig    `json:"logging,omitempty"`
}

type StoreConfig struct {
	// Driver: "file", "sqlite", or ""/"none" (process-local bus only).
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path,omitempty"`
}

type EncryptionConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Secret  string `json:"secret,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"`
	Debug bool   `json:"debug,omitempty"`
}

// Load reads and strictly decodes a JSON or YAML config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jb, err := yamlToJSON(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Key == "" {
		return errors.New("key is required")
	}
	if _, err := c.PollDuration(); err != nil {
		return err
	}
	return nil
}

// PollDuration parses PollInterval; zero means "use the default".
func (c *Config) PollDuration() (time.Duration, error) {
	if c.PollInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("poll_interval: %w", err)
	}
	return d, nil
}
