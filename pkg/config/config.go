package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Radio backends
const (
	BackendSim  = "sim"
	BackendHost = "host"
)

// Payload source kinds
const (
	PayloadStatic  = "static"
	PayloadCounter = "counter"
	PayloadLua     = "lua"
)

// Limits mirrored from the advertising controller, checked up front so a bad
// file fails before the radio is touched
const (
	intervalMinMs     = 100
	intervalMaxMs     = 10000
	maxPayloadLen     = 24
	maxTxPowerDbm     = 4
	defaultConfigName = "bleadv.yaml"
)

// PayloadConfig selects what is put on air
type PayloadConfig struct {
	Kind         string        `yaml:"kind" json:"kind" default:"static"`
	Hex          string        `yaml:"hex" json:"hex"`
	CounterWidth int           `yaml:"counter_width" json:"counter_width" default:"2"`
	Script       string        `yaml:"script" json:"script"`
	Function     string        `yaml:"function" json:"function" default:"payload"`
	Every        time.Duration `yaml:"every" json:"every" default:"1s"`
}

// Config holds application configuration
type Config struct {
	LogLevel       string        `yaml:"log_level" json:"log_level" default:"info"`
	Backend        string        `yaml:"backend" json:"backend" default:"sim"`
	IntervalMs     uint32        `yaml:"interval_ms" json:"interval_ms" default:"1010"`
	TxPower        int8          `yaml:"tx_power" json:"tx_power" default:"0"`
	ManufacturerID uint16        `yaml:"manufacturer_id" json:"manufacturer_id" default:"0"`
	Type           string        `yaml:"type" json:"type" default:"nonconnectable_nonscannable"`
	Channels       []int         `yaml:"channels" json:"channels"` // empty uses 37, 38 and 39
	DeviceName     string        `yaml:"device_name" json:"device_name"`
	AdvertiseNUS   bool          `yaml:"advertise_nus" json:"advertise_nus"`
	Duration       time.Duration `yaml:"duration" json:"duration"`
	OutputFormat   string        `yaml:"output_format" json:"output_format" default:"text"` // text, json
	Payload        PayloadConfig `yaml:"payload" json:"payload"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML file on top of the defaults. A missing file is not an
// error when path is the default name.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = defaultConfigName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == defaultConfigName {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	// fields the file left empty
	defaults.SetDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values the controller would reject later
func (c *Config) Validate() error {
	var errs []error

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	switch c.Backend {
	case BackendSim, BackendHost:
	default:
		errs = append(errs, fmt.Errorf("backend: unknown %q (valid: %s, %s)", c.Backend, BackendSim, BackendHost))
	}
	if c.IntervalMs < intervalMinMs || c.IntervalMs > intervalMaxMs {
		errs = append(errs, fmt.Errorf("interval_ms: %d outside [%d, %d]", c.IntervalMs, intervalMinMs, intervalMaxMs))
	}
	if c.TxPower > maxTxPowerDbm {
		errs = append(errs, fmt.Errorf("tx_power: %d dBm above %d dBm", c.TxPower, maxTxPowerDbm))
	}
	seen := map[int]bool{}
	for _, ch := range c.Channels {
		if ch < 37 || ch > 39 {
			errs = append(errs, fmt.Errorf("channels: %d is not a primary advertising channel (37, 38, 39)", ch))
		} else if seen[ch] {
			errs = append(errs, fmt.Errorf("channels: %d listed twice", ch))
		}
		seen[ch] = true
	}
	switch c.OutputFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("output_format: unknown %q", c.OutputFormat))
	}
	if c.Duration < 0 {
		errs = append(errs, fmt.Errorf("duration: must not be negative"))
	}

	errs = append(errs, c.Payload.validate()...)
	return errors.Join(errs...)
}

func (p *PayloadConfig) validate() []error {
	var errs []error
	switch p.Kind {
	case PayloadStatic:
		b, err := p.Bytes()
		if err != nil {
			errs = append(errs, err)
		} else if len(b) > maxPayloadLen {
			errs = append(errs, fmt.Errorf("payload.hex: %d bytes, at most %d fit", len(b), maxPayloadLen))
		}
	case PayloadCounter:
		if p.CounterWidth != 1 && p.CounterWidth != 2 && p.CounterWidth != 4 {
			errs = append(errs, fmt.Errorf("payload.counter_width: must be 1, 2 or 4"))
		}
	case PayloadLua:
		if p.Script == "" {
			errs = append(errs, fmt.Errorf("payload.script: required for lua payloads"))
		}
	default:
		errs = append(errs, fmt.Errorf("payload.kind: unknown %q", p.Kind))
	}
	if p.Every <= 0 {
		errs = append(errs, fmt.Errorf("payload.every: must be positive"))
	}
	return errs
}

// Bytes decodes Hex, spaces and colons allowed between bytes
func (p *PayloadConfig) Bytes() ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "0x", "").Replace(p.Hex)
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("payload.hex: %w", err)
	}
	return b, nil
}

// Level returns the parsed log level, info when unparsable
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
