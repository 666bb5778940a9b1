// Package config loads the motion daemon configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendGeneric = "generic"
	BackendNanoPi  = "nanopi"
	BackendMCP2221 = "mcp2221"
)

const maxFileSize = 64 * 1024

type Config struct {
	Bus         Bus         `yaml:"bus"`
	Sensors     Sensors     `yaml:"sensors"`
	Acquisition Acquisition `yaml:"acquisition"`
	Interrupt   Interrupt   `yaml:"interrupt"`
}

type Bus struct {
	Backend string `yaml:"backend"`

	// bus speed, generic backend only
	ClockHz int64 `yaml:"clock_hz"`

	// periph.io bus name, generic backend only
	Device string `yaml:"device"`

	// adaptor bus number, nanopi backend only
	Number int `yaml:"number"`

	// adapter index when several MCP2221 are plugged in
	Adapter int `yaml:"adapter"`
}

type Sensors struct {
	Accelerometer uint8 `yaml:"accelerometer"`
	Magnetometer  uint8 `yaml:"magnetometer"`
	GyroscopeAD0  bool  `yaml:"gyroscope_ad0"`
}

type Acquisition struct {
	Period         time.Duration `yaml:"period"`
	IdentityRounds int           `yaml:"identity_rounds"`
	MinIdentified  int           `yaml:"min_identified"`

	// zero disables periodic temperature reads
	TemperatureInterval time.Duration `yaml:"temperature_interval"`
}

type Interrupt struct {
	// empty disables the status interrupt
	Pin string `yaml:"pin"`
}

func Default() *Config {
	return &Config{
		Bus: Bus{
			Backend: BackendGeneric,
			Device:  "/dev/i2c-1",
			Number:  0,
			ClockHz: 400_000,
		},
		Sensors: Sensors{
			Accelerometer: 0x53,
			Magnetometer:  0x1E,
		},
		Acquisition: Acquisition{
			Period:         100 * time.Millisecond,
			IdentityRounds: 3,
			MinIdentified:  7,
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err = dec.Decode(cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Bus.Backend {
	case BackendGeneric, BackendNanoPi, BackendMCP2221:
	default:
		return fmt.Errorf("unknown bus backend %q", c.Bus.Backend)
	}
	if c.Bus.Backend == BackendGeneric && c.Bus.ClockHz <= 0 {
		return fmt.Errorf("clock_hz must be positive, got %d", c.Bus.ClockHz)
	}
	if c.Acquisition.Period <= 0 {
		return fmt.Errorf("period must be positive, got %s", c.Acquisition.Period)
	}
	if c.Acquisition.TemperatureInterval < 0 {
		return fmt.Errorf("temperature_interval must not be negative, got %s", c.Acquisition.TemperatureInterval)
	}
	if c.Acquisition.IdentityRounds < 1 {
		return fmt.Errorf("identity_rounds must be at least 1, got %d", c.Acquisition.IdentityRounds)
	}
	if limit := 3 * c.Acquisition.IdentityRounds; c.Acquisition.MinIdentified < 1 || c.Acquisition.MinIdentified > limit {
		return fmt.Errorf("min_identified must be between 1 and %d, got %d", limit, c.Acquisition.MinIdentified)
	}
	if c.Sensors.Accelerometer > 0x7F || c.Sensors.Magnetometer > 0x7F {
		return errors.New("sensor addresses must be 7-bit")
	}
	return nil
}

// Write encodes the configuration as YAML.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("could not encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
