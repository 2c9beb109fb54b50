// Package hostconfig loads the YAML configuration of the host tools and reads
// and writes settings records as YAML documents.
package hostconfig

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tuffrabit/tinygo-flcm1/pkg/canbus"
	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
)

const (
	DefaultBaud      = 115200
	DefaultTimeoutMs = 1000
	DefaultScale     = 2
)

type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Serial    SerialConfig    `yaml:"serial"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SerialConfig selects the device port. An empty Port means probe every
// port for a device.
type SerialConfig struct {
	Port      string `yaml:"port"`
	Baud      int    `yaml:"baud"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type SimulatorConfig struct {
	Scale    int             `yaml:"scale"`
	Settings string          `yaml:"settings"` // optional settings YAML loaded at start
	Traffic  []TrafficConfig `yaml:"traffic"`
}

// TrafficConfig is one synthetic CAN message sent every PeriodMs.
// Data is hex, spaces allowed. Counter increments the last data byte on
// every send.
type TrafficConfig struct {
	ID       uint32 `yaml:"id"`
	Extended bool   `yaml:"extended"`
	Data     string `yaml:"data"`
	PeriodMs int    `yaml:"period_ms"`
	Counter  bool   `yaml:"counter"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Serial:  SerialConfig{Baud: DefaultBaud, TimeoutMs: DefaultTimeoutMs},
		Simulator: SimulatorConfig{
			Scale: DefaultScale,
			Traffic: []TrafficConfig{
				{ID: 0x020, Data: "01 A0 FF", PeriodMs: 500, Counter: true},
				{ID: 0x140, Data: "00 10", PeriodMs: 1000},
				{ID: 0x7E8, Data: "03 41 0D 32", PeriodMs: 1500},
			},
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration correctness. It does not modify cfg.
func Validate(cfg *Config) error {
	if _, err := ParseLevel(cfg.Logging.Level); err != nil {
		return err
	}
	if cfg.Serial.Baud <= 0 {
		return fmt.Errorf("serial: invalid baud rate %d", cfg.Serial.Baud)
	}
	if cfg.Serial.TimeoutMs <= 0 {
		return fmt.Errorf("serial: timeout_ms must be positive, got %d", cfg.Serial.TimeoutMs)
	}
	if cfg.Simulator.Scale < 1 || cfg.Simulator.Scale > 8 {
		return fmt.Errorf("simulator: scale must be 1-8, got %d", cfg.Simulator.Scale)
	}
	for i, t := range cfg.Simulator.Traffic {
		if t.PeriodMs <= 0 {
			return fmt.Errorf("simulator: traffic[%d]: period_ms must be positive", i)
		}
		limit := uint32(config.StdIDMax)
		if t.Extended {
			limit = config.ExtIDMax
		}
		if t.ID > limit {
			return fmt.Errorf("simulator: traffic[%d]: id 0x%X exceeds 0x%X", i, t.ID, limit)
		}
		if _, err := t.Payload(); err != nil {
			return fmt.Errorf("simulator: traffic[%d]: %w", i, err)
		}
	}
	return nil
}

// Payload decodes Data.
func (t TrafficConfig) Payload() ([]byte, error) {
	data, err := hex.DecodeString(strings.ReplaceAll(t.Data, " ", ""))
	if err != nil {
		return nil, fmt.Errorf("data %q: %w", t.Data, err)
	}
	if len(data) > canbus.MaxDataLen {
		return nil, fmt.Errorf("data %q: more than %d bytes", t.Data, canbus.MaxDataLen)
	}
	return data, nil
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logging: invalid level %q", s)
	}
	return level, nil
}

// LoadSettings reads a settings document. Fields the document leaves out
// keep their factory defaults.
func LoadSettings(path string) (config.DeviceSettings, error) {
	f, err := os.Open(path)
	if err != nil {
		return config.DeviceSettings{}, fmt.Errorf("open settings %q: %w", path, err)
	}
	defer f.Close()
	return DecodeSettings(f)
}

// DecodeSettings reads a settings document from r.
func DecodeSettings(r io.Reader) (config.DeviceSettings, error) {
	s := config.Defaults()
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return config.DeviceSettings{}, fmt.Errorf("parse settings: %w", err)
	}
	s.Version = config.CurrentVersion
	if err := s.Validate(); err != nil {
		return config.DeviceSettings{}, err
	}
	return s, nil
}

// EncodeSettings writes s as a settings document.
func EncodeSettings(w io.Writer, s config.DeviceSettings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&s); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return enc.Close()
}

// SaveSettings writes s to path.
func SaveSettings(path string, s config.DeviceSettings) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create settings %q: %w", path, err)
	}
	if err := EncodeSettings(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
