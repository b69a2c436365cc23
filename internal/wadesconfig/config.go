// Package wadesconfig centralizes the configuration WADES's core loops
// need, as a value threaded explicitly through the controller rather
// than global state.
package wadesconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTimestampLayout is the canonical Go reference-time layout used
// to format and parse every persisted timestamp, to microsecond
// precision. Parsing is strict: a stored timestamp that fails this layout
// is rejected, never guessed at.
const DefaultTimestampLayout = "2006-01-02 15:04:05.000000"

// Config is the full set of options WADES recognizes.
type Config struct {
	// SamplePeriod is the target cadence between sampler/detector cycles.
	SamplePeriod time.Duration
	// MaxSamplePeriod clamps SamplePeriod from above.
	MaxSamplePeriod time.Duration
	// MinHistory is the minimum number of historical rows before any
	// numeric or username attribute is modeled.
	MinHistory int
	// MinBinSupport is the histogram-bin occupancy above which a numeric
	// anomaly's risk is decremented once more.
	MinBinSupport int
	// ProhibitedFiles is the blacklist consulted by the open-files detector.
	ProhibitedFiles []string
	// DetectionEnabled is the master switch for the detector task; the
	// sampler keeps running even when this is false.
	DetectionEnabled bool
	// QueryBindAddress/QueryPort locate the query interface's loopback
	// listener.
	QueryBindAddress string
	QueryPort        int
	// StoreRoot is the base directory for profile and anomaly files.
	StoreRoot string
	// TimestampLayout is the Go reference-time layout used for every
	// persisted timestamp.
	TimestampLayout string
	// LogLevel feeds internal/logging.Config.Level.
	LogLevel string
	// ProbeSettle is the wait between a CPU-percent prime and its read.
	ProbeSettle time.Duration
}

// fileConfig is the YAML shape of a configuration file. Durations are
// plain integers in the unit each key names; pointer fields distinguish
// "absent, keep the default" from an explicit zero.
type fileConfig struct {
	SamplePeriodSec    *int     `yaml:"sample_period_sec"`
	MaxSamplePeriodSec *int     `yaml:"max_sample_period_sec"`
	MinHistory         *int     `yaml:"min_history"`
	MinBinSupport      *int     `yaml:"min_bin_support"`
	ProhibitedFiles    []string `yaml:"prohibited_files"`
	DetectionEnabled   *bool    `yaml:"detection_enabled"`
	QueryBindAddress   *string  `yaml:"query_bind_address"`
	QueryPort          *int     `yaml:"query_port"`
	StoreRoot          *string  `yaml:"store_root"`
	TimestampLayout    *string  `yaml:"timestamp_format"`
	LogLevel           *string  `yaml:"log_level"`
	ProbeSettleMs      *int     `yaml:"probe_settle_ms"`
}

func (f fileConfig) apply(cfg *Config) {
	if f.SamplePeriodSec != nil {
		cfg.SamplePeriod = time.Duration(*f.SamplePeriodSec) * time.Second
	}
	if f.MaxSamplePeriodSec != nil {
		cfg.MaxSamplePeriod = time.Duration(*f.MaxSamplePeriodSec) * time.Second
	}
	if f.MinHistory != nil {
		cfg.MinHistory = *f.MinHistory
	}
	if f.MinBinSupport != nil {
		cfg.MinBinSupport = *f.MinBinSupport
	}
	if f.ProhibitedFiles != nil {
		cfg.ProhibitedFiles = f.ProhibitedFiles
	}
	if f.DetectionEnabled != nil {
		cfg.DetectionEnabled = *f.DetectionEnabled
	}
	if f.QueryBindAddress != nil {
		cfg.QueryBindAddress = *f.QueryBindAddress
	}
	if f.QueryPort != nil {
		cfg.QueryPort = *f.QueryPort
	}
	if f.StoreRoot != nil {
		cfg.StoreRoot = *f.StoreRoot
	}
	if f.TimestampLayout != nil {
		cfg.TimestampLayout = *f.TimestampLayout
	}
	if f.LogLevel != nil {
		cfg.LogLevel = *f.LogLevel
	}
	if f.ProbeSettleMs != nil {
		cfg.ProbeSettle = time.Duration(*f.ProbeSettleMs) * time.Millisecond
	}
}

// DefaultConfig returns the configuration an entirely unconfigured
// daemon runs with.
func DefaultConfig() Config {
	return Config{
		SamplePeriod:     3 * time.Minute,
		MaxSamplePeriod:  time.Hour,
		MinHistory:       10,
		MinBinSupport:    5,
		ProhibitedFiles:  []string{"/etc/passwd", "/etc/shadow", "/etc/bashrc"},
		DetectionEnabled: true,
		QueryBindAddress: "127.0.0.1",
		QueryPort:        9897,
		StoreRoot:        "/var/lib/wades",
		TimestampLayout:  DefaultTimestampLayout,
		LogLevel:         "info",
		ProbeSettle:      100 * time.Millisecond,
	}
}

// Load reads a YAML configuration file at path, applying its values over
// DefaultConfig. A missing file is not an error: the daemon runs on
// defaults, tolerating an entirely unconfigured install.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("wadesconfig: reading %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("wadesconfig: parsing %s: %w", path, err)
	}
	fc.apply(&cfg)
	return cfg, nil
}

// Validate rejects configuration that would leave the daemon unable to
// run. Configuration errors are fatal at startup.
func (c Config) Validate() error {
	if c.SamplePeriod <= 0 {
		return fmt.Errorf("wadesconfig: sample_period_sec must be positive")
	}
	if c.MaxSamplePeriod <= 0 {
		return fmt.Errorf("wadesconfig: max_sample_period_sec must be positive")
	}
	if c.MinHistory < 0 {
		return fmt.Errorf("wadesconfig: min_history must be non-negative")
	}
	if c.MinBinSupport < 0 {
		return fmt.Errorf("wadesconfig: min_bin_support must be non-negative")
	}
	if c.StoreRoot == "" {
		return fmt.Errorf("wadesconfig: store_root must be set")
	}
	if c.TimestampLayout == "" {
		return fmt.Errorf("wadesconfig: timestamp_format must be set")
	}
	if c.QueryPort <= 0 || c.QueryPort > 65535 {
		return fmt.Errorf("wadesconfig: query_port out of range")
	}
	return nil
}

// EffectivePeriod returns the cadence actually used by the controller:
// SamplePeriod clamped to MaxSamplePeriod.
func (c Config) EffectivePeriod() time.Duration {
	if c.SamplePeriod > c.MaxSamplePeriod {
		return c.MaxSamplePeriod
	}
	return c.SamplePeriod
}
