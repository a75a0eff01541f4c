package mcpimage

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// CapacityConfig holds the fixed process-wide resource ceilings. Every
// dimension must be positive; operations are admitted only while the sum of
// running requirements stays at or below these values.
type CapacityConfig struct {
	// MemoryBytes is the aggregate memory ceiling.
	MemoryBytes int64 `yaml:"memory_bytes"`

	// CPUPercent is the aggregate CPU ceiling (0–100 per core-share model).
	CPUPercent float64 `yaml:"cpu_percent"`

	// NetworkBytesPerSec is the aggregate bandwidth ceiling.
	NetworkBytesPerSec int64 `yaml:"network_bytes_per_sec"`

	// MaxConnections is the aggregate concurrent-connection ceiling.
	MaxConnections int `yaml:"max_connections"`
}

// Config holds configuration for the orchestration engine.
type Config struct {
	// Capacity is the resource ceiling enforced by the scheduler ledger.
	Capacity CapacityConfig `yaml:"capacity"`

	// QueueTimeout is the maximum time an operation waits for admission
	// before failing with ErrSystemBusy.
	QueueTimeout time.Duration `yaml:"queue_timeout"`

	// RetryCeiling is the retry count at which recoverable errors
	// escalate to fatal.
	RetryCeiling int `yaml:"retry_ceiling"`

	// AdmitRate caps the sustained rate of fresh admissions per second.
	// Zero disables admission rate limiting.
	AdmitRate float64 `yaml:"admit_rate"`

	// AdmitBurst is the burst size for the admission rate limiter.
	// Defaults to 1 if AdmitRate is set but AdmitBurst is zero.
	AdmitBurst int `yaml:"admit_burst"`

	// JournalSize bounds the in-memory failure journal. Zero disables it.
	JournalSize int `yaml:"journal_size"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Capacity: CapacityConfig{
			MemoryBytes:        512 << 20, // 512 MiB
			CPUPercent:         80,
			NetworkBytesPerSec: 10 << 20, // 10 MiB/s
			MaxConnections:     10,
		},
		QueueTimeout: 30 * time.Second,
		RetryCeiling: 3,
		JournalSize:  256,
		LogLevel:     "info",
	}
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	cap := c.Capacity
	if cap.MemoryBytes <= 0 || cap.CPUPercent <= 0 || cap.NetworkBytesPerSec <= 0 || cap.MaxConnections <= 0 {
		return fmt.Errorf("%w: every capacity dimension must be positive", ErrInvalidCapacity)
	}
	if c.QueueTimeout <= 0 {
		return fmt.Errorf("%w: queue timeout must be positive", ErrInvalidCapacity)
	}
	if c.RetryCeiling < 0 {
		return fmt.Errorf("%w: retry ceiling must not be negative", ErrInvalidCapacity)
	}
	return nil
}

// LoadConfig reads a YAML config file on top of DefaultConfig, after loading
// a .env file (if present) and applying MCPIMAGE_* environment overrides.
// An empty path skips the file and uses defaults + environment only.
func LoadConfig(path string) (Config, error) {
	// Missing .env is not an error; it is a local-dev convenience.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := envInt64("MCPIMAGE_MEMORY_BYTES"); ok {
		cfg.Capacity.MemoryBytes = v
	}
	if v, ok := envFloat("MCPIMAGE_CPU_PERCENT"); ok {
		cfg.Capacity.CPUPercent = v
	}
	if v, ok := envInt64("MCPIMAGE_NETWORK_BYTES_PER_SEC"); ok {
		cfg.Capacity.NetworkBytesPerSec = v
	}
	if v, ok := envInt64("MCPIMAGE_MAX_CONNECTIONS"); ok {
		cfg.Capacity.MaxConnections = int(v)
	}
	if raw := os.Getenv("MCPIMAGE_QUEUE_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cfg.QueueTimeout = d
		}
	}
	if v, ok := envInt64("MCPIMAGE_RETRY_CEILING"); ok {
		cfg.RetryCeiling = int(v)
	}
	if raw := os.Getenv("MCPIMAGE_LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
}

func envInt64(key string) (int64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envFloat(key string) (float64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
