package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration represents the complete engine configuration.
type Configuration struct {
	Engine      EngineConfig      `yaml:"engine"`
	Tiers       TiersConfig       `yaml:"tiers"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Promotion   PromotionConfig   `yaml:"promotion"`
	Patterns    PatternConfig     `yaml:"patterns"`
	Compression CompressionConfig `yaml:"compression"`
	Storage     StorageConfig     `yaml:"storage"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
}

// EngineConfig represents engine-wide settings.
type EngineConfig struct {
	LogLevel      string        `yaml:"log_level"`
	DefaultTTL    time.Duration `yaml:"default_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// TiersConfig holds the per-tier capacity settings.
type TiersConfig struct {
	Fast TierConfig `yaml:"fast"`
	Warm TierConfig `yaml:"warm"`
	Cold TierConfig `yaml:"cold"`
}

// TierConfig bounds one tier. Capacity is an entry count; strategy changes
// resize within [MinCapacity, MaxCapacity].
type TierConfig struct {
	Capacity    int `yaml:"capacity"`
	MinCapacity int `yaml:"min_capacity"`
	MaxCapacity int `yaml:"max_capacity"`
}

// StrategyConfig controls strategy adaptation.
type StrategyConfig struct {
	AdaptationInterval time.Duration `yaml:"adaptation_interval"`
	MetricsTimeout     time.Duration `yaml:"metrics_timeout"`
}

// PromotionConfig controls tier promotion and demotion.
type PromotionConfig struct {
	PromoteThreshold int           `yaml:"promote_threshold"`
	DemoteThreshold  int           `yaml:"demote_threshold"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
}

// PatternConfig controls access-pattern tracking.
type PatternConfig struct {
	MaxSamples  int           `yaml:"max_samples"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// CompressionConfig represents value compression settings.
type CompressionConfig struct {
	Enabled bool  `yaml:"enabled"`
	MinSize int64 `yaml:"min_size"`
	Level   int   `yaml:"level"`
}

// StorageConfig selects the durable backends for the warm and cold tiers.
// The fast tier never has a backend.
type StorageConfig struct {
	PersistInterval time.Duration     `yaml:"persist_interval"`
	BackendTimeout  time.Duration     `yaml:"backend_timeout"`
	Warm            TierStorageConfig `yaml:"warm"`
	Cold            TierStorageConfig `yaml:"cold"`
}

// TierStorageConfig configures a single tier backend.
type TierStorageConfig struct {
	Backend   string      `yaml:"backend"` // "none", "disk", "redis", "s3"
	Directory string      `yaml:"directory"`
	Redis     RedisConfig `yaml:"redis"`
	S3        S3Config    `yaml:"s3"`
}

// RedisConfig represents Redis backend settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Keyspace string `yaml:"keyspace"`
}

// S3Config represents S3 backend settings.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Key      string `yaml:"key"`
	Endpoint string `yaml:"endpoint"`
}

// MonitoringConfig represents monitoring settings.
type MonitoringConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig represents Prometheus metrics settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// NewDefault returns a configuration with sensible defaults.
func NewDefault() *Configuration {
	return &Configuration{
		Engine: EngineConfig{
			LogLevel:      "INFO",
			DefaultTTL:    5 * time.Minute,
			SweepInterval: time.Minute,
		},
		Tiers: TiersConfig{
			Fast: TierConfig{Capacity: 1000, MinCapacity: 100, MaxCapacity: 10000},
			Warm: TierConfig{Capacity: 5000, MinCapacity: 500, MaxCapacity: 50000},
			Cold: TierConfig{Capacity: 20000, MinCapacity: 2000, MaxCapacity: 200000},
		},
		Strategy: StrategyConfig{
			AdaptationInterval: 60 * time.Second,
			MetricsTimeout:     2 * time.Second,
		},
		Promotion: PromotionConfig{
			PromoteThreshold: 3,
			DemoteThreshold:  1,
			SweepInterval:    60 * time.Second,
		},
		Patterns: PatternConfig{
			MaxSamples:  100,
			IdleTimeout: 6 * time.Hour,
		},
		Compression: CompressionConfig{
			Enabled: true,
			MinSize: 4 * 1024,
			Level:   3,
		},
		Storage: StorageConfig{
			PersistInterval: time.Minute,
			BackendTimeout:  5 * time.Second,
			Warm: TierStorageConfig{
				Backend:   "none",
				Directory: "/var/cache/tiercache/warm",
			},
			Cold: TierStorageConfig{
				Backend:   "none",
				Directory: "/var/cache/tiercache/cold",
			},
		},
		Monitoring: MonitoringConfig{
			Metrics: MetricsConfig{
				Enabled:   true,
				Port:      8080,
				Path:      "/metrics",
				Namespace: "tiercache",
			},
		},
	}
}

// LoadFromFile loads configuration from a YAML file.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv loads configuration overrides from environment variables.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("TIERCACHE_LOG_LEVEL"); val != "" {
		c.Engine.LogLevel = val
	}
	if val := os.Getenv("TIERCACHE_DEFAULT_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Engine.DefaultTTL = d
		}
	}
	if val := os.Getenv("TIERCACHE_FAST_CAPACITY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Tiers.Fast.Capacity = n
		}
	}
	if val := os.Getenv("TIERCACHE_WARM_CAPACITY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Tiers.Warm.Capacity = n
		}
	}
	if val := os.Getenv("TIERCACHE_COLD_CAPACITY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Tiers.Cold.Capacity = n
		}
	}
	if val := os.Getenv("TIERCACHE_ADAPTATION_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Strategy.AdaptationInterval = d
		}
	}
	if val := os.Getenv("TIERCACHE_COMPRESSION_ENABLED"); val != "" {
		c.Compression.Enabled = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("TIERCACHE_WARM_BACKEND"); val != "" {
		c.Storage.Warm.Backend = val
	}
	if val := os.Getenv("TIERCACHE_COLD_BACKEND"); val != "" {
		c.Storage.Cold.Backend = val
	}
	if val := os.Getenv("TIERCACHE_REDIS_ADDR"); val != "" {
		c.Storage.Warm.Redis.Addr = val
	}
	if val := os.Getenv("TIERCACHE_S3_BUCKET"); val != "" {
		c.Storage.Cold.S3.Bucket = val
	}
	if val := os.Getenv("TIERCACHE_S3_REGION"); val != "" {
		c.Storage.Cold.S3.Region = val
	}
	if val := os.Getenv("TIERCACHE_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Monitoring.Metrics.Port = port
		}
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration. Validation failures are the only
// fatal errors in the system; everything at runtime is recovered locally.
func (c *Configuration) Validate() error {
	for _, tc := range []struct {
		name string
		cfg  TierConfig
	}{
		{"fast", c.Tiers.Fast},
		{"warm", c.Tiers.Warm},
		{"cold", c.Tiers.Cold},
	} {
		if tc.cfg.Capacity <= 0 {
			return fmt.Errorf("%s tier capacity must be greater than 0", tc.name)
		}
		if tc.cfg.MinCapacity <= 0 {
			return fmt.Errorf("%s tier min_capacity must be greater than 0", tc.name)
		}
		if tc.cfg.MinCapacity > tc.cfg.MaxCapacity {
			return fmt.Errorf("%s tier min_capacity (%d) exceeds max_capacity (%d)",
				tc.name, tc.cfg.MinCapacity, tc.cfg.MaxCapacity)
		}
		if tc.cfg.Capacity < tc.cfg.MinCapacity || tc.cfg.Capacity > tc.cfg.MaxCapacity {
			return fmt.Errorf("%s tier capacity (%d) outside [%d, %d]",
				tc.name, tc.cfg.Capacity, tc.cfg.MinCapacity, tc.cfg.MaxCapacity)
		}
	}

	if c.Strategy.AdaptationInterval <= 0 {
		return fmt.Errorf("adaptation_interval must be greater than 0")
	}
	if c.Promotion.PromoteThreshold <= c.Promotion.DemoteThreshold {
		return fmt.Errorf("promote_threshold (%d) must exceed demote_threshold (%d)",
			c.Promotion.PromoteThreshold, c.Promotion.DemoteThreshold)
	}
	if c.Patterns.MaxSamples <= 0 {
		return fmt.Errorf("patterns max_samples must be greater than 0")
	}
	if c.Engine.DefaultTTL <= 0 {
		return fmt.Errorf("default_ttl must be greater than 0")
	}

	validBackends := map[string]bool{"none": true, "disk": true, "redis": true, "s3": true}
	if !validBackends[c.Storage.Warm.Backend] {
		return fmt.Errorf("invalid warm backend: %s", c.Storage.Warm.Backend)
	}
	if !validBackends[c.Storage.Cold.Backend] {
		return fmt.Errorf("invalid cold backend: %s", c.Storage.Cold.Backend)
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if c.Engine.LogLevel == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.Engine.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}
