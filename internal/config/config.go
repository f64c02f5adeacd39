// Package config loads service configuration from a YAML file with
// environment overrides for secrets and connection strings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Listen string `yaml:"listen"`

	Auth     Auth     `yaml:"auth"`
	Redis    Redis    `yaml:"redis"`
	Postgres Postgres `yaml:"postgres"`
	Registry Registry `yaml:"registry"`
	Scan     Scan     `yaml:"scan"`
	Flow     Flow     `yaml:"flow"`
	ROPA     ROPA     `yaml:"ropa"`
}

// Auth configures token issuance and verification.
type Auth struct {
	Secret     string        `yaml:"secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

// Redis configures the token blacklist store.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Postgres configures the CRUD store.
type Postgres struct {
	DSN string `yaml:"dsn"`
}

// Registry configures the company registry snapshot.
type Registry struct {
	SnapshotPath  string        `yaml:"snapshot_path"`
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// Scan configures discovery limits and the job retention policy.
type Scan struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxAssets     int           `yaml:"max_assets"`
	MaxErrors     int           `yaml:"max_errors"`
	MaxErrorLen   int           `yaml:"max_error_len"`
	RetentionTTL  time.Duration `yaml:"retention_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	TemplatesPath string        `yaml:"templates_path"`
}

// Flow configures country inference and MPS notification thresholds.
// Thresholds come from Decree 13/2023 and are configurable, not hard-coded.
type Flow struct {
	VietnamCIDRs       []string `yaml:"vietnam_cidrs"`
	Category1Threshold int64    `yaml:"category1_threshold"`
	Category2Threshold int64    `yaml:"category2_threshold"`
}

// ROPA configures document storage and PDF rendering.
type ROPA struct {
	StorageRoot string `yaml:"storage_root"`
	FontPath    string `yaml:"font_path"`
	FontName    string `yaml:"font_name"`
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		Listen: ":8080",
		Auth: Auth{
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Redis: Redis{Addr: "localhost:6379"},
		Registry: Registry{
			SnapshotPath:  "data/companies.json",
			WatchDebounce: 500 * time.Millisecond,
		},
		Scan: Scan{
			MaxConcurrent: 4,
			MaxRetries:    3,
			RetryDelay:    2 * time.Second,
			Timeout:       5 * time.Minute,
			MaxAssets:     1000,
			MaxErrors:     50,
			MaxErrorLen:   500,
			RetentionTTL:  24 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Flow: Flow{
			// Known Vietnamese ISP allocations; extend via config. The source
			// list is incomplete, unknown IPs fall back to VN.
			VietnamCIDRs: []string{
				"14.160.0.0/11",  // VNPT
				"27.64.0.0/12",   // Viettel
				"42.112.0.0/13",  // FPT
				"103.1.200.0/22", // CMC
				"113.160.0.0/11", // VNPT
				"115.72.0.0/13",  // VNPT
				"171.224.0.0/11", // Viettel
				"203.113.128.0/18",
			},
			Category1Threshold: 10_000,
			Category2Threshold: 1_000,
		},
		ROPA: ROPA{
			StorageRoot: "data/ropa",
			FontName:    "NotoSans",
		},
	}
}

// Load reads the YAML file at path (optional) and applies env overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("VERISYNTRA_AUTH_SECRET")); v != "" {
		cfg.Auth.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("VERISYNTRA_PG_DSN")); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("VERISYNTRA_REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("VERISYNTRA_LISTEN")); v != "" {
		cfg.Listen = v
	}
}

func (c Config) validate() error {
	if c.Scan.MaxConcurrent < 1 {
		return fmt.Errorf("scan.max_concurrent must be >= 1")
	}
	if c.Flow.Category1Threshold <= 0 || c.Flow.Category2Threshold <= 0 {
		return fmt.Errorf("flow thresholds must be positive")
	}
	return nil
}
