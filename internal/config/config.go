package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DirName is the per-project configuration directory.
const DirName = ".slaengine"

// Ledger backends
const (
	LedgerSQLite = "sqlite"
	LedgerRedis  = "redis"
)

// Notifier transports
const (
	NotifierLog     = "log"
	NotifierWebhook = "webhook"
)

// Duration is a time.Duration that reads and writes as a string ("10m").
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(n)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the flat engine configuration
type Config struct {
	DBPath        string `json:"db_path,omitempty"`
	PolicyFile    string `json:"policy_file,omitempty"`
	WatchPolicies bool   `json:"watch_policies,omitempty"`

	SweepInterval Duration `json:"sweep_interval,omitempty"`
	SweepWorkers  int      `json:"sweep_workers,omitempty"`
	ItemTimeout   Duration `json:"item_timeout,omitempty"`

	NotifyTimeout    Duration `json:"notify_timeout,omitempty"`
	NotifyRatePerSec float64  `json:"notify_rate_per_sec,omitempty"`
	NotifyBurst      int      `json:"notify_burst,omitempty"`
	ClaimLease       Duration `json:"claim_lease,omitempty"`

	PolicyCacheSize int      `json:"policy_cache_size,omitempty"`
	PolicyCacheTTL  Duration `json:"policy_cache_ttl,omitempty"`

	Ledger        string `json:"ledger,omitempty"` // "sqlite" or "redis"
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`

	Notifier     string `json:"notifier,omitempty"` // "log" or "webhook"
	WebhookURL   string `json:"webhook_url,omitempty"`
	LinkBaseURL  string `json:"link_base_url,omitempty"`
	TemplateFile string `json:"template_file,omitempty"`

	LogLevel    string `json:"log_level,omitempty"`
	LogFormat   string `json:"log_format,omitempty"` // "json" or "console"
	MetricsAddr string `json:"metrics_addr,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath()
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = Duration(10 * time.Minute)
	}
	if c.SweepWorkers == 0 {
		c.SweepWorkers = 4
	}
	if c.ItemTimeout == 0 {
		c.ItemTimeout = Duration(30 * time.Second)
	}
	if c.NotifyTimeout == 0 {
		c.NotifyTimeout = Duration(10 * time.Second)
	}
	if c.NotifyRatePerSec == 0 {
		c.NotifyRatePerSec = 5
	}
	if c.NotifyBurst == 0 {
		c.NotifyBurst = 10
	}
	if c.ClaimLease == 0 {
		c.ClaimLease = Duration(5 * time.Minute)
	}
	if c.PolicyCacheSize == 0 {
		c.PolicyCacheSize = 64
	}
	if c.PolicyCacheTTL == 0 {
		c.PolicyCacheTTL = Duration(5 * time.Minute)
	}
	if c.Ledger == "" {
		c.Ledger = LedgerSQLite
	}
	if c.Notifier == "" {
		c.Notifier = NotifierLog
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var problems []string
	if c.SweepInterval <= 0 {
		problems = append(problems, "sweep_interval must be positive")
	}
	if c.SweepWorkers <= 0 {
		problems = append(problems, "sweep_workers must be positive")
	}
	if c.ItemTimeout <= 0 {
		problems = append(problems, "item_timeout must be positive")
	}
	if c.NotifyTimeout <= 0 {
		problems = append(problems, "notify_timeout must be positive")
	}
	if c.NotifyRatePerSec < 0 {
		problems = append(problems, "notify_rate_per_sec must not be negative")
	}
	if c.ClaimLease <= c.NotifyTimeout {
		problems = append(problems, "claim_lease must be longer than notify_timeout")
	}
	if c.PolicyCacheSize <= 0 {
		problems = append(problems, "policy_cache_size must be positive")
	}
	if c.PolicyCacheTTL <= 0 {
		problems = append(problems, "policy_cache_ttl must be positive")
	}
	switch c.Ledger {
	case LedgerSQLite:
	case LedgerRedis:
		if c.RedisAddr == "" {
			problems = append(problems, "redis_addr is required when ledger is redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown ledger %q (want sqlite or redis)", c.Ledger))
	}
	switch c.Notifier {
	case NotifierLog:
	case NotifierWebhook:
		if c.WebhookURL == "" {
			problems = append(problems, "webhook_url is required when notifier is webhook")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown notifier %q (want log or webhook)", c.Notifier))
	}
	if c.WatchPolicies && c.PolicyFile == "" {
		problems = append(problems, "watch_policies requires policy_file")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LoadConfig reads .slaengine/config.json from the specified directory and
// applies defaults. A missing file yields the defaults.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, DirName, "config.json")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

// SaveConfig writes config.json to directory
func SaveConfig(dir string, cfg *Config) error {
	cfgDir := filepath.Join(dir, DirName)
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s dir: %w", DirName, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(cfgDir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultDBPath returns ~/.slaengine/sla.db, or a relative path when the
// home directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DirName, "sla.db")
	}
	return filepath.Join(home, DirName, "sla.db")
}
