package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	PhoneNumber           string   `yaml:"phone_number"`
	Password              string   `yaml:"password"`
	LoginMode             string   `yaml:"login_mode,omitempty"`              // "password" (default) or "sms"
	JobStartTime          string   `yaml:"job_start_time,omitempty"`          // HH:MM, first of the two daily triggers
	RetryTimesLimit       int      `yaml:"retry_times_limit,omitempty"`       // captcha retries and outer run retries
	RetryWaitOffsetUnit   int      `yaml:"retry_wait_offset_unit,omitempty"`  // seconds, base unit for settle waits
	ImplicitWaitSeconds   int      `yaml:"implicit_wait,omitempty"`           // seconds, ceiling for every UI wait
	SMSCodeWaitSeconds    int      `yaml:"sms_code_wait,omitempty"`           // seconds to wait for interactive code entry
	IgnoreAccounts        []string `yaml:"ignore_accounts,omitempty"`         // account numbers to skip
	DataRetentionDays     int      `yaml:"data_retention_days,omitempty"`     // daily window default: 7 or 30
	EnableDatabaseStorage bool     `yaml:"enable_database_storage,omitempty"`
	BrowserVisible        bool     `yaml:"browser_visible,omitempty"` // show the browser window (for debugging)
	LogLevel              string   `yaml:"log_level,omitempty"`

	Captcha  CaptchaConfig  `yaml:"captcha,omitempty"`
	Database DatabaseConfig `yaml:"database,omitempty"`
	MQTT     MQTTConfig     `yaml:"mqtt,omitempty"`
	Report   ReportConfig   `yaml:"report,omitempty"`
}

// CaptchaConfig points at the slider-offset inference endpoint
type CaptchaConfig struct {
	SolverURL string `yaml:"solver_url"` // e.g. "http://127.0.0.1:5000/solve"
}

// DatabaseConfig selects and parameterizes the stats store backend
type DatabaseConfig struct {
	Driver   string `yaml:"driver,omitempty"` // "sqlite" (default) or "postgres"
	Path     string `yaml:"path,omitempty"`   // sqlite file path
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Name     string `yaml:"name,omitempty"`
}

// MQTTConfig holds the optional Home Assistant publishing settings
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

// ReportConfig holds the read-only stats API settings
type ReportConfig struct {
	Listen string `yaml:"listen,omitempty"` // e.g. ":8080"
}

// Load reads the config file and applies environment overrides
func Load(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Missing file is fine, the environment can supply everything
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// applyEnv overlays environment variables onto the loaded config. The
// variable names mirror the container deployment surface.
func (c *Config) applyEnv() {
	envString(&c.PhoneNumber, "PHONE_NUMBER")
	envString(&c.Password, "PASSWORD")
	envString(&c.LoginMode, "LOGIN_MODE")
	envString(&c.JobStartTime, "JOB_START_TIME")
	envInt(&c.RetryTimesLimit, "RETRY_TIMES_LIMIT")
	envInt(&c.RetryWaitOffsetUnit, "RETRY_WAIT_TIME_OFFSET_UNIT")
	envInt(&c.ImplicitWaitSeconds, "DRIVER_IMPLICITY_WAIT_TIME")
	envInt(&c.DataRetentionDays, "DATA_RETENTION_DAYS")
	envBool(&c.EnableDatabaseStorage, "ENABLE_DATABASE_STORAGE")
	envString(&c.LogLevel, "LOG_LEVEL")
	envString(&c.Captcha.SolverURL, "CAPTCHA_SOLVER_URL")

	if v := os.Getenv("IGNORE_USER_ID"); v != "" {
		c.IgnoreAccounts = splitList(v)
	}

	envString(&c.Database.Driver, "DB_DRIVER")
	envString(&c.Database.Path, "DB_PATH")
	envString(&c.Database.Host, "DB_HOST")
	envInt(&c.Database.Port, "DB_PORT")
	envString(&c.Database.User, "DB_USER")
	envString(&c.Database.Password, "DB_PASSWORD")
	envString(&c.Database.Name, "DB_NAME")
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(strings.TrimSpace(v), "true")
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetRetryTimesLimit returns the retry budget with a default of 5
func (c *Config) GetRetryTimesLimit() int {
	if c.RetryTimesLimit <= 0 {
		return 5
	}
	return c.RetryTimesLimit
}

// GetRetryWaitUnit returns the settle-wait base unit with a default of 10s
func (c *Config) GetRetryWaitUnit() time.Duration {
	if c.RetryWaitOffsetUnit <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.RetryWaitOffsetUnit) * time.Second
}

// GetImplicitWait returns the UI wait ceiling with a default of 60s
func (c *Config) GetImplicitWait() time.Duration {
	if c.ImplicitWaitSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.ImplicitWaitSeconds) * time.Second
}

// GetSMSCodeWait returns how long the sms login mode waits for the
// out-of-band code, default 120s
func (c *Config) GetSMSCodeWait() time.Duration {
	if c.SMSCodeWaitSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.SMSCodeWaitSeconds) * time.Second
}

// GetDataRetentionDays returns the configured daily window default (30
// unless overridden to 7)
func (c *Config) GetDataRetentionDays() int {
	if c.DataRetentionDays == 7 {
		return 7
	}
	return 30
}

// GetJobStartTime returns the first daily trigger as HH:MM, default 07:00
func (c *Config) GetJobStartTime() string {
	if c.JobStartTime == "" {
		return "07:00"
	}
	return c.JobStartTime
}

// IgnoreSet returns the ignore list as a lookup set
func (c *Config) IgnoreSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.IgnoreAccounts))
	for _, id := range c.IgnoreAccounts {
		set[id] = struct{}{}
	}
	return set
}

// Validate checks that the settings needed for a scrape run are present
func (c *Config) Validate() error {
	if c.PhoneNumber == "" || c.Password == "" {
		return fmt.Errorf("phone_number and password must be configured")
	}
	if c.Captcha.SolverURL == "" {
		return fmt.Errorf("captcha.solver_url must be configured")
	}
	if _, err := time.Parse("15:04", c.GetJobStartTime()); err != nil {
		return fmt.Errorf("job_start_time %q is not HH:MM", c.GetJobStartTime())
	}
	switch c.LoginMode {
	case "", "password", "sms":
	default:
		return fmt.Errorf("login_mode %q is not supported (use password or sms)", c.LoginMode)
	}
	return nil
}
