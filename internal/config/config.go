package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxThresholdPct bounds the alert threshold.
const MaxThresholdPct = 500

// Config holds all application configuration.
type Config struct {
	Tickers      []string `yaml:"tickers"`
	ThresholdPct float64  `yaml:"threshold_pct"`
	Email        string   `yaml:"email"`
	Exchange     string   `yaml:"exchange"`
	DataDir      string   `yaml:"data_dir"`
	LookbackDays int      `yaml:"lookback_days"`
	Workers      int      `yaml:"workers"`

	DataSource struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"data_source"`
	Provider struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"provider"`
	SMTP struct {
		Host       string `yaml:"host"`
		Port       int    `yaml:"port"`
		Username   string `yaml:"username"`
		Password   string `yaml:"password"`
		From       string `yaml:"from"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"smtp"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level      string `yaml:"level"`
		FilePath   string `yaml:"file_path"`
		MaxSize    int    `yaml:"max_size"`
		MaxAge     int    `yaml:"max_age"`
		MaxBackups int    `yaml:"max_backups"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		AlertCron string `yaml:"alert_cron"`
		Timezone  string `yaml:"timezone"`
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.Tickers = NormalizeSymbols(cfg.Tickers)
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"TRACKER_EMAIL":        &c.Email,
		"TRACKER_EXCHANGE":     &c.Exchange,
		"TRACKER_DATA_DIR":     &c.DataDir,
		"DATA_SOURCE_BASE_URL": &c.DataSource.BaseURL,
		"DATA_SOURCE_API_KEY":  &c.DataSource.APIKey,
		"HTTPS_PROXY":          &c.Proxy,
		"EMAIL_USER":           &c.SMTP.Username,
		"EMAIL_PASS":           &c.SMTP.Password,
		"SMTP_HOST":            &c.SMTP.Host,
		"TELEGRAM_BOT_TOKEN":   &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":     &c.Telegram.ChatID,
		"LOG_LEVEL":            &c.Log.Level,
		"LOG_FILE":             &c.Log.FilePath,
		"SQLITE_PATH":          &c.Database.SQLitePath,
		"CRON_ALERT":           &c.Schedule.AlertCron,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("TRACKER_TICKERS"); v != "" {
		c.Tickers = strings.Split(v, ",")
	}
	if v := os.Getenv("TRACKER_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TRACKER_THRESHOLD: %w", err)
		}
		c.ThresholdPct = f
	}
	if v := os.Getenv("TRACKER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRACKER_WORKERS: %w", err)
		}
		c.Workers = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Exchange == "" {
		c.Exchange = "NYSE"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.LookbackDays == 0 {
		c.LookbackDays = 180
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 30 * time.Second
	}
	if c.SMTP.Host == "" {
		c.SMTP.Host = "smtp.gmail.com"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 465
	}
	if c.SMTP.MaxRetries == 0 {
		c.SMTP.MaxRetries = 3
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSize == 0 {
		c.Log.MaxSize = 100
	}
	if c.Log.MaxAge == 0 {
		c.Log.MaxAge = 30
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Schedule.AlertCron == "" {
		c.Schedule.AlertCron = "0 30 16 * * 1-5"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "America/New_York"
	}
}

// NormalizeSymbols trims, upper-cases and de-duplicates ticker symbols,
// dropping empty entries.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	if c.LookbackDays <= 0 {
		return fmt.Errorf("lookback_days must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive")
	}
	if c.DataSource.BaseURL != "" && c.DataSource.APIKey == "" {
		return fmt.Errorf("data_source.api_key is required with data_source.base_url")
	}
	return nil
}

// ValidateAlert checks the settings needed to evaluate and deliver alerts.
// Delivery settings are skipped for dry runs.
func (c *Config) ValidateAlert(dryRun bool) error {
	if err := c.Validate(); err != nil {
		return err
	}
	var errs []error
	if len(c.Tickers) == 0 {
		errs = append(errs, errors.New("tickers is required"))
	}
	if c.ThresholdPct <= 0 || c.ThresholdPct > MaxThresholdPct {
		errs = append(errs, fmt.Errorf("threshold_pct must be in (0, %d]", MaxThresholdPct))
	}
	if !dryRun {
		if c.Email == "" && c.Telegram.BotToken == "" {
			errs = append(errs, errors.New("email or telegram.bot_token is required"))
		}
		if c.Email != "" {
			if _, err := mail.ParseAddress(c.Email); err != nil {
				errs = append(errs, fmt.Errorf("email %q is invalid", c.Email))
			}
			if c.SMTP.Username == "" || c.SMTP.Password == "" {
				errs = append(errs, errors.New("smtp credentials are required (EMAIL_USER, EMAIL_PASS)"))
			}
		}
		if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
			errs = append(errs, errors.New("telegram.chat_id is required with telegram.bot_token"))
		}
	}
	return errors.Join(errs...)
}
