package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/five82/photocraft/internal/fault"
	"github.com/five82/photocraft/internal/webhook"
)

// Config is the resolved photocraft configuration.
type Config struct {
	Path               string
	WebhookURL         string
	DeliveryMode       webhook.Mode
	RequestTimeout     time.Duration
	PollInterval       time.Duration
	PollMaxAttempts    int
	StatusURL          string
	AbortOnNotifyError bool
	MaxUploadBytes     int64
	UserID             string
	Platform           string
	LogFile            string
	LogLevel           string
}

const (
	defaultConfigPath      = "~/.config/photocraft/config.toml"
	defaultLogFile         = "~/.local/state/photocraft/photocraft.log"
	defaultRequestTimeout  = 10 * time.Second
	defaultPollInterval    = 2 * time.Second
	defaultPollMaxAttempts = 10
	defaultUserID          = "anonymous"
	defaultPlatform        = "web"
	defaultLogLevel        = "info"

	envPrefix = "photocraft"
)

// Overrides carries command-line values that win over file and environment.
type Overrides struct {
	WebhookURL   string
	DeliveryMode string
	PollInterval time.Duration
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		WebhookURL:      webhook.DefaultEndpoint,
		DeliveryMode:    webhook.ModeStrict,
		RequestTimeout:  defaultRequestTimeout,
		PollInterval:    defaultPollInterval,
		PollMaxAttempts: defaultPollMaxAttempts,
		UserID:          defaultUserID,
		Platform:        defaultPlatform,
		LogFile:         mustExpand(defaultLogFile),
		LogLevel:        defaultLogLevel,
	}
}

// LoadDotEnv loads KEY=value pairs from the given files (".env" when none)
// into the process environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load locates and parses the photocraft config, falling back to defaults when
// missing. PHOTOCRAFT_* environment variables override file values.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.Path = resolved

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		if err := parseFile(file, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type rawConfig struct {
	WebhookURL         string `toml:"webhook_url"`
	DeliveryMode       string `toml:"delivery_mode"`
	RequestTimeout     string `toml:"request_timeout"`
	PollInterval       string `toml:"poll_interval"`
	PollMaxAttempts    int    `toml:"poll_max_attempts"`
	StatusURL          string `toml:"status_url"`
	AbortOnNotifyError bool   `toml:"abort_on_notify_error"`
	MaxUploadBytes     int64  `toml:"max_upload_bytes"`
	UserID             string `toml:"user_id"`
	Platform           string `toml:"platform"`
	LogFile            string `toml:"log_file"`
	LogLevel           string `toml:"log_level"`
}

func parseFile(r io.Reader, cfg *Config) error {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fault.Wrap(fault.KindConfig, "config.parse", "parse config", err)
	}

	if v := strings.TrimSpace(raw.WebhookURL); v != "" {
		cfg.WebhookURL = v
	}
	if err := setMode(cfg, raw.DeliveryMode); err != nil {
		return err
	}
	if err := setDuration(&cfg.RequestTimeout, "request_timeout", raw.RequestTimeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.PollInterval, "poll_interval", raw.PollInterval); err != nil {
		return err
	}
	switch {
	case raw.PollMaxAttempts < 0:
		return fault.New(fault.KindConfig, "config.parse", fmt.Sprintf("poll_max_attempts must be positive, got %d", raw.PollMaxAttempts))
	case raw.PollMaxAttempts > 0:
		cfg.PollMaxAttempts = raw.PollMaxAttempts
	}
	if raw.MaxUploadBytes < 0 {
		return fault.New(fault.KindConfig, "config.parse", fmt.Sprintf("max_upload_bytes must not be negative, got %d", raw.MaxUploadBytes))
	}
	cfg.MaxUploadBytes = raw.MaxUploadBytes
	cfg.StatusURL = strings.TrimSpace(raw.StatusURL)
	cfg.AbortOnNotifyError = raw.AbortOnNotifyError
	if v := strings.TrimSpace(raw.UserID); v != "" {
		cfg.UserID = v
	}
	if v := strings.TrimSpace(raw.Platform); v != "" {
		cfg.Platform = v
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

func applyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	for _, key := range []string{"webhook_url", "delivery_mode", "status_url", "log_level"} {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if url := strings.TrimSpace(v.GetString("webhook_url")); url != "" {
		cfg.WebhookURL = url
	}
	if err := setMode(cfg, v.GetString("delivery_mode")); err != nil {
		return err
	}
	if url := strings.TrimSpace(v.GetString("status_url")); url != "" {
		cfg.StatusURL = url
	}
	if level := strings.TrimSpace(v.GetString("log_level")); level != "" {
		cfg.LogLevel = level
	}
	return nil
}

// Apply layers command-line overrides on top of c.
func (c *Config) Apply(o Overrides) error {
	if url := strings.TrimSpace(o.WebhookURL); url != "" {
		c.WebhookURL = url
	}
	if err := setMode(c, o.DeliveryMode); err != nil {
		return err
	}
	if o.PollInterval > 0 {
		c.PollInterval = o.PollInterval
	}
	return nil
}

func setMode(cfg *Config, value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	mode, err := webhook.ParseMode(value)
	if err != nil {
		return fault.Wrap(fault.KindConfig, "config.mode", "delivery_mode", err)
	}
	cfg.DeliveryMode = mode
	return nil
}

func setDuration(dst *time.Duration, key, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fault.Wrap(fault.KindConfig, "config.parse", key, err)
	}
	if d <= 0 {
		return fault.New(fault.KindConfig, "config.parse", fmt.Sprintf("%s must be positive, got %s", key, value))
	}
	*dst = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
