package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvBaseURL       = "HITL_BASE_URL"
	EnvUserID        = "HITL_USER_ID"
	EnvSessionID     = "HITL_SESSION_ID"
	EnvMode          = "HITL_MODE"
	EnvSystemMessage = "HITL_SYSTEM_MESSAGE"
	EnvPollAttempts  = "HITL_POLL_ATTEMPTS"
	EnvPollInterval  = "HITL_POLL_INTERVAL"
	EnvMetricsAddr   = "HITL_METRICS_ADDR"
	EnvLogLevel      = "HITL_LOG_LEVEL"
	EnvLogFormat     = "HITL_LOG_FORMAT"
)

// Settings is the operator CLI configuration. It is read from a YAML file,
// then overridden by HITL_* environment variables, then by flags.
type Settings struct {
	BaseURL       string        `yaml:"base_url"`
	UserID        string        `yaml:"user_id"`
	SessionID     string        `yaml:"session_id"`
	Mode          string        `yaml:"mode"`
	SystemMessage string        `yaml:"system_message"`
	PollAttempts  int           `yaml:"poll_attempts"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	MetricsAddr   string        `yaml:"metrics_addr"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() *Settings {
	return &Settings{
		BaseURL:       DefaultBaseURL,
		Mode:          string(ModeStream),
		SystemMessage: DefaultSystemMessage,
		PollAttempts:  30,
		PollInterval:  time.Second,
		LogLevel:      "warn",
		LogFormat:     "text",
	}
}

// LoadSettings reads path over the defaults. A missing file is not an error.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return settings, nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set.
func LoadDotEnv(log *slog.Logger, files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Debug("No .env file loaded, using environment variables", "error", err)
	}
}

// ApplyEnv overrides s with HITL_* variables found by lookup.
// Pass os.LookupEnv in production.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str(EnvBaseURL, &s.BaseURL)
	str(EnvUserID, &s.UserID)
	str(EnvSessionID, &s.SessionID)
	str(EnvMode, &s.Mode)
	str(EnvSystemMessage, &s.SystemMessage)
	str(EnvMetricsAddr, &s.MetricsAddr)
	str(EnvLogLevel, &s.LogLevel)
	str(EnvLogFormat, &s.LogFormat)

	if v, ok := lookup(EnvPollAttempts); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPollAttempts, err)
		}

		s.PollAttempts = n
	}

	if v, ok := lookup(EnvPollInterval); ok && v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPollInterval, err)
		}

		s.PollInterval = d
	}

	return nil
}

// Validate checks that the settings can be used.
func (s *Settings) Validate() error {
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url %q is not an absolute URL", s.BaseURL)
	}

	if _, err := ParseMode(s.Mode); err != nil {
		return err
	}

	if s.PollAttempts <= 0 {
		return fmt.Errorf("poll_attempts must be > 0")
	}

	if s.PollInterval < 0 {
		return fmt.Errorf("poll_interval must not be negative")
	}

	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return err
	}

	switch s.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format %q must be text or json", s.LogFormat)
	}

	return nil
}

// ParseLogLevel maps a level name to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", s, err)
	}

	return level, nil
}
