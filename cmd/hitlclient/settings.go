package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wagiedev/hitl-agent-client-go/internal/config"
	"github.com/wagiedev/hitl-agent-client-go/internal/recovery"
)

// resolveSettings layers the config file, the environment and the flags set
// on cmd, in that order.
func resolveSettings(cmd *cobra.Command, lookup func(string) (string, bool)) (*config.Settings, error) {
	config.LoadDotEnv(slog.New(slog.NewTextHandler(io.Discard, nil)))

	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return nil, err
	}

	if err := settings.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	overrides := []struct {
		flag  string
		value string
		dst   *string
	}{
		{"base-url", baseURL, &settings.BaseURL},
		{"user", userID, &settings.UserID},
		{"session", sessionID, &settings.SessionID},
		{"mode", mode, &settings.Mode},
		{"log-level", logLevel, &settings.LogLevel},
		{"log-format", logFormat, &settings.LogFormat},
		{"metrics-addr", metricsAddr, &settings.MetricsAddr},
	}

	for _, o := range overrides {
		if f := cmd.Flags().Lookup(o.flag); f != nil && f.Changed {
			*o.dst = o.value
		}
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// newLogger creates a structured logger on stderr from the settings.
func newLogger(settings *config.Settings) *slog.Logger {
	level, err := config.ParseLogLevel(settings.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}

	if settings.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// clientOptions maps settings onto client options.
func clientOptions(settings *config.Settings, log *slog.Logger) *config.Options {
	m, _ := config.ParseMode(settings.Mode)

	return &config.Options{
		Logger:        log,
		BaseURL:       settings.BaseURL,
		UserID:        settings.UserID,
		SessionID:     settings.SessionID,
		Mode:          m,
		SystemMessage: settings.SystemMessage,
		PollPolicy: recovery.PollPolicy{
			MaxAttempts: settings.PollAttempts,
			Interval:    settings.PollInterval,
		},
	}
}
