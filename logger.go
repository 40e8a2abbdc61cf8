package hitlclient

import "log/slog"

// NopLogger returns a logger that drops every record. The client falls back
// to it when no logger is configured.
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
