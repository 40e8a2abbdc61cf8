// Command hitlclient is an operator console for human-in-the-loop agent sessions.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	baseURL     string
	userID      string
	sessionID   string
	mode        string
	logLevel    string
	logFormat   string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "hitlclient",
	Short: "Operator console for human-in-the-loop agent sessions",
	Long: `hitlclient submits queries to an agent session service and asks you to
approve, reject, edit or answer each tool call the agent pauses on.

On startup the session is checked against the service: a pending approval is
offered again and a finished turn is shown before anything new is submitted.

Configuration is read from a YAML file, then HITL_* environment variables
(a .env file in the working directory is loaded first), then flags.`,
	SilenceUsage: true,
	RunE:         runConsole,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "hitlclient.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Session service URL (default http://localhost:8001)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User ID (default: generated user_<unix seconds>)")
	rootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "", "Session ID (default: the user's active session, or a new one)")
	rootCmd.PersistentFlags().StringVarP(&mode, "mode", "m", "", "Turn mode: stream or normal")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9464")

	rootCmd.AddCommand(statusCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
