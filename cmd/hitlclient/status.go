package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wagiedev/hitl-agent-client-go/internal/client"
	"github.com/wagiedev/hitl-agent-client-go/internal/negotiator"
	"github.com/wagiedev/hitl-agent-client-go/internal/render"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a session's status without submitting anything",
	Long: `Show the service's status for a session. Pending approvals are listed
but not answered. Without --session, the user's active session is shown.`,
	SilenceUsage: true,
	RunE:         runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	settings, err := resolveSettings(cmd, os.LookupEnv)
	if err != nil {
		return err
	}

	if settings.UserID == "" {
		return fmt.Errorf("status needs a user: set --user or HITL_USER_ID")
	}

	console := render.NewConsole(os.Stdin, os.Stdout)

	options := clientOptions(settings, newLogger(settings))
	// Nothing is resumed here; the negotiator is never consulted.
	options.Negotiator = negotiator.AcceptAll()

	c := client.New()
	if err := c.Start(cmd.Context(), options); err != nil {
		return err
	}

	defer c.Close()

	report, err := c.Status(cmd.Context())
	if err != nil {
		return err
	}

	console.Status(report)

	if payload := report.InterruptData(); payload != nil {
		console.ShowInterrupt(cmd.Context(), payload)
	}

	return nil
}
