package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/hitl-agent-client-go/internal/client"
	"github.com/wagiedev/hitl-agent-client-go/internal/metrics"
	"github.com/wagiedev/hitl-agent-client-go/internal/render"
	"github.com/wagiedev/hitl-agent-client-go/internal/repl"
)

const metricsShutdownTimeout = 5 * time.Second

func runConsole(cmd *cobra.Command, _ []string) error {
	settings, err := resolveSettings(cmd, os.LookupEnv)
	if err != nil {
		return err
	}

	log := newLogger(settings)
	console := render.NewConsole(os.Stdin, os.Stdout)

	options := clientOptions(settings, log)
	options.Operator = console
	options.Presenter = console

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	c := client.New()
	if err := c.Start(ctx, options); err != nil {
		console.Error(err.Error())

		return err
	}

	defer c.Close()

	if info, err := c.SystemInfo(ctx); err != nil {
		console.Warning(fmt.Sprintf("Could not fetch backend info: %v", err))
	} else {
		console.SystemInfo(info)
	}

	// Settle whatever an earlier run left on this session before taking input.
	turnCtx, stopTurn := signal.NotifyContext(ctx, os.Interrupt)
	if _, err := c.Reconcile(turnCtx); err != nil {
		console.Warning(fmt.Sprintf("Could not check session state: %v", err))
	}

	stopTurn()

	r := repl.New(log, console, c.Driver(), c.Backend(), repl.Config{UserID: c.UserID()})

	g, gctx := errgroup.WithContext(ctx)

	if settings.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              settings.MetricsAddr,
			Handler:           metricsMux(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			log.Info("Serving metrics", "addr", settings.MetricsAddr)

			if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}

			return nil
		})

		g.Go(func() error {
			<-gctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()

			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer cancel()

		return r.Run(gctx)
	})

	return g.Wait()
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	return mux
}
