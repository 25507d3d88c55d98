package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bookline/bookline/internal/app"
	"github.com/bookline/bookline/pkg/config"
	"github.com/bookline/bookline/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// commandContext lazily builds the container so commands that never
// touch the database (help, completion) start instantly.
type commandContext struct {
	container *app.Container
}

func (c *commandContext) open(ctx context.Context) (*app.Container, error) {
	if c.container != nil {
		return c.container, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := observability.DefaultLogConfig()
	if cfg.IsProduction() {
		logCfg = observability.ProductionLogConfig()
	}
	logCfg.Level = observability.LogLevel(cfg.LogLevel)
	logger := observability.NewLogger(logCfg)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.container = container
	return container, nil
}

func (c *commandContext) close() {
	if c.container != nil {
		c.container.Close()
	}
}

func newRootCommand() *cobra.Command {
	cmdCtx := &commandContext{}

	root := &cobra.Command{
		Use:   "bookline",
		Short: "Appointment booking and automation for small merchants",
		Long: `Bookline manages staff availability, appointment booking, and the
event-driven automation rules that run a merchant's follow-ups.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			cmdCtx.close()
		},
	}

	root.AddCommand(
		newMigrateCommand(cmdCtx),
		newAvailabilityCommand(cmdCtx),
		newReserveCommand(cmdCtx),
		newBookingCommand(cmdCtx),
		newAlertsCommand(cmdCtx),
		newProcessCommand(cmdCtx),
	)
	return root
}

func newMigrateCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the container applies migrations.
			container, err := cmdCtx.open(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", container.DBDriver)
			return nil
		},
	}
}

func newProcessCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run one batch of pending automation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := cmdCtx.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.RunProcessor.ProcessBatch(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "batch processed")
			return nil
		},
	}
}
