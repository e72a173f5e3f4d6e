// Command engage is the Lumapix engagement engine CLI.
//
// Usage:
//
//	engage serve
//	engage run
//	engage run --verbose
//	engage segments
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lumapix/engage/internal/api"
	"github.com/lumapix/engage/internal/config"
	"github.com/lumapix/engage/internal/db"
	"github.com/lumapix/engage/internal/ledger"
	"github.com/lumapix/engage/internal/orchestrator"
	"github.com/lumapix/engage/internal/push"
	"github.com/lumapix/engage/internal/scheduler"
	"github.com/lumapix/engage/internal/segment"
	"github.com/lumapix/engage/internal/window"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "engage",
		Short: "Lumapix behavioral segmentation and notification dispatch engine",
	}

	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())
	root.AddCommand(segmentsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// serve command
// --------------------------------------------------------------------------

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and ops API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, cfg *config.Config, pool *db.Pool, runner *orchestrator.Runner) error {
				// Scheduler
				var sched *scheduler.Scheduler
				if cfg.SchedulerEnabled {
					sched = scheduler.New(runner, cfg.CronSpec, logger)
					if err := sched.Start(ctx); err != nil {
						return fmt.Errorf("start scheduler: %w", err)
					}
					defer sched.Stop()
				} else {
					logger.Info("Scheduler disabled (SCHEDULER_ENABLED=false)")
				}

				// Ops API
				store := ledger.NewStore(pool.Pool)
				router := api.NewRouter(pool, store, runner, cfg, logger)

				addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
				srv := &http.Server{
					Addr:         addr,
					Handler:      router,
					ReadTimeout:  10 * time.Second,
					WriteTimeout: 30 * time.Second,
					IdleTimeout:  60 * time.Second,
				}

				go func() {
					logger.Info("Starting Lumapix Engage",
						"addr", addr,
						"environment", cfg.Environment,
						"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error("Server failed", "error", err)
						os.Exit(1)
					}
				}()

				// Wait for interrupt
				<-ctx.Done()
				logger.Info("Shutting down...")

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("Shutdown error", "error", err)
				}
				logger.Info("Server stopped")
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one orchestration run and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, cfg *config.Config, pool *db.Pool, runner *orchestrator.Runner) error {
				start := time.Now()
				report, err := runner.TryRun(ctx)
				if err != nil {
					return err
				}
				logger.Info("Run finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", report.Summary())
				for i := range report.Segments {
					s := &report.Segments[i]
					logger.Info("Segment", "summary", s.Summary())
					if !verbose {
						continue
					}
					for _, o := range s.Outcomes {
						logger.Info("Outcome",
							"segment", s.Segment, "user_id", o.UserID,
							"status", o.Status, "reason", o.Reason, "message_id", o.MessageID)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print every per-user outcome")
	return cmd
}

// --------------------------------------------------------------------------
// segments command
// --------------------------------------------------------------------------

func segmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "segments",
		Short: "List the registered segments in priority order",
		Run: func(cmd *cobra.Command, args []string) {
			for _, s := range segment.Registry() {
				gate := "ungated"
				if s.CountryGated {
					gate = "country-gated"
				}
				fmt.Printf("%2d. %-18s kind=%-16s %s  creatives=%d\n",
					s.Priority, s.Name, s.Kind, gate, len(segment.Variants(s.Name)))
			}
		},
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// withEngine handles config loading, DB connection, signal handling, and
// orchestrator wiring shared by serve and run.
func withEngine(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool, runner *orchestrator.Runner) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	gate, err := window.New(cfg.NotifyWindows)
	if err != nil {
		return fmt.Errorf("build notification window gate: %w", err)
	}

	var sender push.Sender
	if cfg.PushEndpoint != "" {
		sender = push.NewHTTPSender(cfg.PushEndpoint, cfg.PushAPIKey, cfg.PushTimeout, cfg.PushSendsPerSec, logger)
		logger.Info("Push sender configured", "endpoint", cfg.PushEndpoint)
	} else {
		sender = push.NewLogSender(logger)
		logger.Info("Push sender in log-only mode (no PUSH_ENDPOINT)")
	}

	store := ledger.NewStore(pool.Pool)
	orch := orchestrator.New(gate, store, sender, logger,
		orchestrator.WithWorkers(cfg.DispatchWorkers))
	runner := orchestrator.NewRunner(orch, cfg.RunTimeout, logger)

	return fn(ctx, cfg, pool, runner)
}
