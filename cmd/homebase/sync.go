package main

import (
	"context"
	"fmt"

	"homebase/internal/estatebase"
	"homebase/internal/store"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	var (
		dateFrom string
		dateTo   string
		lastDays int
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull listings from EstateBase into the local base",
		Long:  "Pulls the windowed property records from the remote EstateBase and inserts new listings locally. Duplicates by phone+price are skipped. Press Ctrl+C to stop between rows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Sync.DSN == "" {
				return fmt.Errorf("sync.dsn is not configured")
			}

			window := estatebase.Window{DateFrom: dateFrom, DateTo: dateTo}
			if cmd.Flags().Changed("days") {
				window.LastDays = fmt.Sprintf("-%d", lastDays)
			}

			db, err := store.NewSQLiteStore(cfg.Database.Path, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, stop := signalContext()
			defer stop()

			res, err := runSync(ctx, cfg.Sync.DSN, db, window, true)
			if err != nil {
				return err
			}
			summary := syncSummary(res)
			buildNotifier(cfg).Notify(summary)
			fmt.Println(summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFrom, "from", "", "start date, YYYY-MM-DD (with --to)")
	cmd.Flags().StringVar(&dateTo, "to", "", "end date, YYYY-MM-DD (with --from)")
	cmd.Flags().IntVar(&lastDays, "days", 0, "pull records from the last N days")
	cmd.MarkFlagsRequiredTogether("from", "to")
	cmd.MarkFlagsMutuallyExclusive("from", "days")

	return cmd
}

// runSync runs one pull, wiring Ctrl+C (the ctx) into the run controller so
// cancellation lands between rows, never mid-insert.
func runSync(ctx context.Context, dsn string, db *store.SQLiteStore, w estatebase.Window, verbose bool) (estatebase.Result, error) {
	syncer := estatebase.New(estatebase.Config{
		DSN:    dsn,
		Store:  db,
		Logger: logger,
	})

	ctl := estatebase.NewController()
	go func() {
		<-ctx.Done()
		ctl.Stop()
	}()

	var progress estatebase.Progress
	if verbose {
		progress = func(done, total int) {
			if done%100 == 0 || done == total {
				fmt.Printf("  %d/%d rows\n", done, total)
			}
		}
	}

	return syncer.Run(context.Background(), w, ctl, progress)
}

func syncSummary(res estatebase.Result) string {
	state := "done"
	if res.Stopped {
		state = "stopped"
	}
	return fmt.Sprintf("sync %s: %d pulled, %d added, %d skipped", state, res.Total, res.Added, res.Skipped)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled EstateBase syncs until stopped",
		Long:  "Runs the sync on the cron schedule from sync.schedule, notifying each result. Press Ctrl+C to stop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Sync.DSN == "" || cfg.Sync.Schedule == "" {
				return fmt.Errorf("serve requires sync.dsn and sync.schedule")
			}

			db, err := store.NewSQLiteStore(cfg.Database.Path, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, stop := signalContext()
			defer stop()

			notifier := buildNotifier(cfg)
			sched := cron.New()
			_, err = sched.AddFunc(cfg.Sync.Schedule, func() {
				// Each tick pulls yesterday-and-today; anything older was
				// covered by previous runs.
				res, err := runSync(ctx, cfg.Sync.DSN, db, estatebase.Window{LastDays: "-1"}, false)
				if err != nil {
					logger.Error("scheduled sync failed", "err", err)
					notifier.Notify(fmt.Sprintf("sync failed: %v", err))
					return
				}
				notifier.Notify(syncSummary(res))
			})
			if err != nil {
				return fmt.Errorf("invalid sync.schedule %q: %w", cfg.Sync.Schedule, err)
			}

			sched.Start()
			logger.Info("scheduler started", "schedule", cfg.Sync.Schedule)
			<-ctx.Done()

			stopCtx := sched.Stop() // lets an in-flight sync finish
			<-stopCtx.Done()
			logger.Info("scheduler stopped")
			return nil
		},
	}
}
