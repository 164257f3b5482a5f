package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/app"
	"github.com/noah-isme/grievance-api/migrations"
	"github.com/noah-isme/grievance-api/pkg/config"
	"github.com/noah-isme/grievance-api/pkg/database"
	"github.com/noah-isme/grievance-api/pkg/logger"
)

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logr, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			ctx, cancel := signalContext()
			defer cancel()

			db, err := database.NewPostgres(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(ctx, db.DB, migrations.FS, logr); err != nil {
				return err
			}
			version, err := database.MigrationStatus(ctx, db.DB, migrations.FS)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			ctx, cancel := signalContext()
			defer cancel()

			db, err := database.NewPostgres(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := database.MigrationStatus(ctx, db.DB, migrations.FS)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	})

	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one escalation sweep",
		Long: `Escalates every overdue unresolved grievance by at most one level and emails
the admins. Emails are sent before the command exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			ctx, cancel := signalContext()
			defer cancel()

			container, err := app.New(ctx, cfg, logr, app.Options{InlineEmail: true, SkipMigrations: true})
			if err != nil {
				return err
			}
			defer container.Close() //nolint:errcheck

			escalated, err := container.Escalation.Sweep(ctx, time.Now())
			if err != nil {
				return err
			}
			if len(escalated) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no grievances escalated")
				return nil
			}
			for _, g := range escalated {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tlevel %d\t%s\n", g.ID, g.EscalationLevel, g.Title)
			}
			return nil
		},
	}
}

func officerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "officer",
		Short: "Officer administration",
	}

	setActive := func(active bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			ctx, cancel := signalContext()
			defer cancel()

			container, err := app.New(ctx, cfg, logr, app.Options{InlineEmail: true, SkipMigrations: true})
			if err != nil {
				return err
			}
			defer container.Close() //nolint:errcheck

			resp, err := container.Officer.SetActive(ctx, args[0], active)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !resp.Changed {
				fmt.Fprintf(out, "officer %s already active=%t\n", resp.OfficerID, resp.Active)
				return nil
			}
			fmt.Fprintf(out, "officer %s active=%t\n", resp.OfficerID, resp.Active)
			if resp.Report == nil {
				return nil
			}
			for _, m := range resp.Report.Migrated {
				fmt.Fprintf(out, "moved\t%s\t-> %s\t%s\n", m.GrievanceID, m.OfficerID, m.Title)
			}
			for _, u := range resp.Report.Unmigrated {
				fmt.Fprintf(out, "kept\t%s\t%s\t%s\n", u.GrievanceID, u.Reason, u.Title)
			}
			return nil
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "deactivate <officer-id>",
		Short: "Deactivate an officer and redistribute their open grievances",
		Args:  cobra.ExactArgs(1),
		RunE:  setActive(false),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "activate <officer-id>",
		Short: "Reactivate an officer",
		Args:  cobra.ExactArgs(1),
		RunE:  setActive(true),
	})

	return cmd
}
