package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/iliyamo/mentorship-system/internal/config"
	"github.com/iliyamo/mentorship-system/internal/database"
)

func migrateCmd() *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the MySQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				fmt.Fprint(cmd.OutOrStdout(), database.Schema())
				return nil
			}
			cfg := config.Load()
			if cfg.DBDriver != config.DriverMySQL {
				return fmt.Errorf("migrate needs DB_DRIVER=%s, got %q", config.DriverMySQL, cfg.DBDriver)
			}
			a, err := newApp(cmdContext(cmd), cfg, true)
			if err != nil {
				return err
			}
			defer a.close()
			log.Printf("migrate: schema applied to %s", cfg.DBName)
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the schema instead of applying it")
	return cmd
}

// sweepCmd runs the maintenance jobs once, outside the cron schedule.
func sweepCmd() *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Complete expired relations once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			a, err := newApp(ctx, config.Load(), false)
			if err != nil {
				return err
			}
			defer a.close()

			s := a.newScheduler()
			if !s.RunOnce(ctx, a.sweep) {
				return fmt.Errorf("%s did not complete", a.sweep.Name())
			}
			if purge && !s.RunOnce(ctx, a.purge) {
				return fmt.Errorf("%s did not complete", a.purge.Name())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "also delete stale unverified users")
	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
