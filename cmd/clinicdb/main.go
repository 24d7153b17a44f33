package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/consultorio/clinicdb/internal/config"
	"github.com/consultorio/clinicdb/internal/platform/logging"
	"github.com/consultorio/clinicdb/internal/platform/textnorm"
	"github.com/consultorio/clinicdb/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "clinicdb",
		Short:        "Clinic consultation log store",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringP("store", "d", "", "SQLite file or PostgreSQL URL (overrides STORE_PATH / DATABASE_URL)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())

	return rootCmd
}

// setup loads configuration, applies the persistent flag overrides and
// builds the logger.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	location, _ := cmd.Flags().GetString("store")
	cfg.OverrideStore(location)
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, logging.New(cfg), nil
}

// openStore is setup followed by store.Open.
func openStore(ctx context.Context, cmd *cobra.Command) (*config.Config, *store.Store, zerolog.Logger, error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, nil, logger, err
	}
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, nil, logger, fmt.Errorf("open store: %w", err)
	}
	logger.Debug().Str("driver", st.Driver).Msg("store opened")
	return cfg, st, logger, nil
}

// isoDate accepts day/month/year or YYYY-MM-DD and returns YYYY-MM-DD.
func isoDate(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if d := textnorm.Date(s); d != "" {
		return d, nil
	}
	if _, err := textnorm.ParseISO(s); err == nil {
		return s, nil
	}
	return "", fmt.Errorf("invalid date %q: use dd/mm/yyyy or yyyy-mm-dd", s)
}

func dateRange(cmd *cobra.Command) (string, string, error) {
	rawFrom, _ := cmd.Flags().GetString("from")
	rawTo, _ := cmd.Flags().GetString("to")
	from, err := isoDate(rawFrom)
	if err != nil {
		return "", "", err
	}
	to, err := isoDate(rawTo)
	if err != nil {
		return "", "", err
	}
	return from, to, nil
}
