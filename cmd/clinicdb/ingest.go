package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/consultorio/clinicdb/internal/domain/consultation"
	"github.com/consultorio/clinicdb/internal/domain/ingestrun"
	"github.com/consultorio/clinicdb/internal/domain/patient"
	"github.com/consultorio/clinicdb/internal/ingest"
	"github.com/consultorio/clinicdb/internal/platform/tabular"
	"github.com/consultorio/clinicdb/internal/report"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [csv]",
		Short: "Create the store schema and load a consultation log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			return runIngest(cmd, args, ingest.ModeInitialize, schema)
		},
	}
	cmd.Flags().StringP("schema", "s", "", "DDL script to run instead of relying only on the built-in schema")
	return cmd
}

func updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update [csv]",
		Short: "Add new consultations from a log to an initialized store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args, ingest.ModeUpdate, "")
		},
	}
}

func runIngest(cmd *cobra.Command, args []string, mode ingest.Mode, schema string) error {
	ctx := context.Background()
	cfg, st, logger, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	path := cfg.CSVPath
	if len(args) == 1 {
		path = args[0]
	}
	batch, err := tabular.Load(path)
	if err != nil {
		return err
	}

	eng := ingest.NewEngine(st, patient.NewService(st.Patients), consultation.NewService(st.Consultations),
		st.Runs, logger)

	var sum *ingest.Summary
	if mode == ingest.ModeInitialize {
		sum, err = eng.Initialize(ctx, batch, schema)
	} else {
		sum, err = eng.Update(ctx, batch)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", mode, path, err)
	}

	report.RenderRuns(cmd.OutOrStdout(), []*ingestrun.Run{sum.Run()})
	if len(sum.ColumnsAdded) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "columns added: %v\n", sum.ColumnsAdded)
	}
	return nil
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent ingest runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			ctx := context.Background()
			_, st, _, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.Runs.ListRecent(ctx, limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			report.RenderRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Number of runs to show")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect built-in schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, st, logger, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			logger.Info().Int("applied", n).Msg("migrations complete")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, st, _, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			statuses, err := st.MigrationStatus(ctx)
			if err != nil {
				return fmt.Errorf("get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-30s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Local().Format(time.DateTime)
					}
				}
				fmt.Fprintf(out, "%-10d %-30s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}
