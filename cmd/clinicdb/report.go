package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/consultorio/clinicdb/internal/domain/consultation"
	"github.com/consultorio/clinicdb/internal/domain/patient"
	"github.com/consultorio/clinicdb/internal/export"
	"github.com/consultorio/clinicdb/internal/report"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Reports over the store",
	}

	dailyCmd := &cobra.Command{
		Use:   "daily",
		Short: "Consultations per day",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := dateRange(cmd)
			if err != nil {
				return err
			}

			ctx := context.Background()
			_, st, _, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			counts, err := consultation.NewService(st.Consultations).DailyCounts(ctx, from, to)
			if err != nil {
				return err
			}
			r, err := report.Daily(counts, from, to)
			if err != nil {
				return err
			}
			r.Render(cmd.OutOrStdout())
			return nil
		},
	}
	dailyCmd.Flags().String("from", "", "First day (dd/mm/yyyy or yyyy-mm-dd)")
	dailyCmd.Flags().String("to", "", "Last day (dd/mm/yyyy or yyyy-mm-dd)")
	cmd.AddCommand(dailyCmd)

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <out.parquet>",
		Short: "Write consultations with patient identity to a Parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := dateRange(cmd)
			if err != nil {
				return err
			}

			ctx := context.Background()
			_, st, logger, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := export.Consultations(ctx, args[0],
				consultation.NewService(st.Consultations), patient.NewService(st.Patients),
				from, to, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d consultations written to %s\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().String("from", "", "First day (dd/mm/yyyy or yyyy-mm-dd)")
	cmd.Flags().String("to", "", "Last day (dd/mm/yyyy or yyyy-mm-dd)")
	return cmd
}
