package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consultorio/clinicdb/internal/config"
	"github.com/consultorio/clinicdb/internal/platform/tabular"
	"github.com/consultorio/clinicdb/internal/search"
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the consultation log CSV",
	}
	cmd.PersistentFlags().String("csv", "", "Consultation log to search (defaults to CSV_PATH)")
	cmd.PersistentFlags().StringP("output", "o", "", "Also write the JSON result to this file")

	nameCmd := &cobra.Command{
		Use:   "name <query>",
		Short: "Fuzzy search by patient name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, batch, err := loadSearchBatch(cmd)
			if err != nil {
				return err
			}
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			if threshold <= 0 {
				threshold = cfg.NameMatchThreshold
			}
			return writeResult(cmd, search.ByName(batch, strings.Join(args, " "), threshold))
		},
	}
	nameCmd.Flags().Float64("threshold", 0, "Minimum score from 0 to 100 (defaults to NAME_MATCH_THRESHOLD)")
	cmd.AddCommand(nameCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "text <keywords...>",
		Short: "Search keywords in the clinical narrative",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, batch, err := loadSearchBatch(cmd)
			if err != nil {
				return err
			}
			return writeResult(cmd, search.ByKeywords(batch, strings.Join(args, " ")))
		},
	})

	lastCmd := &cobra.Command{
		Use:   "last",
		Short: "Latest consultation of a patient by name and birth date",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			dob, _ := cmd.Flags().GetString("dob")
			_, batch, err := loadSearchBatch(cmd)
			if err != nil {
				return err
			}
			m, err := search.LastConsultation(batch, name, dob)
			if err != nil {
				return err
			}
			return writeResult(cmd, m)
		},
	}
	lastCmd.Flags().String("name", "", "Patient name")
	lastCmd.Flags().String("dob", "", "Birth date (dd/mm/yyyy)")
	lastCmd.MarkFlagRequired("name")
	lastCmd.MarkFlagRequired("dob")
	cmd.AddCommand(lastCmd)

	return cmd
}

func loadSearchBatch(cmd *cobra.Command) (*config.Config, *tabular.Batch, error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	path, _ := cmd.Flags().GetString("csv")
	if path == "" {
		path = cfg.CSVPath
	}
	batch, err := tabular.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug().Str("csv", path).Int("rows", len(batch.Rows)).Msg("consultation log loaded")
	return cfg, batch, nil
}

func writeResult(cmd *cobra.Command, v any) error {
	var w io.Writer = cmd.OutOrStdout()

	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create %s: %w", output, err)
		}
		defer f.Close()
		w = io.MultiWriter(w, f)
	}
	return search.WriteJSON(w, v)
}
