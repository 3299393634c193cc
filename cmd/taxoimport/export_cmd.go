package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/taxonomy-import/internal/core"
)

type exportOptions struct {
	snapshotPath string
	outPath      string
}

func newExportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot in the import format (terms first, then nodes)",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd.Context(), opts.snapshotPath)
			if err != nil {
				return err
			}
			rows := core.FlattenSnapshot(snap)
			if err := writeOutput(opts.outPath, cmd.OutOrStdout(), rows); err != nil {
				return err
			}
			slog.Info("snapshot exported", "rows", len(rows), "out", opts.outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.snapshotPath, "snapshot", "", "Snapshot file, JSON or YAML (required)")
	cmd.Flags().StringVar(&opts.outPath, "out", stdio, "Output file, .csv or .xlsx; - writes CSV to stdout")
	_ = cmd.MarkFlagRequired("snapshot")

	return cmd
}

func newTemplateCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write an empty import file with the header row",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOutput(outPath, cmd.OutOrStdout(), nil)
		},
	}

	cmd.Flags().StringVar(&outPath, "out", stdio, "Output file, .csv or .xlsx; - writes CSV to stdout")
	return cmd
}
