package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/taxonomy-import/internal/core"
)

func newValidateCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an import file without a snapshot",
		Long:  "Check the header and every row of an import file. Exits 2 when anything is invalid.",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(inputPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			parsed, err := parseInput(inputPath, data)
			if err != nil {
				return err
			}
			return runValidate(cmd.OutOrStdout(), parsed)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Import file, .csv or .xlsx; - reads CSV from stdin (required)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runValidate(w io.Writer, parsed core.ParseResult) error {
	if len(parsed.Header) == 0 {
		return withCode(exitValidation, core.ErrNoHeader)
	}
	if _, err := core.ValidateHeaders(parsed.Header); err != nil {
		return withCode(exitValidation, err)
	}

	for _, warn := range parsed.Warnings {
		fmt.Fprintln(w, "warning:", warn.String())
	}

	invalid := 0
	for i, row := range parsed.Rows {
		line := parsed.Lines[i]
		res := core.ValidateRow(row)
		for _, e := range res.Errors {
			fmt.Fprintf(w, "line %d: error: %s\n", line, e.Error())
		}
		for _, e := range res.Warnings {
			fmt.Fprintf(w, "line %d: warning: %s\n", line, e.Error())
		}
		if !res.Valid {
			invalid++
		}
	}

	fmt.Fprintf(w, "%d rows, %d invalid\n", len(parsed.Rows), invalid)
	if invalid > 0 {
		return withCode(exitValidation, fmt.Errorf("%d invalid rows", invalid))
	}
	return nil
}
