package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/taxonomy-import/internal/core"
)

type previewOptions struct {
	snapshotPath   string
	inputPath      string
	asJSON         bool
	action         string
	maxSuggestions int
	trace          bool
}

func newPreviewCmd() *cobra.Command {
	var opts previewOptions

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Classify each row of an import file against a snapshot",
		Long: "Classify each row of an import file as create, update or skip against a snapshot\n" +
			"of existing entities. Nothing is written. Exits 2 when any row is invalid.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.snapshotPath, "snapshot", "", "Snapshot file, JSON or YAML (required)")
	cmd.Flags().StringVar(&opts.inputPath, "input", "", "Import file, .csv or .xlsx; - reads CSV from stdin (required)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the full preview as JSON")
	cmd.Flags().StringVar(&opts.action, "action", "", "Only show rows with this action: create, update, skip, unknown, invalid")
	cmd.Flags().IntVar(&opts.maxSuggestions, "max-suggestions", core.DefaultMaxSuggestions, "Near matches per new row; 0 disables")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Log reconciler decisions at debug level")
	_ = cmd.MarkFlagRequired("snapshot")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runPreview(cmd *cobra.Command, opts previewOptions) error {
	filter, ok := core.ParseActionFilter(opts.action)
	if !ok {
		return withCode(exitUsage, fmt.Errorf("invalid --action %q: value must be one of: all, create, update, skip, unknown, invalid", opts.action))
	}
	if opts.maxSuggestions < 0 {
		return withCode(exitUsage, fmt.Errorf("--max-suggestions must be non-negative"))
	}

	data, err := readInput(opts.inputPath, cmd.InOrStdin())
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(cmd.Context(), opts.snapshotPath)
	if err != nil {
		return err
	}

	popts := core.PreviewOptions{MaxSuggestions: opts.maxSuggestions}
	if opts.maxSuggestions == 0 {
		popts.MaxSuggestions = -1
	}
	if opts.trace {
		popts.Tracer = core.SlogTracer{}
	}

	var resp *core.PreviewResponse
	if isXLSX(opts.inputPath) {
		parsed, perr := parseInput(opts.inputPath, data)
		if perr != nil {
			return perr
		}
		resp, err = core.AnalyzeParsed(parsed, snap, popts)
	} else {
		resp, err = core.AnalyzeImport(data, snap, popts)
	}
	if err != nil {
		return withCode(exitValidation, err)
	}

	resp.Rows = core.FilterByAction(resp.Rows, filter)

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return withCode(exitFailure, fmt.Errorf("json encode: %w", err))
		}
	} else if err := printPreview(out, resp); err != nil {
		return withCode(exitFailure, err)
	}

	if n := resp.Summary.InvalidRows; n > 0 {
		return withCode(exitValidation, fmt.Errorf("%d invalid rows", n))
	}
	return nil
}

// printPreview renders a preview as a table followed by the summary.
func printPreview(w io.Writer, resp *core.PreviewResponse) error {
	for _, warn := range resp.Warnings {
		fmt.Fprintln(w, "warning:", warn.String())
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tACTION\tCANONICAL ID\tDETAIL")
	for _, row := range resp.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", row.LineNumber, row.Action, canonicalID(row), rowDetail(row))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := resp.Summary
	fmt.Fprintf(w, "\n%d rows: %d new, %d update, %d skip, %d unknown, %d invalid, %d duplicate\n",
		s.TotalRows, s.NewRows, s.UpdateRows, s.SkipRows, s.UnknownRows, s.InvalidRows, s.DuplicateInFile)
	return nil
}

func canonicalID(row core.RowPreview) string {
	if row.Classification != nil {
		return row.Classification.CanonicalID
	}
	return core.BuildCandidateID(row.Row.ParentNodes, row.Row.Name)
}

func rowDetail(row core.RowPreview) string {
	var parts []string
	for _, e := range row.Errors {
		parts = append(parts, e.Error())
	}
	if c := row.Classification; c != nil {
		if c.Err != "" {
			parts = append(parts, c.Err)
		}
		if c.Warning != "" {
			parts = append(parts, c.Warning)
		}
		for _, d := range c.ChangedFields() {
			parts = append(parts, "changed "+d.Field)
		}
	}
	for _, sg := range row.Suggestions {
		parts = append(parts, "did you mean "+sg.CanonicalID+"?")
	}
	if row.Duplicate {
		parts = append(parts, "duplicate")
	}
	return strings.Join(parts, "; ")
}
