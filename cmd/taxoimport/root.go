package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/taxonomy-import/internal/core"
	"github.com/JonMunkholm/taxonomy-import/internal/logging"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "taxoimport",
		Short:         "Preview, export and validate taxonomy bulk-import files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	cmd.AddCommand(newPreviewCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newTemplateCmd())
	cmd.AddCommand(newValidateCmd())
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		code := exitCode(err)
		printError(os.Stderr, err)
		stop()
		os.Exit(code)
	}
}

// printError writes err and, when it maps to a known code, what to do next.
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, "error:", err.Error())
	if msg := core.MapError(err); msg.Code != "" && msg.Code != "ERR000" {
		fmt.Fprintf(w, "  %s (%s)\n", msg.Action, msg.Code)
	}
}
