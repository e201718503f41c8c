// Package cli implements canvasctl, the command-line tool for inspecting
// and moving canvases in a store.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/liliang-cn/aicanvas/internal/app"
	"github.com/liliang-cn/aicanvas/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"

	// Open builds the services a command runs against. It defaults to
	// opening the configured store.
	Open func(ctx context.Context, opts *RootOptions) (*app.Services, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for canvasctl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Open: openServices})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "canvasctl",
		Short: "Manage AI use-case canvases",
		Long:  "Inspect, export, import and remove AI use-case canvases held in the configured store.",
		// Execute reports errors in the selected output format.
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewDuplicateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewTemplatesCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

func openServices(ctx context.Context, opts *RootOptions) (*app.Services, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger := zap.NewNop()
	if opts.Verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
		if logger, err = app.NewLogger(cfg.Log); err != nil {
			return nil, err
		}
	}
	return app.NewServices(ctx, cfg, logger)
}

// withServices opens the store for the duration of fn
func withServices(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, svc *app.Services, out *OutputFormatter) error) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, err := opts.Open(ctx, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer svc.Close()
	return fn(ctx, svc, out)
}
