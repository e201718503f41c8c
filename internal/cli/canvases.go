package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/aicanvas/internal/app"
	"github.com/liliang-cn/aicanvas/internal/domain"
	"github.com/liliang-cn/aicanvas/internal/export"
	"github.com/liliang-cn/aicanvas/internal/metrics"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Phases   []string
	Statuses []string
	Tags     []string
	Query    string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List canvases",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts.RootOptions, func(ctx context.Context, svc *app.Services, out *OutputFormatter) error {
				return runList(ctx, opts, svc, out)
			})
		},
	}

	cmd.Flags().StringSliceVar(&opts.Phases, "phase", nil, "only canvases in these phases")
	cmd.Flags().StringSliceVar(&opts.Statuses, "status", nil, "only canvases with these statuses")
	cmd.Flags().StringSliceVar(&opts.Tags, "tag", nil, "only canvases carrying one of these tags")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "case-insensitive search over names and owners")

	return cmd
}

func runList(ctx context.Context, opts *ListOptions, svc *app.Services, out *OutputFormatter) error {
	filters := domain.CanvasFilters{Tags: opts.Tags, SearchQuery: opts.Query}
	for _, p := range opts.Phases {
		if !domain.Phase(p).Valid() {
			return NewExitError(ExitFailure, fmt.Sprintf("unknown phase %q", p))
		}
		filters.Phases = append(filters.Phases, domain.Phase(p))
	}
	for _, s := range opts.Statuses {
		if !domain.Status(s).Valid() {
			return NewExitError(ExitFailure, fmt.Sprintf("unknown status %q", s))
		}
		filters.Statuses = append(filters.Statuses, domain.Status(s))
	}

	summaries := svc.Canvases.ListCanvases(ctx, filters)
	return out.Success(summaries, func(w io.Writer) {
		if len(summaries) == 0 {
			fmt.Fprintln(w, "No canvases found")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tUSE CASE\tPHASE\tSTATUS\tDONE\tUPDATED")
		for _, s := range summaries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d%%\t%s\n",
				s.ID, s.Name, s.UseCaseName,
				export.FormatPhase(s.Phase), export.FormatStatus(s.Status),
				s.CompletionPercentage, export.FormatDate(s.LastUpdated))
		}
		tw.Flush()
	})
}

// CanvasDetail is the show command's JSON payload.
type CanvasDetail struct {
	Canvas  *domain.Canvas  `json:"canvas"`
	Metrics *metrics.Report `json:"metrics"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <canvas-id>",
		Short:         "Show a canvas with its completion and health",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, rootOpts, func(ctx context.Context, svc *app.Services, out *OutputFormatter) error {
				c, err := svc.Canvases.GetCanvas(ctx, args[0])
				if err != nil {
					return serviceError("canvas "+args[0], err)
				}
				report := metrics.Compute(c)
				return out.Success(CanvasDetail{Canvas: c, Metrics: &report}, func(w io.Writer) {
					printCanvas(w, c, &report)
				})
			})
		},
	}
}

func printCanvas(w io.Writer, c *domain.Canvas, r *metrics.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", c.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", c.Name)
	fmt.Fprintf(tw, "Use case:\t%s\n", c.UseCaseName)
	fmt.Fprintf(tw, "Owner:\t%s\n", c.Owner)
	fmt.Fprintf(tw, "Phase:\t%s\n", export.FormatPhase(c.Phase))
	fmt.Fprintf(tw, "Status:\t%s\n", export.FormatStatus(c.Status))
	fmt.Fprintf(tw, "Version:\t%d\n", c.Version)
	fmt.Fprintf(tw, "Updated:\t%s\n", export.FormatDate(c.UpdatedAt))
	fmt.Fprintf(tw, "Completion:\t%d%% (%d of %d answered)\n", r.Overall, r.AnsweredQuestions, r.TotalQuestions)
	for _, l := range domain.AllLayers {
		fmt.Fprintf(tw, "  %s:\t%d%%, %s\n", l, r.Layers[l], export.FormatReadiness(c.Readiness.Get(l)))
	}
	fmt.Fprintf(tw, "Health:\t%d (%s)\n", r.Health.Score, r.Health.Status)
	fmt.Fprintf(tw, "Remaining:\t%.1fh\n", r.HoursRemaining)
	tw.Flush()
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	As       string
	Output   string
	Comments bool
	NoMeta   bool
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <canvas-id>",
		Short: "Export a canvas as JSON, Markdown or paginated text",
		Long: `Export a canvas as JSON, Markdown or paginated text.

Without --output the document is written to stdout. With --output set to a
directory, the file is named after the use case.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts.RootOptions, func(ctx context.Context, svc *app.Services, out *OutputFormatter) error {
				return runExport(ctx, opts, args[0], svc, out)
			})
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "md", "document format (json|md|txt)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file or directory")
	cmd.Flags().BoolVar(&opts.Comments, "comments", false, "include section comments")
	cmd.Flags().BoolVar(&opts.NoMeta, "no-metadata", false, "omit the metadata block")

	return cmd
}

func runExport(ctx context.Context, opts *ExportOptions, id string, svc *app.Services, out *OutputFormatter) error {
	f, ok := export.ParseFormat(opts.As)
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("unsupported export format %q", opts.As))
	}

	data, filename, err := svc.Canvases.ExportCanvas(ctx, id, f, export.Options{
		IncludeMetadata:  !opts.NoMeta,
		IncludeReadiness: true,
		IncludeComments:  opts.Comments,
	})
	if err != nil {
		return serviceError("export "+id, err)
	}

	if opts.Output == "" {
		_, err := out.Writer.Write(data)
		return err
	}

	path := opts.Output
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, filename)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write export", err)
	}
	out.VerboseLog("Wrote %d bytes", len(data))
	return out.Success(map[string]any{"path": path, "bytes": len(data)}, func(w io.Writer) {
		fmt.Fprintf(w, "Exported %s to %s\n", id, path)
	})
}

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Overwrite bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a canvas from an exported JSON document",
		Long: `Import a canvas from an exported JSON document.

A canvas whose id is already in the store is imported under a new id unless
--overwrite is given.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read "+args[0], err)
			}
			return withServices(cmd, opts.RootOptions, func(ctx context.Context, svc *app.Services, out *OutputFormatter) error {
				c, err := svc.Canvases.ImportCanvas(ctx, data, opts.Overwrite)
				if err != nil {
					return serviceError("import "+args[0], err)
				}
				return out.Success(c, func(w io.Writer) {
					fmt.Fprintf(w, "Imported %q as %s\n", c.Name, c.ID)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "replace a canvas with the same id")

	return cmd
}

// NewDuplicateCommand creates the duplicate command.
func NewDuplicateCommand(rootOpts *RootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:           "duplicate <canvas-id>",
		Short:         "Copy a canvas under a new id",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, rootOpts, func(ctx context.Context, svc *app.Services, out *OutputFormatter) error {
				dup, err := svc.Canvases.DuplicateCanvas(ctx, args[0], name)
				if err != nil {
					return serviceError("duplicate "+args[0], err)
				}
				return out.Success(dup, func(w io.Writer) {
					fmt.Fprintf(w, "Created %q as %s\n", dup.Name, dup.ID)
				})
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name of the copy (default \"<name> (Copy)\")")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:           "delete <canvas-id>",
		Short:         "Delete a canvas and its autosave snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitFailure, "refusing to delete without --yes")
			}
			return withServices(cmd, rootOpts, func(ctx context.Context, svc *app.Services, out *OutputFormatter) error {
				if err := svc.Canvases.DeleteCanvas(ctx, args[0]); err != nil {
					return serviceError("delete "+args[0], err)
				}
				return out.Success(map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %s\n", args[0])
				})
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")

	return cmd
}

// NewTemplatesCommand creates the templates command.
func NewTemplatesCommand(rootOpts *RootOptions) *cobra.Command {
	var filters domain.TemplateFilters

	cmd := &cobra.Command{
		Use:           "templates",
		Short:         "List canvas templates",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, rootOpts, func(ctx context.Context, svc *app.Services, out *OutputFormatter) error {
				templates := svc.Canvases.ListTemplates(ctx, filters)
				return out.Success(templates, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tUSES")
					for _, t := range templates {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", t.ID, t.Name, t.Category, t.UsageCount)
					}
					tw.Flush()
				})
			})
		},
	}

	cmd.Flags().StringSliceVar(&filters.Categories, "category", nil, "only templates in these categories")
	cmd.Flags().StringVarP(&filters.SearchQuery, "query", "q", "", "search names and descriptions")

	return cmd
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Show store statistics",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, rootOpts, func(ctx context.Context, svc *app.Services, out *OutputFormatter) error {
				stats := svc.Canvases.Stats(ctx)
				return out.Success(stats, func(w io.Writer) {
					fmt.Fprintf(w, "Canvases:  %d\nTemplates: %d\nSize:      %d bytes\n",
						stats.CanvasCount, stats.TemplateCount, stats.StorageSize)
				})
			})
		},
	}
}

// Execute runs the root command and reports errors in the selected format.
func Execute(cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	out := &OutputFormatter{Format: format, Writer: stdout, ErrWriter: stderr}
	out.Error(err)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return ExitCommandError
	}
	return exitErr.Code
}
