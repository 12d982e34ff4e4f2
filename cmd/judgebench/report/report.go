// Package reportcmder provides the report command rendering a finished run
// as markdown or HTML.
package reportcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/judgebench/cmd/judgebench/sqlitepath"
	"github.com/papercomputeco/judgebench/pkg/aggregator"
	"github.com/papercomputeco/judgebench/pkg/cliui"
	"github.com/papercomputeco/judgebench/pkg/config"
	"github.com/papercomputeco/judgebench/pkg/dotdir"
	"github.com/papercomputeco/judgebench/pkg/logger"
	"github.com/papercomputeco/judgebench/pkg/pipeline"
	"github.com/papercomputeco/judgebench/pkg/report"
	"github.com/papercomputeco/judgebench/pkg/storage"
)

const reportLongDesc string = `Render the report of a finished run.

The run is taken from a results file (result_<timestamp>.json), from a run
id looked up in the configured storage, or, without an argument, from the
last run recorded in the .judgebench/ directory.

Markdown is rendered for the terminal unless --raw is given or the report is
written to a file.

Examples:
  judgebench report
  judgebench report results/result_20250101_120000.json
  judgebench report 0b6c7c1e-... --storage sqlite
  judgebench report --format html -O report.html`

const reportShortDesc string = "Render the report of a finished run"

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

type reportCommander struct {
	configDir string
	format    string
	output    string
	raw       bool
}

func NewReportCmd() *cobra.Command {
	cmder := &reportCommander{}

	cmd := &cobra.Command{
		Use:   "report [run-id | results-file]",
		Short: reportShortDesc,
		Long:  reportLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfg, err := config.Resolve(cmd, cmder.configDir, config.StorageFlags)
			if err != nil {
				return err
			}

			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return cmder.run(cmd.Context(), cfg, ref, cmd.OutOrStdout())
		},
	}

	config.AddFlags(cmd, config.Flags, config.StorageFlags)
	cmd.Flags().StringVarP(&cmder.format, "format", "f", FormatMarkdown, "Report format (markdown, html)")
	cmd.Flags().StringVarP(&cmder.output, "output", "O", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print markdown without terminal rendering")

	return cmd
}

func (c *reportCommander) run(ctx context.Context, cfg *config.Config, ref string, stdout io.Writer) error {
	if c.format != FormatMarkdown && c.format != FormatHTML {
		return fmt.Errorf("unknown format %q (supported: %s, %s)", c.format, FormatMarkdown, FormatHTML)
	}

	summary, entries, err := c.load(ctx, cfg, ref)
	if err != nil {
		return err
	}

	var out []byte
	switch c.format {
	case FormatHTML:
		out, err = report.HTML(summary, entries)
		if err != nil {
			return err
		}
	default:
		md := report.Markdown(summary, entries)
		if !c.raw && c.output == "" {
			// RenderMarkdown hands back the source on failure.
			md, _ = cliui.RenderMarkdown(md)
		}
		out = []byte(md)
	}

	if c.output == "" {
		_, err = stdout.Write(out)
		return err
	}

	if err := os.WriteFile(c.output, out, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Fprintf(stdout, "  %s %s\n", cliui.SuccessMark, c.output)
	return nil
}

// load resolves ref to a run: a results file, a stored run id or, when ref
// is empty, the last recorded run.
func (c *reportCommander) load(ctx context.Context, cfg *config.Config, ref string) (aggregator.Summary, []aggregator.Entry, error) {
	if ref == "" {
		last, err := dotdir.NewManager().LoadLastRun(c.configDir)
		if err != nil {
			return aggregator.Summary{}, nil, err
		}
		if last == nil {
			return aggregator.Summary{}, nil, errors.New("no run recorded yet: pass a run id or a results file")
		}
		if last.ResultsPath != "" {
			if _, err := os.Stat(last.ResultsPath); err == nil {
				return report.LoadResults(last.ResultsPath)
			}
		}
		ref = last.RunID
	}

	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return report.LoadResults(ref)
	}

	return c.loadStored(ctx, cfg, ref)
}

func (c *reportCommander) loadStored(ctx context.Context, cfg *config.Config, id string) (aggregator.Summary, []aggregator.Entry, error) {
	if cfg.Storage.Driver == pipeline.StorageNone {
		return aggregator.Summary{}, nil, fmt.Errorf("%q is not a results file and storage is disabled (set --storage)", id)
	}

	if cfg.Storage.Driver == pipeline.StorageSQLite {
		path, err := sqlitepath.ResolveSQLitePath(cfg.Storage.SQLitePath, c.configDir)
		if err != nil {
			return aggregator.Summary{}, nil, err
		}
		cfg.Storage.SQLitePath = path
	}

	store, err := pipeline.OpenStorage(ctx, cfg.Storage, logger.Nop())
	if err != nil {
		return aggregator.Summary{}, nil, err
	}
	defer store.Close()

	run, err := store.Get(ctx, id)
	if err != nil {
		return aggregator.Summary{}, nil, err
	}
	if run.Status != storage.StatusCompleted || run.Summary == nil {
		return aggregator.Summary{}, nil, fmt.Errorf("run %s is %s", id, run.Status)
	}

	return *run.Summary, run.Results, nil
}
