// Package runcmder provides the run command: execute a prompt file against
// the model under test, score the answers with the judge and write reports.
package runcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/judgebench/pkg/bench"
	"github.com/papercomputeco/judgebench/pkg/cliui"
	"github.com/papercomputeco/judgebench/pkg/config"
	"github.com/papercomputeco/judgebench/pkg/dotdir"
	"github.com/papercomputeco/judgebench/pkg/executor"
	"github.com/papercomputeco/judgebench/pkg/logger"
	"github.com/papercomputeco/judgebench/pkg/pipeline"
	"github.com/papercomputeco/judgebench/pkg/prompts"
	"github.com/papercomputeco/judgebench/pkg/report"
)

const runLongDesc string = `Run a benchmark.

Loads prompt items from a JSON or YAML file, sends every single prompt and
every conversation turn to the model under test, asks the judge model to
score each answer against its expected answer and writes the results:

  <output-dir>/result_<timestamp>.json    structured results
  <output-dir>/summary_<timestamp>.json   overall and per-conversation summary
  <output-dir>/report_<timestamp>.html    HTML report

The judge falls back to the target endpoint, key and model when they are not
set. Settings come from flags, JUDGEBENCH_* environment variables (or the
legacy BENCHMARK_* / EVAL_* names), a .env file and config.toml.

Examples:
  judgebench run prompts.json -e http://localhost:11434/v1/chat/completions -m llama3.2
  judgebench run prompts.yaml --judge-model gpt-4o --judge-batch-size 2
  judgebench run prompts.json --storage sqlite --eventstream kafka --kafka-brokers localhost:9092`

const runShortDesc string = "Run a benchmark from a prompt file"

type runCommander struct {
	debug       bool
	configDir   string
	skipInvalid bool
	noProgress  bool

	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

// flagKeys are the registry flags the run command exposes.
var flagKeys = func() []string {
	keys := append([]string{}, config.ModelFlags...)
	keys = append(keys, config.OutputFlags...)
	keys = append(keys, config.StorageFlags...)
	return append(keys, config.EventStreamFlags...)
}()

func NewRunCmd() *cobra.Command {
	cmder := &runCommander{}

	cmd := &cobra.Command{
		Use:   "run <prompts-file>",
		Short: runShortDesc,
		Long:  runLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			cfg, err := config.Resolve(cmd, cmder.configDir, flagKeys)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cfg, args[0])
		},
	}

	config.AddFlags(cmd, config.Flags, flagKeys)
	cmd.Flags().BoolVar(&cmder.skipInvalid, "skip-invalid", false, "Drop invalid prompt items instead of reporting them as errors")
	cmd.Flags().BoolVar(&cmder.noProgress, "no-progress", false, "Disable progress bars")

	return cmd
}

func (c *runCommander) run(ctx context.Context, cfg *config.Config, promptsPath string) error {
	level := slog.LevelInfo
	switch {
	case c.debug:
		level = slog.LevelDebug
	case !c.noProgress:
		level = slog.LevelWarn
	}
	c.logger = logger.New(
		logger.WithPretty(true),
		logger.WithWriter(c.errOut),
		logger.WithLevel(level),
	)

	if cfg.Target.Endpoint == "" {
		return errors.New("no target endpoint: set --endpoint, JUDGEBENCH_TARGET_ENDPOINT or target.endpoint")
	}

	loaded, err := prompts.LoadFile(promptsPath, prompts.Options{
		SkipInvalid: c.skipInvalid,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}
	for _, p := range loaded.Problems {
		fmt.Fprintf(c.errOut, "  %s %s\n", cliui.FailMark, p.String())
	}
	if len(loaded.Items) == 0 {
		return fmt.Errorf("no prompt items in %s", promptsPath)
	}

	store, err := pipeline.OpenStorage(ctx, cfg.Storage, c.logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	pub, err := pipeline.OpenPublisher(cfg.EventStream, c.logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	progress := c.newProgress(executor.CountTurns(loaded.Items))

	p, err := pipeline.Build(cfg, store, pub, progress.hooks(), c.logger)
	if err != nil {
		return err
	}

	run, err := p.Run(ctx, loaded.Items)
	progress.finish()
	if err != nil {
		return err
	}

	files, err := report.Write(report.Options{
		Dir:     cfg.Output.Dir,
		Results: cfg.Output.Results,
		Summary: cfg.Output.Summary,
		HTML:    cfg.Output.HTML,
	}, run.CompletedAt.Local(), run.Summary, run.Results)
	if err != nil {
		return err
	}

	ddm := dotdir.NewManager()
	if err := ddm.SaveLastRun(&dotdir.LastRun{
		RunID:       run.ID,
		ResultsPath: files.Results,
		SummaryPath: files.Summary,
		CompletedAt: run.CompletedAt,
	}, c.configDir); err != nil {
		c.logger.Warn("could not record last run", "error", err)
	}

	rendered, err := cliui.RenderMarkdown(report.SummaryMarkdown(run.Summary))
	if err != nil {
		c.logger.Debug("markdown rendering failed", "error", err)
	}
	fmt.Fprint(c.out, rendered)

	for _, path := range []string{files.Results, files.Summary, files.HTML} {
		if path != "" {
			fmt.Fprintf(c.out, "  %s %s\n", cliui.SuccessMark, path)
		}
	}
	fmt.Fprintf(c.out, "  %s %s\n", cliui.DimStyle.Render("run id:"), run.ID)

	return nil
}

// stageProgress shows one progress bar per stage. The evaluation bar starts
// with the first evaluated result, after execution has drained.
type stageProgress struct {
	w       io.Writer
	enabled bool
	total   int

	exec     *cliui.Progress
	evalOnce sync.Once
	eval     *cliui.Progress
}

func (c *runCommander) newProgress(total int) *stageProgress {
	return &stageProgress{w: c.errOut, enabled: !c.noProgress, total: total}
}

func (s *stageProgress) hooks() pipeline.Hooks {
	if !s.enabled {
		return pipeline.Hooks{}
	}

	s.exec = cliui.NewProgress(s.w, s.total, "executing")
	return pipeline.Hooks{
		Executed: func(bench.TurnResult) {
			s.exec.Increment()
		},
		Evaluated: func(bench.EvaluatedResult) {
			s.evalOnce.Do(s.startEval)
			s.eval.Increment()
		},
	}
}

func (s *stageProgress) startEval() {
	s.exec.Finish()
	s.eval = cliui.NewProgress(s.w, s.total, "evaluating")
}

func (s *stageProgress) finish() {
	if !s.enabled {
		return
	}
	s.evalOnce.Do(s.startEval)
	s.eval.Finish()
}
