// Package judgebenchcmder
package judgebenchcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/judgebench/cmd/judgebench/config"
	initcmder "github.com/papercomputeco/judgebench/cmd/judgebench/init"
	reportcmder "github.com/papercomputeco/judgebench/cmd/judgebench/report"
	runcmder "github.com/papercomputeco/judgebench/cmd/judgebench/run"
	servecmder "github.com/papercomputeco/judgebench/cmd/judgebench/serve"
	versioncmder "github.com/papercomputeco/judgebench/cmd/version"
)

const judgebenchLongDesc string = `judgebench benchmarks chat-completion models with an LLM judge.

Every prompt item (a single prompt or a multi-turn conversation) is sent to
the model under test, a judge model scores each answer against the expected
answer from 0.0 to 1.0, and the scored results are summarized per run and
per conversation.

Common commands:
  judgebench init --preset ollama     Create a local .judgebench/ config
  judgebench run prompts.json         Run a benchmark and write reports
  judgebench report                   Render the last run
  judgebench serve                    Run the HTTP API server`

const judgebenchShortDesc string = "judgebench - LLM-as-judge benchmarking"

func NewJudgebenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "judgebench",
		Short:         judgebenchShortDesc,
		Long:          judgebenchLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .judgebench/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(runcmder.NewRunCmd())
	cmd.AddCommand(reportcmder.NewReportCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
