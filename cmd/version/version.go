// Package versioncmder provides the version command.
package versioncmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/judgebench/pkg/utils"
)

const versionLongDesc string = `Print the judgebench build: release version, git commit and build time.

Include this output when reporting a benchmark result so scores can be tied
to the exact dispatcher and evaluator behaviour that produced them.`

type versionCommander struct{}

func NewVersionCmd() *cobra.Command {
	cmder := &versionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the judgebench version",
		Long:  versionLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	return cmd
}

func (c *versionCommander) run(w io.Writer) error {
	_, err := fmt.Fprintf(w, "judgebench %s\ncommit: %s\nbuilt: %s\n", utils.Version, utils.Sha, utils.Buildtime)
	return err
}
