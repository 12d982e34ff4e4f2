// Package configcmder provides the config command for managing persistent
// judgebench configuration stored in the .judgebench/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent judgebench configuration.

Configuration is stored as config.toml in the .judgebench/ directory and
provides default values for command flags. Environment variables
(JUDGEBENCH_TARGET_MODEL, ...) override the file and CLI flags always take
precedence over both.

Keys use dotted notation matching the TOML section structure:
  target.endpoint, target.api_key, target.model, target.provider,
  target.client, target.batch_size, target.timeout_seconds,
  target.max_retries, target.request_delay_ms,
  judge.* (same keys as target, falling back to target when unset),
  output.dir, output.results, output.summary, output.html,
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  api.listen

Use subcommands to get, set, or list configuration values:
  judgebench config set <key> <value>    Set a configuration value
  judgebench config get <key>            Get a configuration value
  judgebench config list                 List all configuration values

Examples:
  judgebench config set target.endpoint http://localhost:11434/v1/chat/completions
  judgebench config set judge.model gpt-4o
  judgebench config get target.batch_size
  judgebench config list`

const configShortDesc string = "Manage persistent judgebench configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
