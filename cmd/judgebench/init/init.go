// Package initcmder provides the init command for initializing a local
// .judgebench directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/judgebench/pkg/cliui"
	"github.com/papercomputeco/judgebench/pkg/config"
)

const (
	dirName = ".judgebench"

	// remoteTimeout bounds fetching a preset from a URL.
	remoteTimeout = 15 * time.Second
)

const initLongDesc string = `Initialize a new .judgebench/ directory in the current working directory.

Creates a local .judgebench/ directory that takes precedence over the default
~/.judgebench/ directory for configuration and the last-run pointer, and
writes a config.toml with default values if none exists.

With --preset the config.toml is (re)written from a named provider preset
(openai, ollama, vllm) or from a config.toml fetched over HTTP(S).

Examples:
  judgebench init
  judgebench init --preset ollama
  judgebench init --preset https://example.com/judgebench/config.toml`

const initShortDesc string = "Initialize a local .judgebench/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Provider preset (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	existed := err == nil && info.IsDir()
	if !existed {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .judgebench directory: %w", err)
		}
	}

	cfg, err := c.presetConfig(ctx)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	_, statErr := os.Stat(cfger.GetTarget())
	if cfg == nil && statErr == nil {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	if existed {
		fmt.Printf("  %s Wrote %s\n", cliui.SuccessMark, cfger.GetTarget())
	} else {
		fmt.Printf("  %s Initialized .judgebench directory: %s\n", cliui.SuccessMark, dir)
	}
	return nil
}

// presetConfig resolves --preset. It returns nil when no preset was given.
func (c *initCommander) presetConfig(ctx context.Context) (*config.Config, error) {
	switch {
	case c.preset == "":
		return nil, nil

	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		return fetchRemoteConfig(ctx, c.preset)

	default:
		return config.PresetConfig(c.preset)
	}
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	cfg, err := config.ParseConfigTOML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing remote config: %w", err)
	}
	return cfg, nil
}
