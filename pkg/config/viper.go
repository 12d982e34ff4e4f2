package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/judgebench/pkg/dotdir"
)

// envPrefix namespaces environment overrides: JUDGEBENCH_TARGET_ENDPOINT,
// JUDGEBENCH_JUDGE_BATCH_SIZE, etc.
const envPrefix = "JUDGEBENCH"

// legacyEnv maps viper keys to the unprefixed variable names older
// benchmark setups export. Prefixed variables win when both are set.
var legacyEnv = map[string]string{
	"target.endpoint":        "BENCHMARK_ENDPOINT_URL",
	"target.api_key":         "BENCHMARK_API_KEY",
	"target.model":           "BENCHMARK_MODEL",
	"target.batch_size":      "BATCH_SIZE",
	"judge.endpoint":         "EVAL_ENDPOINT_URL",
	"judge.api_key":          "EVAL_API_KEY",
	"judge.model":            "EVAL_MODEL",
	"judge.batch_size":       "EVAL_BATCH_SIZE",
	"judge.request_delay_ms": "EVAL_REQUEST_DELAY_MS",
	"judge.max_retries":      "EVAL_MAX_RETRIES",
}

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), loads a .env file from the working
// directory and binds environment variables with the JUDGEBENCH_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (JUDGEBENCH_TARGET_MODEL, then legacy BENCHMARK_MODEL)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. .env values become process environment without clobbering it.
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	// 4. Environment variables.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range legacyEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	return v, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set keep their value. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// FromViper materializes a Config from the merged viper view so commands
// work with one typed struct regardless of where each value came from.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	cfg.Version = v.GetInt("version")

	for _, key := range ValidConfigKeys() {
		var raw string
		if key == "eventstream.brokers" {
			raw = strings.Join(v.GetStringSlice(key), ",")
		} else {
			raw = v.GetString(key)
		}

		if err := configKeys[key].set(cfg, raw); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Resolve builds the effective Config for cmd from defaults, the config file,
// .env, the environment and the listed registry flags.
func Resolve(cmd *cobra.Command, configDir string, registryKeys []string) (*Config, error) {
	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}

	BindRegisteredFlags(v, cmd, Flags, registryKeys)

	return FromViper(v)
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Target and judge
	setModelDefaults(v, "target", d.Target)
	setModelDefaults(v, "judge", d.Judge)

	// Output
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.results", d.Output.Results)
	v.SetDefault("output.summary", d.Output.Summary)
	v.SetDefault("output.html", d.Output.HTML)

	// Storage
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Event stream
	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)

	// API
	v.SetDefault("api.listen", d.API.Listen)
}

func setModelDefaults(v *viper.Viper, section string, m ModelConfig) {
	v.SetDefault(section+".endpoint", m.Endpoint)
	v.SetDefault(section+".api_key", m.APIKey)
	v.SetDefault(section+".model", m.Model)
	v.SetDefault(section+".provider", m.Provider)
	v.SetDefault(section+".client", m.Client)
	v.SetDefault(section+".batch_size", m.BatchSize)
	v.SetDefault(section+".timeout_seconds", m.TimeoutSeconds)
	v.SetDefault(section+".max_retries", m.MaxRetries)
	v.SetDefault(section+".request_delay_ms", m.RequestDelayMs)
}
