package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/judgebench/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .judgebench/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetPath = path

	return cfger, nil
}

// keyOrder is the stable listing order, matching the TOML section layout.
var keyOrder = []string{
	"target.endpoint",
	"target.api_key",
	"target.model",
	"target.provider",
	"target.client",
	"target.batch_size",
	"target.timeout_seconds",
	"target.max_retries",
	"target.request_delay_ms",
	"judge.endpoint",
	"judge.api_key",
	"judge.model",
	"judge.provider",
	"judge.client",
	"judge.batch_size",
	"judge.timeout_seconds",
	"judge.max_retries",
	"judge.request_delay_ms",
	"output.dir",
	"output.results",
	"output.summary",
	"output.html",
	"storage.driver",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"eventstream.provider",
	"eventstream.brokers",
	"eventstream.topic",
	"api.listen",
}

// ValidConfigKeys returns the ordered list of all supported configuration key names.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	for _, k := range keyOrder {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}

	// Append any keys in the map that we missed in the ordered list.
	var rest []string
	for k := range configKeys {
		if !slices.Contains(result, k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)

	return append(result, rest...)
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target
// .judgebench/ directory. If the file does not exist, returns
// NewDefaultConfig() so callers always receive a fully-populated Config.
// Fields explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return ParseConfigTOML(data)
}

// applyDefaults fills fields the file left undefined with values from
// NewDefaultConfig(). Zero is a meaningful value for max_retries and the
// output toggles, so those are only defaulted when the key is absent.
func applyDefaults(cfg *Config, md toml.MetaData) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	applyModelDefaults(&cfg.Target, &defaults.Target, md, "target")
	applyModelDefaults(&cfg.Judge, &defaults.Judge, md, "judge")

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = defaults.Output.Dir
	}
	if !md.IsDefined("output", "results") {
		cfg.Output.Results = defaults.Output.Results
	}
	if !md.IsDefined("output", "summary") {
		cfg.Output.Summary = defaults.Output.Summary
	}
	if !md.IsDefined("output", "html") {
		cfg.Output.HTML = defaults.Output.HTML
	}

	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = defaults.Storage.SQLitePath
	}

	if cfg.EventStream.Topic == "" {
		cfg.EventStream.Topic = defaults.EventStream.Topic
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}
}

func applyModelDefaults(m, d *ModelConfig, md toml.MetaData, section string) {
	if m.Provider == "" {
		m.Provider = d.Provider
	}
	if m.Client == "" {
		m.Client = d.Client
	}
	if m.BatchSize == 0 {
		m.BatchSize = d.BatchSize
	}
	if m.TimeoutSeconds == 0 {
		m.TimeoutSeconds = d.TimeoutSeconds
	}
	if !md.IsDefined(section, "max_retries") {
		m.MaxRetries = d.MaxRetries
	}
}

// SaveConfig persists the configuration to config.toml in the target .judgebench/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a default Config with target and judge pointed at the
// named provider preset. Supported presets: "openai", "ollama", "vllm".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	var endpoint, model string
	switch strings.ToLower(name) {
	case "openai":
		endpoint = "https://api.openai.com/v1/chat/completions"
		model = "gpt-4o-mini"

	case "ollama":
		endpoint = "http://localhost:11434/v1/chat/completions"
		model = "llama3.2"

	case "vllm":
		endpoint = "http://localhost:8000/v1/chat/completions"

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}

	cfg.Target.Endpoint = endpoint
	cfg.Target.Model = model
	return cfg, nil
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "ollama", "vllm"}
}

// ParseConfigTOML parses raw TOML bytes into a Config with defaults applied
// to every key the document leaves undefined.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	applyDefaults(cfg, md)

	return cfg, nil
}
