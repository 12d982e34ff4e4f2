package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent judgebench configuration stored as
// config.toml in the .judgebench/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Target      ModelConfig       `toml:"target"`
	Judge       ModelConfig       `toml:"judge"`
	Output      OutputConfig      `toml:"output"`
	Storage     StorageConfig     `toml:"storage"`
	EventStream EventStreamConfig `toml:"eventstream"`
	API         APIConfig         `toml:"api"`
}

// ModelConfig describes how to reach one chat-completion endpoint. It is used
// for both the model under test (target) and the judge.
type ModelConfig struct {
	Endpoint string `toml:"endpoint,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
	Model    string `toml:"model,omitempty"`

	// Provider selects the response codec: "openai" or "text".
	Provider string `toml:"provider,omitempty"`

	// Client selects the transport: "http" or "sdk".
	Client string `toml:"client,omitempty"`

	BatchSize      uint `toml:"batch_size,omitempty"`
	TimeoutSeconds uint `toml:"timeout_seconds,omitempty"`

	// MaxRetries has no omitempty: zero disables retries.
	MaxRetries     uint `toml:"max_retries"`
	RequestDelayMs uint `toml:"request_delay_ms,omitempty"`
}

// OutputConfig controls which files a run writes.
type OutputConfig struct {
	Dir     string `toml:"dir,omitempty"`
	Results bool   `toml:"results"`
	Summary bool   `toml:"summary"`
	HTML    bool   `toml:"html"`
}

// StorageConfig selects where runs are persisted. An empty driver disables
// persistence for the CLI; the API server falls back to memory.
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventStreamConfig selects where run events are published.
type EventStreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ResolvedJudge returns the judge settings with endpoint, key and model
// falling back to the target's when unset.
func (c *Config) ResolvedJudge() ModelConfig {
	j := c.Judge
	if j.Endpoint == "" {
		j.Endpoint = c.Target.Endpoint
	}
	if j.APIKey == "" {
		j.APIKey = c.Target.APIKey
	}
	if j.Model == "" {
		j.Model = c.Target.Model
	}
	return j
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatUint(uint64(*field(c)), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func listKey(field func(c *Config) *[]string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strings.Join(*field(c), ",") },
		set: func(c *Config, v string) error { *field(c) = splitList(v); return nil },
	}
}

// splitList parses a comma separated list, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func modelKeys(section string, model func(c *Config) *ModelConfig) map[string]configKeyInfo {
	return map[string]configKeyInfo{
		section + ".endpoint": stringKey(func(c *Config) *string { return &model(c).Endpoint }),
		section + ".api_key":  stringKey(func(c *Config) *string { return &model(c).APIKey }),
		section + ".model":    stringKey(func(c *Config) *string { return &model(c).Model }),
		section + ".provider": stringKey(func(c *Config) *string { return &model(c).Provider }),
		section + ".client":   stringKey(func(c *Config) *string { return &model(c).Client }),
		section + ".batch_size": uintKey(section+".batch_size",
			func(c *Config) *uint { return &model(c).BatchSize }),
		section + ".timeout_seconds": uintKey(section+".timeout_seconds",
			func(c *Config) *uint { return &model(c).TimeoutSeconds }),
		section + ".max_retries": uintKey(section+".max_retries",
			func(c *Config) *uint { return &model(c).MaxRetries }),
		section + ".request_delay_ms": uintKey(section+".request_delay_ms",
			func(c *Config) *uint { return &model(c).RequestDelayMs }),
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = func() map[string]configKeyInfo {
	keys := map[string]configKeyInfo{
		"output.dir":     stringKey(func(c *Config) *string { return &c.Output.Dir }),
		"output.results": boolKey("output.results", func(c *Config) *bool { return &c.Output.Results }),
		"output.summary": boolKey("output.summary", func(c *Config) *bool { return &c.Output.Summary }),
		"output.html":    boolKey("output.html", func(c *Config) *bool { return &c.Output.HTML }),

		"storage.driver":       stringKey(func(c *Config) *string { return &c.Storage.Driver }),
		"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
		"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

		"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
		"eventstream.brokers":  listKey(func(c *Config) *[]string { return &c.EventStream.Brokers }),
		"eventstream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),

		"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),
	}

	for k, v := range modelKeys("target", func(c *Config) *ModelConfig { return &c.Target }) {
		keys[k] = v
	}
	for k, v := range modelKeys("judge", func(c *Config) *ModelConfig { return &c.Judge }) {
		keys[k] = v
	}

	return keys
}()
