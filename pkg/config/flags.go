package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --sqlite
// on both "judgebench run" and "judgebench serve").
type Flag struct {
	// Name is the long flag name (e.g. "endpoint").
	Name string

	// Shorthand is the one-letter short flag (e.g. "e"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "target.endpoint").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddBoolFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagEndpoint       = "endpoint"
	FlagAPIKey         = "api-key"
	FlagModel          = "model"
	FlagProvider       = "provider"
	FlagClient         = "client"
	FlagBatchSize      = "batch-size"
	FlagMaxRetries     = "max-retries"
	FlagRequestDelay   = "request-delay-ms"
	FlagTimeout        = "timeout"
	FlagJudgeEndpoint  = "judge-endpoint"
	FlagJudgeAPIKey    = "judge-api-key"
	FlagJudgeModel     = "judge-model"
	FlagJudgeProvider  = "judge-provider"
	FlagJudgeClient    = "judge-client"
	FlagJudgeBatchSize = "judge-batch-size"
	FlagJudgeRetries   = "judge-max-retries"
	FlagJudgeDelay     = "judge-request-delay-ms"
	FlagJudgeTimeout   = "judge-timeout"
	FlagOutputDir      = "output-dir"
	FlagWriteResults   = "write-results"
	FlagWriteSummary   = "write-summary"
	FlagWriteHTML      = "write-html"
	FlagStorageDriver  = "storage"
	FlagSQLite         = "sqlite"
	FlagPostgresDSN    = "postgres-dsn"
	FlagEventStream    = "eventstream"
	FlagKafkaBrokers   = "kafka-brokers"
	FlagKafkaTopic     = "kafka-topic"
	FlagAPIListen      = "listen"
)

// Flags is the registry shared by every judgebench command.
var Flags = FlagSet{
	FlagEndpoint:       {Name: "endpoint", Shorthand: "e", ViperKey: "target.endpoint", Description: "Chat-completion URL of the model under test"},
	FlagAPIKey:         {Name: "api-key", ViperKey: "target.api_key", Description: "API key for the model under test"},
	FlagModel:          {Name: "model", Shorthand: "m", ViperKey: "target.model", Description: "Model identifier under test"},
	FlagProvider:       {Name: "provider", ViperKey: "target.provider", Description: "Response codec for the model under test (openai, text)"},
	FlagClient:         {Name: "client", ViperKey: "target.client", Description: "Transport for the model under test (http, sdk)"},
	FlagBatchSize:      {Name: "batch-size", Shorthand: "b", ViperKey: "target.batch_size", Description: "Concurrent requests to the model under test"},
	FlagMaxRetries:     {Name: "max-retries", ViperKey: "target.max_retries", Description: "Retries after HTTP 429 for the model under test"},
	FlagRequestDelay:   {Name: "request-delay-ms", ViperKey: "target.request_delay_ms", Description: "Minimum spacing between requests to the model under test"},
	FlagTimeout:        {Name: "timeout", ViperKey: "target.timeout_seconds", Description: "Per-request timeout in seconds for the model under test"},
	FlagJudgeEndpoint:  {Name: "judge-endpoint", ViperKey: "judge.endpoint", Description: "Chat-completion URL of the judge (default: --endpoint)"},
	FlagJudgeAPIKey:    {Name: "judge-api-key", ViperKey: "judge.api_key", Description: "API key for the judge (default: --api-key)"},
	FlagJudgeModel:     {Name: "judge-model", ViperKey: "judge.model", Description: "Judge model identifier (default: --model)"},
	FlagJudgeProvider:  {Name: "judge-provider", ViperKey: "judge.provider", Description: "Response codec for the judge (openai, text)"},
	FlagJudgeClient:    {Name: "judge-client", ViperKey: "judge.client", Description: "Transport for the judge (http, sdk)"},
	FlagJudgeBatchSize: {Name: "judge-batch-size", ViperKey: "judge.batch_size", Description: "Concurrent judge requests"},
	FlagJudgeRetries:   {Name: "judge-max-retries", ViperKey: "judge.max_retries", Description: "Retries after HTTP 429 for the judge"},
	FlagJudgeDelay:     {Name: "judge-request-delay-ms", ViperKey: "judge.request_delay_ms", Description: "Minimum spacing between judge requests"},
	FlagJudgeTimeout:   {Name: "judge-timeout", ViperKey: "judge.timeout_seconds", Description: "Per-request timeout in seconds for the judge"},
	FlagOutputDir:      {Name: "output-dir", Shorthand: "o", ViperKey: "output.dir", Description: "Directory for result and report files"},
	FlagWriteResults:   {Name: "write-results", ViperKey: "output.results", Description: "Write the structured results file"},
	FlagWriteSummary:   {Name: "write-summary", ViperKey: "output.summary", Description: "Write the summary report file"},
	FlagWriteHTML:      {Name: "write-html", ViperKey: "output.html", Description: "Write the HTML report"},
	FlagStorageDriver:  {Name: "storage", ViperKey: "storage.driver", Description: "Run storage driver (memory, sqlite, postgres)"},
	FlagSQLite:         {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to the SQLite database"},
	FlagPostgresDSN:    {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagEventStream:    {Name: "eventstream", ViperKey: "eventstream.provider", Description: "Event stream provider (kafka)"},
	FlagKafkaBrokers:   {Name: "kafka-brokers", ViperKey: "eventstream.brokers", Description: "Comma separated Kafka broker addresses"},
	FlagKafkaTopic:     {Name: "kafka-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for run events"},
	FlagAPIListen:      {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}

// Flag groups registered together by the commands that need them.
var (
	ModelFlags = []string{
		FlagEndpoint, FlagAPIKey, FlagModel, FlagProvider, FlagClient,
		FlagBatchSize, FlagMaxRetries, FlagRequestDelay, FlagTimeout,
		FlagJudgeEndpoint, FlagJudgeAPIKey, FlagJudgeModel, FlagJudgeProvider, FlagJudgeClient,
		FlagJudgeBatchSize, FlagJudgeRetries, FlagJudgeDelay, FlagJudgeTimeout,
	}
	OutputFlags      = []string{FlagOutputDir, FlagWriteResults, FlagWriteSummary, FlagWriteHTML}
	StorageFlags     = []string{FlagStorageDriver, FlagSQLite, FlagPostgresDSN}
	EventStreamFlags = []string{FlagEventStream, FlagKafkaBrokers, FlagKafkaTopic}
)

// AddFlags registers each listed flag on cmd, typed after the default of the
// config key it maps to. Values are read back through viper once
// BindRegisteredFlags has run.
func AddFlags(cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	v := viper.New()
	setViperDefaults(v)

	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok || cmd.Flags().Lookup(def.Name) != nil {
			continue
		}

		switch v.Get(def.ViperKey).(type) {
		case uint:
			AddUintFlag(cmd, fs, registryKey, new(uint))
		case bool:
			AddBoolFlag(cmd, fs, registryKey, new(bool))
		default:
			AddStringFlag(cmd, fs, registryKey, new(string))
		}
	}
}
