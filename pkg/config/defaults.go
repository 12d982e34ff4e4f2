package config

const (
	defaultProvider = "openai"
	defaultClient   = "http"

	defaultTargetBatchSize = 5
	defaultJudgeBatchSize  = 5
	defaultTimeoutSeconds  = 600
	defaultMaxRetries      = 3

	defaultOutputDir  = "results"
	defaultSQLitePath = "judgebench.sqlite"
	defaultTopic      = "judgebench.events"
	defaultAPIListen  = ":8081"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Target: ModelConfig{
			Provider:       defaultProvider,
			Client:         defaultClient,
			BatchSize:      defaultTargetBatchSize,
			TimeoutSeconds: defaultTimeoutSeconds,
			MaxRetries:     defaultMaxRetries,
		},
		Judge: ModelConfig{
			Provider:       defaultProvider,
			Client:         defaultClient,
			BatchSize:      defaultJudgeBatchSize,
			TimeoutSeconds: defaultTimeoutSeconds,
			MaxRetries:     defaultMaxRetries,
		},
		Output: OutputConfig{
			Dir:     defaultOutputDir,
			Results: true,
			Summary: true,
			HTML:    true,
		},
		Storage: StorageConfig{
			SQLitePath: defaultSQLitePath,
		},
		EventStream: EventStreamConfig{
			Topic: defaultTopic,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
	}
}
