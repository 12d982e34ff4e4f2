// Package api provides an HTTP API server for submitting benchmark runs and
// inspecting their results.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// SkipInvalid drops submitted prompt items that fail validation instead
	// of recording them as invalid results.
	SkipInvalid bool
}
