// Package config loads Factgraph configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider identifies an LLM or embedding backend.
type Provider string

const (
	// ProviderOllama is a locally hosted model server.
	ProviderOllama Provider = "ollama"
	// ProviderCloudflare is the Workers AI inference API, keyed by account
	// ID and API token.
	ProviderCloudflare Provider = "cloudflare"
	// ProviderVoyage is the Voyage AI embedding API (embeddings only).
	ProviderVoyage Provider = "voyage"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// LLM completion
	LLMProvider       Provider
	OllamaHost        string
	OllamaModel       string
	CloudflareAccount string
	CloudflareToken   string
	CloudflareModelEN string
	CloudflareModelPL string
	LLMTimeout        time.Duration
	ReportTimeout     time.Duration

	// Embeddings (optional; facts are promoted without vectors when unset)
	EmbedProvider  Provider
	EmbedModel     string
	EmbedDimension int
	VoyageAPIKey   string

	// Item conversion
	ConvertURL   string // document conversion sidecar, empty disables file conversion
	FetchTimeout time.Duration

	// Pipeline caps
	MaxFactsPerItem        int
	MaxPredictions         int
	MaxUnknowns            int
	MaxReasoningIterations int

	// Analysis context block injected into every stage prompt
	AnalysisContext string

	// HTTP server
	ServerPort string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	cfg := Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "factgraph"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "pipeline"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider:       Provider(getEnv("FACTGRAPH_LLM_PROVIDER", "ollama")),
		OllamaHost:        getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "qwen3:30b-a3b"),
		CloudflareAccount: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		CloudflareToken:   getEnv("CLOUDFLARE_API_TOKEN", ""),
		CloudflareModelEN: getEnv("CLOUDFLARE_MODEL_EN", "@cf/meta/llama-3.1-70b-instruct"),
		CloudflareModelPL: getEnv("CLOUDFLARE_MODEL_PL", "@cf/meta/llama-3.1-70b-instruct"),
		LLMTimeout:        getDuration("FACTGRAPH_LLM_TIMEOUT", 120*time.Second),
		ReportTimeout:     getDuration("FACTGRAPH_REPORT_TIMEOUT", 300*time.Second),

		EmbedProvider:  Provider(getEnv("FACTGRAPH_EMBED_PROVIDER", "")),
		EmbedModel:     getEnv("FACTGRAPH_EMBED_MODEL", "all-minilm:l6-v2"),
		EmbedDimension: getInt("FACTGRAPH_EMBED_DIMENSION", 384),
		VoyageAPIKey:   getEnv("VOYAGE_API_KEY", ""),

		ConvertURL:   getEnv("FACTGRAPH_CONVERT_URL", ""),
		FetchTimeout: getDuration("FACTGRAPH_FETCH_TIMEOUT", 10*time.Second),

		MaxFactsPerItem:        getInt("FACTGRAPH_MAX_FACTS_PER_ITEM", 20),
		MaxPredictions:         getInt("FACTGRAPH_MAX_PREDICTIONS", 30),
		MaxUnknowns:            getInt("FACTGRAPH_MAX_UNKNOWNS", 20),
		MaxReasoningIterations: getInt("FACTGRAPH_MAX_REASONING_ITERATIONS", 20),

		AnalysisContext: DefaultAnalysisContext,

		ServerPort: getEnv("FACTGRAPH_SERVER_PORT", "8080"),

		LogFile:  getEnv("FACTGRAPH_LOG_FILE", "/tmp/factgraph.log"),
		LogLevel: parseLogLevel(getEnv("FACTGRAPH_LOG_LEVEL", "INFO")),
	}

	// A context file replaces the built-in analysis context wholesale.
	if path := os.Getenv("FACTGRAPH_CONTEXT_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			cfg.AnalysisContext = string(data)
		} else {
			slog.Warn("failed to read context file, using built-in context", "path", path, "error", err)
		}
	}

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
