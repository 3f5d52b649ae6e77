// Package config provides configuration loading for repochat.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. Defaults are chosen so that a fresh checkout works against an
// embedded vector store without any configuration at all.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Secret is a string that redacts itself in logs and serialized output.
// API keys must always be carried as Secret, never as plain string.
type Secret string

// String implements fmt.Stringer. Always returns a redacted value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return "Secret([REDACTED])"
}

// Value returns the actual secret value. Use sparingly.
func (s Secret) Value() string {
	return string(s)
}

// IsSet returns true if the secret has a non-empty value.
func (s Secret) IsSet() bool {
	return s != ""
}

// MarshalJSON implements json.Marshaler. Always returns a redacted value.
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("[REDACTED]")
}

// Config holds the complete repochat configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	LLM         LLMConfig         `koanf:"llm"`
	Indexing    IndexingConfig    `koanf:"indexing"`
	Registry    RegistryConfig    `koanf:"registry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	// Provider is "chromem" (embedded, default) or "qdrant".
	Provider string        `koanf:"provider"`
	Chromem  ChromemConfig `koanf:"chromem"`
	Qdrant   QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	// Path is the persistence directory. Empty means in-memory only.
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// QdrantConfig configures the external Qdrant gRPC store.
type QdrantConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	UseTLS bool   `koanf:"use_tls"`
	APIKey Secret `koanf:"api_key"`
}

// EmbeddingsConfig configures the embedding provider chain.
type EmbeddingsConfig struct {
	// Provider is "openai" or "huggingface".
	Provider string `koanf:"provider"`
	// Model is the embedding model name. The model determines the vector
	// dimension via embeddings.DimensionForModel.
	Model string `koanf:"model"`
	// BaseURL overrides the provider endpoint (TEI server for huggingface,
	// OpenAI-compatible endpoint for openai).
	BaseURL string `koanf:"base_url"`
	APIKey  Secret `koanf:"api_key"`
	// Fallback optionally names a second provider tried when the primary
	// fails. The fallback model must produce the same vector dimension.
	Fallback FallbackConfig `koanf:"fallback"`
}

// FallbackConfig names an explicit secondary embedding provider.
type FallbackConfig struct {
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	APIKey   Secret `koanf:"api_key"`
}

// Enabled reports whether a fallback provider is configured.
func (f FallbackConfig) Enabled() bool {
	return f.Provider != ""
}

// LLMConfig configures the chat completion provider.
type LLMConfig struct {
	// Provider is "groq", "openai" or "anthropic".
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	APIKey   Secret `koanf:"api_key"`
	// TopK is the number of code chunks retrieved per question.
	TopK int `koanf:"top_k"`
}

// IndexingConfig configures the indexing pipeline.
type IndexingConfig struct {
	// BatchSize is the number of files processed per batch.
	BatchSize int `koanf:"batch_size"`
	// MaxTokens is the token budget per chunk.
	MaxTokens int `koanf:"max_tokens"`
	// OverlapLines is the number of trailing lines carried into the next
	// chunk by the line-based splitter.
	OverlapLines int `koanf:"overlap_lines"`
	// Extensions is the file extension allow-list (with leading dot).
	Extensions []string `koanf:"extensions"`
	// IgnoreDirs is the directory name deny-list.
	IgnoreDirs []string `koanf:"ignore_dirs"`
}

// RegistryConfig configures the repository registry.
type RegistryConfig struct {
	// Path is the JSON file backing the namespace→URL registry.
	Path string `koanf:"path"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("unsupported vectorstore provider: %q (supported: chromem, qdrant)", c.VectorStore.Provider)
	}
	if c.VectorStore.Provider == "qdrant" {
		if c.VectorStore.Qdrant.Port < 1 || c.VectorStore.Qdrant.Port > 65535 {
			return fmt.Errorf("invalid qdrant port: %d", c.VectorStore.Qdrant.Port)
		}
	}
	switch c.Embeddings.Provider {
	case "openai", "huggingface":
	default:
		return fmt.Errorf("unsupported embedding provider: %q (supported: openai, huggingface)", c.Embeddings.Provider)
	}
	switch c.LLM.Provider {
	case "groq", "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported llm provider: %q (supported: groq, openai, anthropic)", c.LLM.Provider)
	}
	if c.Indexing.BatchSize < 1 || c.Indexing.BatchSize > 100 {
		return fmt.Errorf("batch size must be 1-100, got %d", c.Indexing.BatchSize)
	}
	if c.Indexing.MaxTokens < 1 {
		return fmt.Errorf("max tokens must be positive, got %d", c.Indexing.MaxTokens)
	}
	if c.Indexing.OverlapLines < 0 {
		return fmt.Errorf("overlap lines cannot be negative, got %d", c.Indexing.OverlapLines)
	}
	if c.Registry.Path == "" {
		return errors.New("registry path required")
	}
	return nil
}
