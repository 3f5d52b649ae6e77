package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// DefaultExtensions is the file extension allow-list used when the config
// does not override it. It mirrors the languages worth embedding.
var DefaultExtensions = []string{
	".py", ".js", ".tsx", ".jsx", ".ipynb", ".java",
	".cpp", ".ts", ".go", ".rs", ".vue", ".swift", ".c", ".h",
}

// DefaultIgnoreDirs is the directory deny-list used when the config does
// not override it. These hold generated code, dependencies, or VCS data.
var DefaultIgnoreDirs = []string{
	"node_modules", "venv", "env", "dist", "build", ".git",
	"__pycache__", ".next", ".vscode", "vendor",
}

// Load loads configuration from a YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SERVER_PORT, LLM_PROVIDER, EMBEDDINGS_API_KEY, ...)
//  2. YAML config file (~/.config/repochat/config.yaml by default)
//  3. Hardcoded defaults
//
// Environment variables map to config keys by splitting on the first
// underscore: SERVER_PORT -> server.port, EMBEDDINGS_API_KEY ->
// embeddings.api_key. A missing config file is not an error.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "repochat", "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Environment overrides. SERVER_PORT -> server.port,
	// EMBEDDINGS_API_KEY -> embeddings.api_key.
	if err := k.Load(env.Provider("", ".", func(s string) string {
		lower := strings.ToLower(s)
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	// Chromem is the default store: embedded, no external service.
	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = "chromem"
	}
	if cfg.VectorStore.Chromem.Path == "" {
		cfg.VectorStore.Chromem.Path = "~/.config/repochat/vectorstore"
	}
	if cfg.VectorStore.Qdrant.Host == "" {
		cfg.VectorStore.Qdrant.Host = "localhost"
	}
	if cfg.VectorStore.Qdrant.Port == 0 {
		cfg.VectorStore.Qdrant.Port = 6334
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "openai"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "text-embedding-3-small"
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "groq"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama-3.3-70b-versatile"
	}
	if cfg.LLM.TopK == 0 {
		cfg.LLM.TopK = 5
	}

	if cfg.Indexing.BatchSize == 0 {
		cfg.Indexing.BatchSize = 10
	}
	if cfg.Indexing.MaxTokens == 0 {
		cfg.Indexing.MaxTokens = 4000
	}
	if cfg.Indexing.OverlapLines == 0 {
		cfg.Indexing.OverlapLines = 200
	}
	if len(cfg.Indexing.Extensions) == 0 {
		cfg.Indexing.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if len(cfg.Indexing.IgnoreDirs) == 0 {
		cfg.Indexing.IgnoreDirs = append([]string(nil), DefaultIgnoreDirs...)
	}

	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "~/.config/repochat/repositories.json"
	}
}
