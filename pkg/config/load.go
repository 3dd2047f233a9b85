package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from a byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	var config Config

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvironmentOverrides(&config)

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func applyEnvironmentOverrides(config *Config) {
	// Storage DSN overrides
	if dsn := os.Getenv("LAMINA_STORAGE_POSTGRES_DSN"); dsn != "" {
		config.Storage.Postgres.DSN = dsn
	}
	if path := os.Getenv("LAMINA_STORAGE_SQLITE_PATH"); path != "" {
		config.Storage.SQLite.Path = path
	}

	// Working memory path overrides
	if path := os.Getenv("LAMINA_WM_BOLTDB_PATH"); path != "" {
		config.WorkingMemory.BoltDB.Path = path
	}

	// PgVector connection string override
	if connStr := os.Getenv("PGVECTOR_URL"); connStr != "" {
		config.Index.PgVector.ConnectionString = connStr
	}

	// OpenAI API key override
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Provider.OpenAI.APIKey = apiKey
	}
}

// validateConfig validates the configuration and applies defaults.
func validateConfig(config *Config) error {
	// Validate storage configuration
	switch strings.ToLower(config.Storage.Type) {
	case "sqlite", "":
		if config.Storage.SQLite.Path == "" {
			config.Storage.SQLite.Path = "./data/lamina.db"
		}
	case "postgres":
		if config.Storage.Postgres.DSN == "" {
			return fmt.Errorf("postgres DSN is required for postgres storage type")
		}
	case "mock":
		// Mock store doesn't require additional validation
	default:
		return fmt.Errorf("unsupported storage type: %s", config.Storage.Type)
	}

	// Validate working memory configuration
	switch strings.ToLower(config.WorkingMemory.Type) {
	case "sqlite", "":
		if config.WorkingMemory.SQLite.Path == "" {
			// Share the long-term store file unless told otherwise
			config.WorkingMemory.SQLite.Path = config.Storage.SQLite.Path
		}
	case "boltdb":
		if config.WorkingMemory.BoltDB.Path == "" {
			config.WorkingMemory.BoltDB.Path = "./data/lamina.wm.bolt.db"
		}
	case "mock":
		// No additional validation
	default:
		return fmt.Errorf("unsupported working memory type: %s", config.WorkingMemory.Type)
	}

	// Validate index configuration
	switch strings.ToLower(config.Index.Type) {
	case "chromem", "":
		if config.Index.Chromem.Collection == "" {
			config.Index.Chromem.Collection = "memories"
		}
	case "pgvector":
		if config.Index.PgVector.ConnectionString == "" {
			return fmt.Errorf("connection string is required for pgvector index type")
		}
		if config.Index.PgVector.TableName == "" {
			config.Index.PgVector.TableName = "memory_vectors"
		}
		if config.Index.PgVector.Dimensions <= 0 {
			config.Index.PgVector.Dimensions = 1536
		}
		if config.Index.PgVector.DistanceMetric == "" {
			config.Index.PgVector.DistanceMetric = "cosine"
		} else {
			metric := strings.ToLower(config.Index.PgVector.DistanceMetric)
			if metric != "cosine" && metric != "euclidean" && metric != "dot" {
				return fmt.Errorf("unsupported distance metric for pgvector: %s (must be cosine, euclidean, or dot)",
					config.Index.PgVector.DistanceMetric)
			}
		}
	case "mock":
		// No additional validation
	default:
		return fmt.Errorf("unsupported index type: %s", config.Index.Type)
	}

	// Validate provider configuration
	switch strings.ToLower(config.Provider.Type) {
	case "openai":
		// API key can come from the environment, so it is not checked here
		if config.Provider.OpenAI.Model == "" {
			config.Provider.OpenAI.Model = "gpt-4"
		}
		if config.Provider.OpenAI.EmbeddingModel == "" {
			config.Provider.OpenAI.EmbeddingModel = "text-embedding-3-small"
		}
	case "mock", "":
		// No additional validation
	default:
		return fmt.Errorf("unsupported provider type: %s", config.Provider.Type)
	}

	// Breaker defaults
	if config.Provider.Breaker.Enabled {
		if config.Provider.Breaker.MaxFailures == 0 {
			config.Provider.Breaker.MaxFailures = 3
		}
		if config.Provider.Breaker.TimeoutSeconds <= 0 {
			config.Provider.Breaker.TimeoutSeconds = 30
		}
	}

	// Retrieval defaults
	if config.Retrieval.ContextLimit <= 0 {
		config.Retrieval.ContextLimit = 5
	}
	if config.Retrieval.ContextThreshold <= 0 || config.Retrieval.ContextThreshold > 1.0 {
		config.Retrieval.ContextThreshold = 0.6
	}

	return nil
}
