package config

// Config represents the top-level configuration for the Lamina memory engine.
type Config struct {
	// Storage configures the long-term memory persistence backend
	Storage StorageConfig `yaml:"storage"`

	// WorkingMemory configures the per-session working memory backend
	WorkingMemory WorkingMemoryConfig `yaml:"working_memory"`

	// Index configures the vector similarity index
	Index IndexConfig `yaml:"index"`

	// Provider configures the text/embedding generation provider
	Provider ProviderConfig `yaml:"provider"`

	// Retrieval configures relevance-retrieval defaults
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Logging configures the logging behavior
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig configures long-term memory persistence.
type StorageConfig struct {
	// Type specifies the persistence backend ("sqlite", "postgres", "mock")
	Type string `yaml:"type"`

	// SQLite configures SQLite-based persistence
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres configures PostgreSQL-based persistence
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig configures SQLite-based storage.
type SQLiteConfig struct {
	// Path is the database file path
	Path string `yaml:"path"`
}

// PostgresConfig configures PostgreSQL-based storage.
type PostgresConfig struct {
	// DSN is the data source name (connection string)
	DSN string `yaml:"dsn"`
}

// WorkingMemoryConfig configures the working memory store.
type WorkingMemoryConfig struct {
	// Type specifies the working memory backend ("sqlite", "boltdb", "mock")
	Type string `yaml:"type"`

	// SQLite configures SQLite-backed working memory
	SQLite SQLiteConfig `yaml:"sqlite"`

	// BoltDB configures BoltDB-backed working memory
	BoltDB BoltDBConfig `yaml:"boltdb"`
}

// BoltDBConfig configures BoltDB-backed working memory.
type BoltDBConfig struct {
	// Path is the database file path
	Path string `yaml:"path"`
}

// IndexConfig configures the vector similarity index.
type IndexConfig struct {
	// Type specifies the index backend ("chromem", "pgvector", "mock")
	Type string `yaml:"type"`

	// Chromem configures embedded chromem-go vector storage
	Chromem ChromemConfig `yaml:"chromem"`

	// PgVector configures PostgreSQL pgvector storage
	PgVector PgVectorConfig `yaml:"pgvector"`
}

// ChromemConfig configures embedded chromem-go vector storage.
type ChromemConfig struct {
	// Collection is the collection name to use
	Collection string `yaml:"collection"`

	// StoragePath is the path for on-disk persistent storage (if empty, in-memory is used)
	StoragePath string `yaml:"storage_path"`
}

// PgVectorConfig configures PostgreSQL with the pgvector extension.
type PgVectorConfig struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string `yaml:"connection_string"`

	// TableName is the name of the table to use
	TableName string `yaml:"table_name"`

	// Dimensions specifies the embedding dimensions
	Dimensions int `yaml:"dimensions"`

	// DistanceMetric is the distance metric to use (cosine, euclidean, dot)
	DistanceMetric string `yaml:"distance_metric"`
}

// ProviderConfig configures the generation provider (LLM + embeddings).
type ProviderConfig struct {
	// Type is the provider ("openai", "mock")
	Type string `yaml:"type"`

	// OpenAI configures OpenAI integration
	OpenAI OpenAIConfig `yaml:"openai"`

	// Breaker configures the circuit breaker wrapped around provider calls
	Breaker BreakerConfig `yaml:"breaker"`

	// RequestsPerSecond rate-limits provider calls; zero disables limiting
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// OpenAIConfig configures OpenAI integration.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key
	APIKey string `yaml:"api_key"`

	// Model is the OpenAI model to use for chat/completion
	Model string `yaml:"model"`

	// EmbeddingModel is the model to use for generating embeddings
	EmbeddingModel string `yaml:"embedding_model"`

	// MaxTokens is the maximum number of tokens to generate
	MaxTokens int `yaml:"max_tokens"`

	// Temperature controls randomness in generation (0.0-1.0)
	Temperature float64 `yaml:"temperature"`
}

// BreakerConfig configures the provider circuit breaker.
type BreakerConfig struct {
	// Enabled turns the breaker on
	Enabled bool `yaml:"enabled"`

	// MaxFailures is the consecutive-failure count that opens the circuit
	MaxFailures uint32 `yaml:"max_failures"`

	// TimeoutSeconds is how long the circuit stays open before half-open probing
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// RetrievalConfig configures relevance-retrieval defaults.
type RetrievalConfig struct {
	// ContextLimit is the number of memories assembled into relevant context
	ContextLimit int `yaml:"context_limit"`

	// ContextThreshold is the minimum similarity for context memories
	ContextThreshold float64 `yaml:"context_threshold"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level is the logging level ("debug", "info", "warn", "error")
	Level string `yaml:"level"`

	// Format is the output format ("text", "json")
	Format string `yaml:"format"`
}
