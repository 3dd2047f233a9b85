package lamina

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	bolt "go.etcd.io/bbolt"

	"github.com/lamina-mem/lamina/pkg/config"
	"github.com/lamina-mem/lamina/pkg/convo"
	convomock "github.com/lamina-mem/lamina/pkg/convo/adapters/mock"
	convosqlite "github.com/lamina-mem/lamina/pkg/convo/adapters/sqlite"
	"github.com/lamina-mem/lamina/pkg/engine"
	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/index"
	indexchromem "github.com/lamina-mem/lamina/pkg/index/adapters/chromem"
	indexmock "github.com/lamina-mem/lamina/pkg/index/adapters/mock"
	indexpgvector "github.com/lamina-mem/lamina/pkg/index/adapters/pgvector"
	"github.com/lamina-mem/lamina/pkg/log"
	"github.com/lamina-mem/lamina/pkg/mem/ltm"
	ltmmock "github.com/lamina-mem/lamina/pkg/mem/ltm/adapters/mock"
	ltmpostgres "github.com/lamina-mem/lamina/pkg/mem/ltm/adapters/postgres"
	ltmsqlite "github.com/lamina-mem/lamina/pkg/mem/ltm/adapters/sqlite"
	"github.com/lamina-mem/lamina/pkg/mem/wm"
	wmboltdb "github.com/lamina-mem/lamina/pkg/mem/wm/adapters/boltdb"
	wmmock "github.com/lamina-mem/lamina/pkg/mem/wm/adapters/mock"
	wmsqlite "github.com/lamina-mem/lamina/pkg/mem/wm/adapters/sqlite"
	"github.com/lamina-mem/lamina/pkg/reasoning"
	reasoningmock "github.com/lamina-mem/lamina/pkg/reasoning/adapters/mock"
	reasoningopenai "github.com/lamina-mem/lamina/pkg/reasoning/adapters/openai"
)

// Client is the assembled memory system: the engine plus the conversation
// history it extracts from. All engine operations are promoted onto the
// client.
type Client struct {
	*engine.Engine

	history convo.History
}

// NewClient assembles a client from explicit collaborators.
func NewClient(eng *engine.Engine, history convo.History) *Client {
	return &Client{Engine: eng, history: history}
}

// AppendMessage stores a conversation turn so a later extraction pass can
// mine it for memories.
func (c *Client) AppendMessage(ctx context.Context, message convo.Message) (string, error) {
	return c.history.Append(ctx, message)
}

// NewClientFromConfig builds a fully wired client from a configuration
// file. This is the convenience entry point for commands and embedders.
func NewClientFromConfig(ctx context.Context, configPath string) (*Client, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	return NewClientFromParsedConfig(ctx, cfg)
}

// NewClientFromParsedConfig builds a fully wired client from an
// already-loaded configuration.
func NewClientFromParsedConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	logCfg := log.DefaultConfig()
	if cfg.Logging.Level != "" {
		logCfg.Level = log.Level(cfg.Logging.Level)
	}
	if cfg.Logging.Format != "" {
		logCfg.Format = log.Format(cfg.Logging.Format)
	}
	log.Setup(logCfg)

	ltmStore, err := initLTMStore(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize long-term memory store")
	}

	wmStore, err := initWMStore(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize working memory store")
	}

	history, err := initHistory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize conversation history")
	}

	vectorIndex, err := initIndex(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize vector index")
	}

	reasoningEngine, err := initReasoningEngine(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize reasoning engine")
	}

	eng, err := engine.NewEngine(engine.Config{
		LTM:              ltmStore,
		WM:               wmStore,
		History:          history,
		Index:            vectorIndex,
		Reasoning:        reasoningEngine,
		ContextLimit:     cfg.Retrieval.ContextLimit,
		ContextThreshold: cfg.Retrieval.ContextThreshold,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Lamina client initialized from config",
		"storage_type", cfg.Storage.Type,
		"working_memory_type", cfg.WorkingMemory.Type,
		"index_type", cfg.Index.Type,
		"provider_type", cfg.Provider.Type,
	)

	return NewClient(eng, history), nil
}

// ensureDir creates the parent directory for a database file.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}

// initLTMStore initializes the long-term memory store from configuration.
func initLTMStore(cfg *config.Config) (ltm.Store, error) {
	storageType := strings.ToLower(cfg.Storage.Type)
	log.Info("Initializing long-term memory store", "type", storageType)

	switch storageType {
	case "mock":
		return ltmmock.NewMockStore(), nil

	case "sqlite", "":
		if err := ensureDir(cfg.Storage.SQLite.Path); err != nil {
			return nil, errors.Classify(errors.ErrStorage, err, "failed to create directory for sqlite database")
		}
		return ltmsqlite.NewSQLiteStore(cfg.Storage.SQLite.Path)

	case "postgres":
		db, err := sqlx.Connect("postgres", cfg.Storage.Postgres.DSN)
		if err != nil {
			return nil, errors.Classify(errors.ErrStorage, err, "failed to connect to PostgreSQL")
		}
		store := ltmpostgres.NewPostgresStore(db)
		if err := store.Initialize(context.Background()); err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, errors.Wrap(errors.ErrValidation, "unknown storage type %q", cfg.Storage.Type)
	}
}

// initWMStore initializes the working memory store from configuration.
func initWMStore(cfg *config.Config) (wm.Store, error) {
	wmType := strings.ToLower(cfg.WorkingMemory.Type)
	log.Info("Initializing working memory store", "type", wmType)

	switch wmType {
	case "mock":
		return wmmock.NewMockStore(), nil

	case "sqlite", "":
		if err := ensureDir(cfg.WorkingMemory.SQLite.Path); err != nil {
			return nil, errors.Classify(errors.ErrStorage, err, "failed to create directory for sqlite database")
		}
		return wmsqlite.NewSQLiteStore(cfg.WorkingMemory.SQLite.Path)

	case "boltdb":
		if err := ensureDir(cfg.WorkingMemory.BoltDB.Path); err != nil {
			return nil, errors.Classify(errors.ErrStorage, err, "failed to create directory for boltdb database")
		}
		db, err := bolt.Open(cfg.WorkingMemory.BoltDB.Path, 0600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, errors.Classify(errors.ErrStorage, err, "failed to open boltdb database")
		}
		return wmboltdb.NewBoltStore(db)

	default:
		return nil, errors.Wrap(errors.ErrValidation, "unknown working memory type %q", cfg.WorkingMemory.Type)
	}
}

// initHistory initializes conversation storage. It rides along with the
// relational storage choice: sqlite storage shares the database file, any
// other choice gets the in-memory adapter.
func initHistory(cfg *config.Config) (convo.History, error) {
	if strings.ToLower(cfg.Storage.Type) == "sqlite" {
		if err := ensureDir(cfg.Storage.SQLite.Path); err != nil {
			return nil, errors.Classify(errors.ErrStorage, err, "failed to create directory for sqlite database")
		}
		return convosqlite.NewSQLiteHistory(cfg.Storage.SQLite.Path)
	}
	return convomock.NewMockHistory(), nil
}

// initIndex initializes the vector index from configuration.
func initIndex(ctx context.Context, cfg *config.Config) (index.Index, error) {
	indexType := strings.ToLower(cfg.Index.Type)
	log.Info("Initializing vector index", "type", indexType)

	switch indexType {
	case "mock":
		return indexmock.NewMockIndex(), nil

	case "chromem", "":
		return indexchromem.NewChromemIndex(indexchromem.Config{
			Collection:  cfg.Index.Chromem.Collection,
			StoragePath: cfg.Index.Chromem.StoragePath,
		})

	case "pgvector":
		return indexpgvector.NewPgvectorIndex(ctx, indexpgvector.Config{
			ConnectionString: cfg.Index.PgVector.ConnectionString,
			TableName:        cfg.Index.PgVector.TableName,
			Dimensions:       cfg.Index.PgVector.Dimensions,
			DistanceMetric:   cfg.Index.PgVector.DistanceMetric,
		})

	default:
		return nil, errors.Wrap(errors.ErrValidation, "unknown index type %q", cfg.Index.Type)
	}
}

// initReasoningEngine initializes the generation provider, wrapping it with
// the configured rate limiter and circuit breaker.
func initReasoningEngine(cfg *config.Config) (reasoning.Engine, error) {
	providerType := strings.ToLower(cfg.Provider.Type)
	log.Info("Initializing reasoning engine", "provider", providerType)

	var eng reasoning.Engine
	var err error

	switch providerType {
	case "mock", "":
		eng = reasoningmock.NewMockEngine(reasoningmock.WithDeterministicEmbeddings())

	case "openai":
		eng, err = reasoningopenai.NewOpenAIAdapter(reasoningopenai.Config{
			APIKey:         cfg.Provider.OpenAI.APIKey,
			ChatModel:      cfg.Provider.OpenAI.Model,
			EmbeddingModel: cfg.Provider.OpenAI.EmbeddingModel,
		})
		if err != nil {
			return nil, err
		}

	default:
		return nil, errors.Wrap(errors.ErrValidation, "unknown provider type %q", cfg.Provider.Type)
	}

	if cfg.Provider.RequestsPerSecond > 0 {
		eng = reasoning.NewRateLimitedEngine(eng, cfg.Provider.RequestsPerSecond)
	}

	if cfg.Provider.Breaker.Enabled {
		eng = reasoning.NewBreakerEngine(eng, reasoning.BreakerConfig{
			MaxFailures: cfg.Provider.Breaker.MaxFailures,
			Timeout:     time.Duration(cfg.Provider.Breaker.TimeoutSeconds) * time.Second,
		})
	}

	return eng, nil
}
