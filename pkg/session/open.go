package session

import (
	"context"

	"github.com/matzehuels/lanegrid/pkg/errors"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend       string `json:"backend" toml:"backend" yaml:"backend"`
	Dir           string `json:"dir" toml:"dir" yaml:"dir"`
	RedisAddr     string `json:"redis_addr" toml:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `json:"redis_password" toml:"redis_password" yaml:"redis_password"`
	RedisDB       int    `json:"redis_db" toml:"redis_db" yaml:"redis_db"`
	MongoURI      string `json:"mongo_uri" toml:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string `json:"mongo_database" toml:"mongo_database" yaml:"mongo_database"`
}

// DefaultConfig uses the file backend in DefaultDir.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendFile,
		RedisAddr:     "localhost:6379",
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: DefaultMongoDatabase,
	}
}

// Open creates the configured store, wrapped with Observe.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendMemory:
		s = NewMemoryStore()
	case BackendFile, "":
		s, err = NewFileStore(cfg.Dir)
	case BackendRedis:
		s, err = NewRedisStore(ctx, RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	case BackendMongo:
		s, err = NewMongoStore(ctx, MongoConfig{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	backend := cfg.Backend
	if backend == "" {
		backend = BackendFile
	}
	return Observe(s, backend), nil
}
