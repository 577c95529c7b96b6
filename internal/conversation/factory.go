package conversation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Driver   Driver
	MaxTurns int
	// DB backs the sqlite driver.
	DB *sql.DB
	// RedisURL backs the redis driver, e.g. redis://localhost:6379/0.
	RedisURL string
	// IdleTTL bounds how long an untouched redis session lives.
	IdleTTL time.Duration
}

// New opens the history store for the configured driver.
func New(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemoryStore(cfg.MaxTurns), nil
	case DriverSQLite:
		if cfg.DB == nil {
			return nil, fmt.Errorf("sqlite history driver requires a database")
		}
		return NewSQLiteStore(cfg.DB, cfg.MaxTurns)
	case DriverRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return NewRedisStore(redis.NewClient(opts), cfg.MaxTurns, cfg.IdleTTL), nil
	default:
		return nil, fmt.Errorf("unknown history driver: %s", cfg.Driver)
	}
}
