package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/stepgraph/internal/retry"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/config"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/runstore"
)

// EnvPrefix marks environment variables that override file settings.
const EnvPrefix = "STEPGRAPH_"

// Run store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config controls the HTTP server and its run store.
type Config struct {
	Addr            string        `mapstructure:"addr"`
	Store           string        `mapstructure:"store"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	RedisPrefix     string        `mapstructure:"redis_prefix"`
	RedisTTL        time.Duration `mapstructure:"redis_ttl"`
	DefaultMaxSteps int           `mapstructure:"default_max_steps"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`

	// SaveAttempts and SaveBackoff control retries of failed run saves.
	SaveAttempts int           `mapstructure:"save_attempts"`
	SaveBackoff  time.Duration `mapstructure:"save_backoff"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8000",
		Store:           StoreMemory,
		SQLitePath:      "stepgraph.db",
		RedisAddr:       "localhost:6379",
		RedisPrefix:     runstore.DefaultRedisPrefix,
		DefaultMaxSteps: 50,
		ShutdownTimeout: 5 * time.Second,
		AllowedOrigins:  []string{"*"},
		SaveAttempts:    3,
		SaveBackoff:     100 * time.Millisecond,
	}
}

// LoadConfig layers the defaults, the optional file at path and the
// STEPGRAPH_* entries of environ, in that order, then validates the result.
func LoadConfig(path string, environ []string) (Config, error) {
	cfg := DefaultConfig()

	layered := config.New(nil)
	if path != "" {
		fileCfg, err := config.FromFile(path)
		if err != nil {
			return Config{}, err
		}
		layered = fileCfg
	}
	layered = layered.Merge(config.FromEnv(EnvPrefix, environ))

	if err := layered.Decode(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite_path is required for the sqlite store"))
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis_addr is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want memory, sqlite or redis)", c.Store))
	}
	if c.DefaultMaxSteps < 1 {
		errs = append(errs, fmt.Errorf("default_max_steps must be at least 1, got %d", c.DefaultMaxSteps))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("shutdown_timeout must not be negative"))
	}
	if c.SaveAttempts < 1 {
		errs = append(errs, fmt.Errorf("save_attempts must be at least 1, got %d", c.SaveAttempts))
	}
	if c.SaveBackoff < 0 {
		errs = append(errs, errors.New("save_backoff must not be negative"))
	}
	return errors.Join(errs...)
}

// OpenRunStore creates the configured run store. Redis stores are pinged
// so a bad address fails at startup.
func (c Config) OpenRunStore(ctx context.Context) (runstore.Store, error) {
	switch c.Store {
	case StoreMemory:
		return runstore.NewMemoryStore(), nil
	case StoreSQLite:
		return runstore.NewSQLiteStore(c.SQLitePath)
	case StoreRedis:
		store := runstore.NewRedisStore(c.RedisAddr, c.RedisPassword, c.RedisDB,
			runstore.WithPrefix(c.RedisPrefix),
			runstore.WithTTL(c.RedisTTL))
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store %q", c.Store)
	}
}

// saveRetry is the retry policy for run saves. Closed stores and invalid
// runs fail immediately.
func (c Config) saveRetry() retry.Config {
	cfg := retry.Default
	cfg.Attempts = c.SaveAttempts
	cfg.Backoff = c.SaveBackoff
	cfg.Retryable = func(err error) bool {
		if errors.Is(err, runstore.ErrStoreClosed) || errors.Is(err, runstore.ErrInvalidRun) {
			return false
		}
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return cfg
}
