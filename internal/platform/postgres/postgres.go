// Package postgres opens the shared GORM handle used by the order, catalog and operator stores.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotConfigured is returned by Open when POSTGRES_DSN is unset.
var ErrNotConfigured = errors.New("postgres: POSTGRES_DSN not set")

// Options tunes the connection pool and query logging.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
	// SlowQuery is the threshold above which statements are logged at warn level.
	SlowQuery time.Duration
	Logger    *slog.Logger
}

// DefaultOptions sizes the pool for one API replica and a worker sharing the database.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		PingTimeout:     5 * time.Second,
		SlowQuery:       500 * time.Millisecond,
	}
}

// OptionsFromEnv overlays POSTGRES_MAX_OPEN_CONNS, POSTGRES_MAX_IDLE_CONNS and
// POSTGRES_CONN_MAX_LIFETIME on the defaults. Unparseable values keep the default.
func OptionsFromEnv(logger *slog.Logger) Options {
	opts := DefaultOptions()
	opts.Logger = logger
	if n, err := strconv.Atoi(os.Getenv("POSTGRES_MAX_OPEN_CONNS")); err == nil && n > 0 {
		opts.MaxOpenConns = n
	}
	if n, err := strconv.Atoi(os.Getenv("POSTGRES_MAX_IDLE_CONNS")); err == nil && n >= 0 {
		opts.MaxIdleConns = n
	}
	if d, err := time.ParseDuration(os.Getenv("POSTGRES_CONN_MAX_LIFETIME")); err == nil && d > 0 {
		opts.ConnMaxLifetime = d
	}
	return opts
}

// Connect opens the pool, applies opts and pings the server. Driver errors are translated so
// stores can match gorm.ErrDuplicatedKey on idempotency-key races. The returned func closes the pool.
func Connect(ctx context.Context, dsn string, opts Options) (*gorm.DB, func(), error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, nil, ErrNotConfigured
	}
	cfg := &gorm.Config{TranslateError: true}
	if opts.Logger != nil {
		cfg.Logger = gormlogger.New(slogWriter{opts.Logger}, gormlogger.Config{
			SlowThreshold:             opts.SlowQuery,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}
	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open order database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("unwrap order database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("ping order database: %w", err)
	}
	return db, func() { _ = sqlDB.Close() }, nil
}

// Open connects using POSTGRES_DSN and the pool settings from the environment.
func Open(ctx context.Context, logger *slog.Logger) (*gorm.DB, func(), error) {
	db, closeFn, err := Connect(ctx, os.Getenv("POSTGRES_DSN"), OptionsFromEnv(logger))
	if err != nil {
		return nil, func() {}, err
	}
	if logger != nil {
		logger.Info("postgres connection established")
	}
	return db, closeFn, nil
}

// slogWriter feeds GORM's printf-style logger into slog.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Printf(format string, args ...any) {
	w.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), slog.String("component", "gorm"))
}
