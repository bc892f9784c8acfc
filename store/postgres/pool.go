// Package postgres implements store.Store against a real Postgres
// database, using pgx directly (no database/sql) the way the teacher
// repository's storage package does. Context/event placement is
// transactional and survives process restarts; AppendEvent retries on
// serialization conflicts up to Config.MaxAppendRetries times.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/log/zerologadapter"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scabbardhq/consensus-store/store"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, letting
// context_store.go and event_store.go's helpers run unmodified whether or
// not they are inside an explicit transaction.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgx.CommandTag, error)
}

// Store is a store.Store backed by a pgxpool.Pool. It additionally keeps a
// striped per-(service_id, epoch) in-process mutex (locks.go) ahead of the
// database transaction, and an optional local shadow log (shadowlog.go) of
// committed event headers for operator diagnostics.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
	cfg    Config

	locks *keyLocks

	shadow *shadowLog
}

// New opens a pgxpool against cfg.DSN and wires a zerolog-backed pgx query
// logger, mirroring how the teacher repository threads its logger into its
// Postgres client. It does not call EnsureSchema; callers that want
// auto-bootstrapping should call it explicitly after New.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, store.Internal(err, "failed to parse postgres dsn")
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.ConnConfig.Logger = zerologadapter.NewLogger(logger)

	if cfg.StatementTimeout > 0 {
		ms := cfg.StatementTimeout.Milliseconds()
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = itoa(ms)
	}

	pool, err := pgxpool.ConnectConfig(ctx, poolCfg)
	if err != nil {
		return nil, store.Internal(err, "failed to connect to postgres")
	}

	s := &Store{
		pool:   pool,
		logger: logger,
		cfg:    cfg,
		locks:  newKeyLocks(),
	}

	if cfg.ShadowLogDir != "" {
		sl, err := openShadowLog(cfg.ShadowLogDir)
		if err != nil {
			pool.Close()
			return nil, store.Internal(err, "failed to open shadow log at %s", cfg.ShadowLogDir)
		}
		s.shadow = sl
	}

	return s, nil
}

// NewFromEnv is a convenience wrapper: it reads Config from SCABBARD_STORE_*
// environment variables and passes zerolog's global logger to New.
func NewFromEnv(ctx context.Context) (*Store, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, store.Internal(err, "failed to load postgres config from environment")
	}
	return New(ctx, cfg, log.Logger)
}

// Close releases the pool and any shadow log handle. Safe to call once.
func (s *Store) Close() {
	if s.shadow != nil {
		_ = s.shadow.Close()
	}
	s.pool.Close()
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
