// Package store opens and owns the optional Postgres pool used by the
// code archive. The dedup ledger itself never touches storage; this pool
// exists only for observability history.
package store

import (
	"context"
	"time"

	perr "invitehound/internal/platform/errors"
	"invitehound/internal/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config describes the Postgres connection
type Config struct {
	// Enabled gates the whole store; when false Open returns a nil-pool Store
	Enabled  bool
	URL      string
	MaxConns int32
}

// Store holds the live pool, nil when the store is disabled
type Store struct {
	Pool *pgxpool.Pool
	log  logger.Logger
}

// Enabled reports whether a pool is available
func (s *Store) Enabled() bool { return s != nil && s.Pool != nil }

// Open connects to Postgres and verifies the connection with a bounded
// ping-retry loop so a dependency that is still starting does not fail boot
func Open(ctx context.Context, cfg Config) (*Store, error) {
	s := &Store{log: *logger.Named("store")}
	if !cfg.Enabled {
		return s, nil
	}

	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "bad postgres url")
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "postgres pool open failed")
	}

	const (
		maxAttempts    = 20
		pingTimeout    = 3 * time.Second
		backoffStart   = 150 * time.Millisecond
		backoffCeiling = 2 * time.Second
	)

	var lastErr error
	backoff := backoffStart
	for i := 0; i < maxAttempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = pool.Ping(toCtx)
		cancel()

		if lastErr == nil {
			s.Pool = pool
			s.log.Info().Int32("max_conns", pcfg.MaxConns).Msg("postgres ready")
			return s, nil
		}
		if ctx.Err() != nil {
			pool.Close()
			return nil, ctx.Err()
		}
		time.Sleep(backoff)
		if backoff < backoffCeiling {
			backoff *= 2
			if backoff > backoffCeiling {
				backoff = backoffCeiling
			}
		}
	}

	pool.Close()
	return nil, perr.Wrapf(lastErr, perr.ErrorCodeUnavailable, "postgres ping failed after %d attempts", maxAttempts)
}

// Close releases the pool if one was opened
func (s *Store) Close() {
	if s.Enabled() {
		s.Pool.Close()
	}
}
