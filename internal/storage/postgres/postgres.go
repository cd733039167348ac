// Package postgres is the horizontally-scalable storage.Store backend,
// built on jackc/pgx/v5 for the pool. Unlike the sqlite backend it applies
// its embedded schema directly rather than through golang-migrate, mirroring
// how the source project treats Postgres as an already-provisioned target.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

type Store struct {
	pool   *pgxpool.Pool
	logger storage.Logger

	nonceCap   int
	nonceEvict int
}

type Options struct {
	NonceCap   int
	NonceEvict int
}

func New(ctx context.Context, dsn string, logger storage.Logger, opts Options) (*Store, error) {
	if logger == nil {
		logger = storage.NopLogger{}
	}
	if opts.NonceCap <= 0 {
		opts.NonceCap = 1000
	}
	if opts.NonceEvict <= 0 {
		opts.NonceEvict = 20
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	store := &Store{pool: pool, logger: logger, nonceCap: opts.NonceCap, nonceEvict: opts.NonceEvict}

	if err := store.applySchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return store, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// withTx runs fn inside a transaction, retrying the whole attempt on a
// serialization/deadlock failure with the same backoff policy the sqlite
// backend applies to SQLITE_BUSY (§4.6).
func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return storage.RetryBusy(ctx, isBusy, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

// isBusy classifies Postgres serialization and deadlock failures
// (SQLSTATE 40001/40P01) as retryable under the busy/locked policy of
// §4.6.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock detected") || strings.Contains(msg, "could not serialize access")
}

// applySchema executes the embedded schema once; a table already existing
// is treated as "already provisioned" rather than a failure, since this
// backend is meant to run against a database an operator sets up once.
func (s *Store) applySchema(ctx context.Context) error {
	sql, err := migrationFiles.ReadFile("migrations/0001_init.up.sql")
	if err != nil {
		return fmt.Errorf("read embedded schema: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			s.logger.Debug("schema already provisioned")
			return nil
		}
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}
