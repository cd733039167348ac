package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

func (s *Store) LookupNonce(ctx context.Context, value string) (uint64, bool, error) {
	var nc int64
	err := s.pool.QueryRow(ctx, `SELECT nc FROM nonce WHERE value = $1`, value).Scan(&nc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, kerr.NewStorageErr(false, "lookup nonce", err)
	}
	return uint64(nc), true, nil
}

func (s *Store) AdvanceNonce(ctx context.Context, value string, newNC uint64) error {
	cmd, err := s.pool.Exec(ctx, `UPDATE nonce SET nc = $1 WHERE value = $2`, int64(newNC), value)
	if err != nil {
		return kerr.NewStorageErr(false, "advance nonce", err)
	}
	if cmd.RowsAffected() == 0 {
		return kerr.ErrNotFound
	}
	return nil
}

// IssueNonce creates a fresh nonce row and, in the same transaction,
// evicts the oldest batch once the table has grown past its cap (§4.6's
// eviction policy).
func (s *Store) IssueNonce(ctx context.Context) (string, error) {
	var value string
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		v, err := storage.NewNonceValue()
		if err != nil {
			return kerr.NewStorageErr(false, "generate nonce", err)
		}
		value = v

		if _, err := tx.Exec(ctx, `INSERT INTO nonce (value, nc) VALUES ($1, 0)`, value); err != nil {
			return kerr.NewStorageErr(false, "insert nonce", err)
		}

		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM nonce`).Scan(&count); err != nil {
			return kerr.NewStorageErr(false, "count nonces", err)
		}
		if count > s.nonceCap {
			if _, err := tx.Exec(ctx, `
				DELETE FROM nonce WHERE value IN (
					SELECT value FROM nonce ORDER BY created_at ASC LIMIT $1
				)
			`, s.nonceEvict); err != nil {
				return kerr.NewStorageErr(false, "evict nonces", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) DeleteNonce(ctx context.Context, value string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM nonce WHERE value = $1`, value); err != nil {
		return kerr.NewStorageErr(false, "delete nonce", err)
	}
	return nil
}
