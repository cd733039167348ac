package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

func (s *Store) LookupNonce(ctx context.Context, value string) (uint64, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT nc FROM nonce WHERE value = ?`, value)
	var nc int64
	if err := row.Scan(&nc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, kerr.NewStorageErr(false, "lookup nonce", err)
	}
	return uint64(nc), true, nil
}

func (s *Store) AdvanceNonce(ctx context.Context, value string, newNC uint64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE nonce SET nc = ? WHERE value = ?`, int64(newNC), value)
		if err != nil {
			return kerr.NewStorageErr(false, "advance nonce", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return kerr.NewStorageErr(false, "rows affected", err)
		}
		if n == 0 {
			return kerr.ErrNotFound
		}
		return nil
	})
}

// IssueNonce creates a fresh nonce row and, in the same transaction,
// evicts the oldest Options.NonceEvict rows once the table has grown past
// Options.NonceCap (§4.6's eviction policy).
func (s *Store) IssueNonce(ctx context.Context) (string, error) {
	var value string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		v, err := storage.NewNonceValue()
		if err != nil {
			return kerr.NewStorageErr(false, "generate nonce", err)
		}
		value = v

		if _, err := tx.ExecContext(ctx, `INSERT INTO nonce (value, nc) VALUES (?, 0)`, value); err != nil {
			return kerr.NewStorageErr(false, "insert nonce", err)
		}

		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM nonce`).Scan(&count); err != nil {
			return kerr.NewStorageErr(false, "count nonces", err)
		}
		if count > s.nonceCap {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM nonce WHERE value IN (
					SELECT value FROM nonce ORDER BY created_at ASC LIMIT ?
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
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM nonce WHERE value = ?`, value); err != nil {
			return kerr.NewStorageErr(false, "delete nonce", err)
		}
		return nil
	})
}
