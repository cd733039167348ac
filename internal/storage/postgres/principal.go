package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

func (s *Store) CreatePrincipal(ctx context.Context, name, ha1, email string) (*storage.Principal, error) {
	p := &storage.Principal{Name: name, HA1: ha1, Email: email}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO principal (name, ha1, email) VALUES ($1, $2, $3) RETURNING id
	`, name, ha1, email).Scan(&p.ID)
	if err != nil {
		return nil, kerr.NewStorageErr(false, "insert principal", err)
	}
	return p, nil
}

func (s *Store) LoadPrincipalByName(ctx context.Context, name string) (*storage.Principal, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, ha1, email, quota_bytes FROM principal WHERE name = $1
	`, name)
	return s.scanPrincipal(ctx, row)
}

func (s *Store) LoadPrincipalByEmail(ctx context.Context, email string) (*storage.Principal, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, ha1, email, quota_bytes FROM principal WHERE email = $1
	`, email)
	return s.scanPrincipal(ctx, row)
}

func (s *Store) scanPrincipal(ctx context.Context, row pgx.Row) (*storage.Principal, error) {
	var p storage.Principal
	if err := row.Scan(&p.ID, &p.Name, &p.HA1, &p.Email, &p.QuotaBytes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, kerr.ErrNotFound
		}
		return nil, kerr.NewStorageErr(false, "load principal", err)
	}

	fwd, err := loadForwardProxies(ctx, s.pool, p.ID)
	if err != nil {
		return nil, err
	}
	rev, err := loadReverseProxies(ctx, s.pool, p.ID)
	if err != nil {
		return nil, err
	}
	cols, err := s.ListCollections(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.ForwardProxies = fwd
	p.ReverseProxies = rev
	p.Collections = cols
	return &p, nil
}

func (s *Store) UpdatePrincipal(ctx context.Context, id int64, ha1, email *string) error {
	if ha1 != nil {
		if _, err := s.pool.Exec(ctx, `UPDATE principal SET ha1 = $1 WHERE id = $2`, *ha1, id); err != nil {
			return kerr.NewStorageErr(false, "update ha1", err)
		}
	}
	if email != nil {
		if _, err := s.pool.Exec(ctx, `UPDATE principal SET email = $1 WHERE id = $2`, *email, id); err != nil {
			return kerr.NewStorageErr(false, "update email", err)
		}
	}
	return nil
}

func (s *Store) CheckOrSetOwner(ctx context.Context, uid string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var existing string
		err := tx.QueryRow(ctx, `SELECT owner_uid FROM database LIMIT 1`).Scan(&existing)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			if _, err := tx.Exec(ctx, `INSERT INTO database (owner_uid) VALUES ($1)`, uid); err != nil {
				return kerr.NewStorageErr(false, "set owner", err)
			}
			return nil
		case err != nil:
			return kerr.NewStorageErr(false, "load owner", err)
		case existing != uid:
			return fmt.Errorf("database already owned by %q", existing)
		default:
			return nil
		}
	})
}
