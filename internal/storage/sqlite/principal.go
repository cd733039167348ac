package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

func (s *Store) CreatePrincipal(ctx context.Context, name, ha1, email string) (*storage.Principal, error) {
	p := &storage.Principal{Name: name, HA1: ha1, Email: email}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO principal (name, ha1, email) VALUES (?, ?, ?)
		`, name, ha1, email)
		if err != nil {
			return kerr.NewStorageErr(false, "insert principal", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return kerr.NewStorageErr(false, "read principal id", err)
		}
		p.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) LoadPrincipalByName(ctx context.Context, name string) (*storage.Principal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, ha1, email, quota_bytes FROM principal WHERE name = ?
	`, name)
	return s.scanPrincipal(ctx, row)
}

func (s *Store) LoadPrincipalByEmail(ctx context.Context, email string) (*storage.Principal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, ha1, email, quota_bytes FROM principal WHERE email = ?
	`, email)
	return s.scanPrincipal(ctx, row)
}

func (s *Store) scanPrincipal(ctx context.Context, row *sql.Row) (*storage.Principal, error) {
	var p storage.Principal
	if err := row.Scan(&p.ID, &p.Name, &p.HA1, &p.Email, &p.QuotaBytes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kerr.ErrNotFound
		}
		return nil, kerr.NewStorageErr(false, "load principal", err)
	}

	fwd, err := loadForwardProxies(ctx, s.db, p.ID)
	if err != nil {
		return nil, err
	}
	rev, err := loadReverseProxies(ctx, s.db, p.ID)
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
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if ha1 != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE principal SET ha1 = ? WHERE id = ?`, *ha1, id); err != nil {
				return kerr.NewStorageErr(false, "update ha1", err)
			}
		}
		if email != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE principal SET email = ? WHERE id = ?`, *email, id); err != nil {
				return kerr.NewStorageErr(false, "update email", err)
			}
		}
		return nil
	})
}

func (s *Store) CheckOrSetOwner(ctx context.Context, uid string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT owner_uid FROM database LIMIT 1`)
		var existing string
		err := row.Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err := tx.ExecContext(ctx, `INSERT INTO database (owner_uid) VALUES (?)`, uid)
			if err != nil {
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
