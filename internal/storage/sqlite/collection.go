package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

func (s *Store) CreateCollection(ctx context.Context, principalID int64, url, displayName, color, description string) (*storage.Collection, error) {
	c := &storage.Collection{
		PrincipalID: principalID,
		URL:         url,
		DisplayName: displayName,
		Color:       color,
		Description: description,
		CTag:        1,
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO collection (principal_id, url, displayname, color, description, ctag)
			VALUES (?, ?, ?, ?, ?, 1)
		`, principalID, url, displayName, color, description)
		if err != nil {
			return kerr.NewStorageErr(false, "insert collection", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return kerr.NewStorageErr(false, "read collection id", err)
		}
		c.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) LoadCollectionByID(ctx context.Context, id int64) (*storage.Collection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, principal_id, url, displayname, color, description, ctag
		FROM collection WHERE id = ?
	`, id)
	return scanCollection(row)
}

func (s *Store) LoadCollectionByURL(ctx context.Context, principalID int64, url string) (*storage.Collection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, principal_id, url, displayname, color, description, ctag
		FROM collection WHERE principal_id = ? AND url = ?
	`, principalID, url)
	return scanCollection(row)
}

func (s *Store) ListCollections(ctx context.Context, principalID int64) ([]*storage.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, principal_id, url, displayname, color, description, ctag
		FROM collection WHERE principal_id = ?
	`, principalID)
	if err != nil {
		return nil, kerr.NewStorageErr(false, "list collections", err)
	}
	defer rows.Close()

	var out []*storage.Collection
	for rows.Next() {
		var c storage.Collection
		if err := rows.Scan(&c.ID, &c.PrincipalID, &c.URL, &c.DisplayName, &c.Color, &c.Description, &c.CTag); err != nil {
			return nil, kerr.NewStorageErr(false, "scan collection", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func scanCollection(row *sql.Row) (*storage.Collection, error) {
	var c storage.Collection
	if err := row.Scan(&c.ID, &c.PrincipalID, &c.URL, &c.DisplayName, &c.Color, &c.Description, &c.CTag); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kerr.ErrNotFound
		}
		return nil, kerr.NewStorageErr(false, "load collection", err)
	}
	return &c, nil
}

func (s *Store) UpdateCollection(ctx context.Context, id int64, displayName, color, description *string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if displayName != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE collection SET displayname = ? WHERE id = ?`, *displayName, id); err != nil {
				return kerr.NewStorageErr(false, "update displayname", err)
			}
		}
		if color != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE collection SET color = ? WHERE id = ?`, *color, id); err != nil {
				return kerr.NewStorageErr(false, "update color", err)
			}
		}
		if description != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE collection SET description = ? WHERE id = ?`, *description, id); err != nil {
				return kerr.NewStorageErr(false, "update description", err)
			}
		}
		return bumpCTag(ctx, tx, id)
	})
}

func (s *Store) DeleteCollection(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM resource WHERE collection_id = ?`, id); err != nil {
			return kerr.NewStorageErr(false, "delete resources", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM collection WHERE id = ?`, id)
		if err != nil {
			return kerr.NewStorageErr(false, "delete collection", err)
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

// bumpCTag increments a collection's CTag within the caller's transaction,
// so every resource mutation and every property change becomes visible in
// the same commit that caused it.
func bumpCTag(ctx context.Context, tx *sql.Tx, collectionID int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE collection SET ctag = ctag + 1 WHERE id = ?`, collectionID)
	if err != nil {
		return kerr.NewStorageErr(false, "bump ctag", err)
	}
	return nil
}
