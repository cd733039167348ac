package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

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
	err := s.pool.QueryRow(ctx, `
		INSERT INTO collection (principal_id, url, displayname, color, description, ctag)
		VALUES ($1, $2, $3, $4, $5, 1) RETURNING id
	`, principalID, url, displayName, color, description).Scan(&c.ID)
	if err != nil {
		return nil, kerr.NewStorageErr(false, "insert collection", err)
	}
	return c, nil
}

func (s *Store) LoadCollectionByID(ctx context.Context, id int64) (*storage.Collection, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, principal_id, url, displayname, color, description, ctag
		FROM collection WHERE id = $1
	`, id)
	return scanCollection(row)
}

func (s *Store) LoadCollectionByURL(ctx context.Context, principalID int64, url string) (*storage.Collection, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, principal_id, url, displayname, color, description, ctag
		FROM collection WHERE principal_id = $1 AND url = $2
	`, principalID, url)
	return scanCollection(row)
}

func (s *Store) ListCollections(ctx context.Context, principalID int64) ([]*storage.Collection, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, principal_id, url, displayname, color, description, ctag
		FROM collection WHERE principal_id = $1
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

func scanCollection(row pgx.Row) (*storage.Collection, error) {
	var c storage.Collection
	if err := row.Scan(&c.ID, &c.PrincipalID, &c.URL, &c.DisplayName, &c.Color, &c.Description, &c.CTag); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, kerr.ErrNotFound
		}
		return nil, kerr.NewStorageErr(false, "load collection", err)
	}
	return &c, nil
}

func (s *Store) UpdateCollection(ctx context.Context, id int64, displayName, color, description *string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if displayName != nil {
			if _, err := tx.Exec(ctx, `UPDATE collection SET displayname = $1 WHERE id = $2`, *displayName, id); err != nil {
				return kerr.NewStorageErr(false, "update displayname", err)
			}
		}
		if color != nil {
			if _, err := tx.Exec(ctx, `UPDATE collection SET color = $1 WHERE id = $2`, *color, id); err != nil {
				return kerr.NewStorageErr(false, "update color", err)
			}
		}
		if description != nil {
			if _, err := tx.Exec(ctx, `UPDATE collection SET description = $1 WHERE id = $2`, *description, id); err != nil {
				return kerr.NewStorageErr(false, "update description", err)
			}
		}
		return bumpCTag(ctx, tx, id)
	})
}

func (s *Store) DeleteCollection(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM resource WHERE collection_id = $1`, id); err != nil {
			return kerr.NewStorageErr(false, "delete resources", err)
		}
		cmd, err := tx.Exec(ctx, `DELETE FROM collection WHERE id = $1`, id)
		if err != nil {
			return kerr.NewStorageErr(false, "delete collection", err)
		}
		if cmd.RowsAffected() == 0 {
			return kerr.ErrNotFound
		}
		return nil
	})
}

// bumpCTag increments a collection's CTag inside the caller's transaction.
func bumpCTag(ctx context.Context, tx pgx.Tx, collectionID int64) error {
	if _, err := tx.Exec(ctx, `UPDATE collection SET ctag = ctag + 1 WHERE id = $1`, collectionID); err != nil {
		return kerr.NewStorageErr(false, "bump ctag", err)
	}
	return nil
}
