package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

func (s *Store) ListResources(ctx context.Context, collectionID int64) ([]*storage.Resource, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection_id, url, etag, data, updated_at
		FROM resource WHERE collection_id = ?
	`, collectionID)
	if err != nil {
		return nil, kerr.NewStorageErr(false, "list resources", err)
	}
	defer rows.Close()

	var out []*storage.Resource
	for rows.Next() {
		var r storage.Resource
		if err := rows.Scan(&r.ID, &r.CollectionID, &r.URL, &r.ETag, &r.Data, &r.UpdatedAt); err != nil {
			return nil, kerr.NewStorageErr(false, "scan resource", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) CreateResource(ctx context.Context, collectionID int64, url, data string) (*storage.Resource, error) {
	r := &storage.Resource{CollectionID: collectionID, URL: url, Data: data}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		etag, err := storage.NewETag()
		if err != nil {
			return kerr.NewStorageErr(false, "generate etag", err)
		}
		r.ETag = etag

		res, err := tx.ExecContext(ctx, `
			INSERT INTO resource (collection_id, url, etag, data) VALUES (?, ?, ?, ?)
		`, collectionID, url, etag, data)
		if err != nil {
			if isUniqueViolation(err) {
				return kerr.NewConflictErr(kerr.ExistingResource)
			}
			return kerr.NewStorageErr(false, "insert resource", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return kerr.NewStorageErr(false, "read resource id", err)
		}
		r.ID = id
		return bumpCTag(ctx, tx, collectionID)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) LoadResource(ctx context.Context, collectionID int64, url string) (*storage.Resource, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection_id, url, etag, data, updated_at
		FROM resource WHERE collection_id = ? AND url = ?
	`, collectionID, url)
	var r storage.Resource
	if err := row.Scan(&r.ID, &r.CollectionID, &r.URL, &r.ETag, &r.Data, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kerr.ErrNotFound
		}
		return nil, kerr.NewStorageErr(false, "load resource", err)
	}
	return &r, nil
}

func (s *Store) UpdateResourceWithETagMatch(ctx context.Context, collectionID int64, url, data string, ifMatch *string) (*storage.Resource, error) {
	var out *storage.Resource
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		var current string
		row := tx.QueryRowContext(ctx, `
			SELECT id, etag FROM resource WHERE collection_id = ? AND url = ?
		`, collectionID, url)
		switch err := row.Scan(&id, &current); {
		case errors.Is(err, sql.ErrNoRows):
			if ifMatch != nil {
				return kerr.NewConflictErr(kerr.MissingIfMatch)
			}
			created, err := s.createResourceTx(ctx, tx, collectionID, url, data)
			if err != nil {
				return err
			}
			out = created
			return bumpCTag(ctx, tx, collectionID)
		case err != nil:
			return kerr.NewStorageErr(false, "load resource for update", err)
		}

		if ifMatch == nil {
			return kerr.NewConflictErr(kerr.MissingIfMatch)
		}
		if *ifMatch != current {
			return kerr.NewConflictErr(kerr.EtagMismatch)
		}

		etag, err := storage.NewETag()
		if err != nil {
			return kerr.NewStorageErr(false, "generate etag", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE resource SET etag = ?, data = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
		`, etag, data, id); err != nil {
			return kerr.NewStorageErr(false, "update resource", err)
		}
		out = &storage.Resource{ID: id, CollectionID: collectionID, URL: url, ETag: etag, Data: data}
		return bumpCTag(ctx, tx, collectionID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) createResourceTx(ctx context.Context, tx *sql.Tx, collectionID int64, url, data string) (*storage.Resource, error) {
	etag, err := storage.NewETag()
	if err != nil {
		return nil, kerr.NewStorageErr(false, "generate etag", err)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO resource (collection_id, url, etag, data) VALUES (?, ?, ?, ?)
	`, collectionID, url, etag, data)
	if err != nil {
		return nil, kerr.NewStorageErr(false, "insert resource", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, kerr.NewStorageErr(false, "read resource id", err)
	}
	return &storage.Resource{ID: id, CollectionID: collectionID, URL: url, ETag: etag, Data: data}, nil
}

func (s *Store) DeleteResourceWithETagMatch(ctx context.Context, collectionID int64, url string, ifMatch *string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		var current string
		row := tx.QueryRowContext(ctx, `
			SELECT id, etag FROM resource WHERE collection_id = ? AND url = ?
		`, collectionID, url)
		switch err := row.Scan(&id, &current); {
		case errors.Is(err, sql.ErrNoRows):
			return kerr.ErrNotFound
		case err != nil:
			return kerr.NewStorageErr(false, "load resource for delete", err)
		}
		if ifMatch != nil && *ifMatch != current {
			return kerr.NewConflictErr(kerr.EtagMismatch)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM resource WHERE id = ?`, id); err != nil {
			return kerr.NewStorageErr(false, "delete resource", err)
		}
		return bumpCTag(ctx, tx, collectionID)
	})
}

func (s *Store) DeleteResourceUnconditional(ctx context.Context, collectionID int64, url string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM resource WHERE collection_id = ? AND url = ?`, collectionID, url)
		if err != nil {
			return kerr.NewStorageErr(false, "delete resource", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return kerr.NewStorageErr(false, "rows affected", err)
		}
		if n == 0 {
			return kerr.ErrNotFound
		}
		return bumpCTag(ctx, tx, collectionID)
	})
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
