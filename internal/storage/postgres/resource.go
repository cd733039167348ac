package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

func (s *Store) ListResources(ctx context.Context, collectionID int64) ([]*storage.Resource, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, collection_id, url, etag, data, updated_at
		FROM resource WHERE collection_id = $1
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
	var out *storage.Resource
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		r, err := createResourceTx(ctx, tx, collectionID, url, data)
		if err != nil {
			return err
		}
		out = r
		return bumpCTag(ctx, tx, collectionID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func createResourceTx(ctx context.Context, tx pgx.Tx, collectionID int64, url, data string) (*storage.Resource, error) {
	etag, err := storage.NewETag()
	if err != nil {
		return nil, kerr.NewStorageErr(false, "generate etag", err)
	}
	r := &storage.Resource{CollectionID: collectionID, URL: url, ETag: etag, Data: data}
	err = tx.QueryRow(ctx, `
		INSERT INTO resource (collection_id, url, etag, data) VALUES ($1, $2, $3, $4) RETURNING id
	`, collectionID, url, etag, data).Scan(&r.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, kerr.NewConflictErr(kerr.ExistingResource)
		}
		return nil, kerr.NewStorageErr(false, "insert resource", err)
	}
	return r, nil
}

func (s *Store) LoadResource(ctx context.Context, collectionID int64, url string) (*storage.Resource, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, collection_id, url, etag, data, updated_at
		FROM resource WHERE collection_id = $1 AND url = $2
	`, collectionID, url)
	var r storage.Resource
	if err := row.Scan(&r.ID, &r.CollectionID, &r.URL, &r.ETag, &r.Data, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, kerr.ErrNotFound
		}
		return nil, kerr.NewStorageErr(false, "load resource", err)
	}
	return &r, nil
}

func (s *Store) UpdateResourceWithETagMatch(ctx context.Context, collectionID int64, url, data string, ifMatch *string) (*storage.Resource, error) {
	var out *storage.Resource
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var id int64
		var current string
		scanErr := tx.QueryRow(ctx, `
			SELECT id, etag FROM resource WHERE collection_id = $1 AND url = $2
		`, collectionID, url).Scan(&id, &current)

		switch {
		case errors.Is(scanErr, pgx.ErrNoRows):
			if ifMatch != nil {
				return kerr.NewConflictErr(kerr.MissingIfMatch)
			}
			created, err := createResourceTx(ctx, tx, collectionID, url, data)
			if err != nil {
				return err
			}
			out = created
		case scanErr != nil:
			return kerr.NewStorageErr(false, "load resource for update", scanErr)
		default:
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
			if _, err := tx.Exec(ctx, `
				UPDATE resource SET etag = $1, data = $2, updated_at = now() WHERE id = $3
			`, etag, data, id); err != nil {
				return kerr.NewStorageErr(false, "update resource", err)
			}
			out = &storage.Resource{ID: id, CollectionID: collectionID, URL: url, ETag: etag, Data: data}
		}
		return bumpCTag(ctx, tx, collectionID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeleteResourceWithETagMatch(ctx context.Context, collectionID int64, url string, ifMatch *string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var id int64
		var current string
		err := tx.QueryRow(ctx, `
			SELECT id, etag FROM resource WHERE collection_id = $1 AND url = $2
		`, collectionID, url).Scan(&id, &current)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return kerr.ErrNotFound
		case err != nil:
			return kerr.NewStorageErr(false, "load resource for delete", err)
		}
		if ifMatch != nil && *ifMatch != current {
			return kerr.NewConflictErr(kerr.EtagMismatch)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM resource WHERE id = $1`, id); err != nil {
			return kerr.NewStorageErr(false, "delete resource", err)
		}
		return bumpCTag(ctx, tx, collectionID)
	})
}

func (s *Store) DeleteResourceUnconditional(ctx context.Context, collectionID int64, url string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `DELETE FROM resource WHERE collection_id = $1 AND url = $2`, collectionID, url)
		if err != nil {
			return kerr.NewStorageErr(false, "delete resource", err)
		}
		if cmd.RowsAffected() == 0 {
			return kerr.ErrNotFound
		}
		return bumpCTag(ctx, tx, collectionID)
	})
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}
