package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

func (s *Store) UpsertProxy(ctx context.Context, fromID, toID int64, bit storage.ProxyBit) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO proxy (from_principal_id, to_principal_id, bit) VALUES ($1, $2, $3)
		ON CONFLICT (from_principal_id, to_principal_id) DO UPDATE SET bit = excluded.bit
	`, fromID, toID, int(bit))
	if err != nil {
		return kerr.NewStorageErr(false, "upsert proxy", err)
	}
	return nil
}

func (s *Store) RemoveProxy(ctx context.Context, fromID, toID int64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM proxy WHERE from_principal_id = $1 AND to_principal_id = $2
	`, fromID, toID)
	if err != nil {
		return kerr.NewStorageErr(false, "remove proxy", err)
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting the proxy
// loaders run either outside or inside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// loadForwardProxies loads the delegates this principal has granted a
// proxy edge to (storage.Principal.ForwardProxies: "principals who may
// act as this one").
func loadForwardProxies(ctx context.Context, q querier, principalID int64) ([]storage.ProxyEdge, error) {
	rows, err := q.Query(ctx, `
		SELECT p.to_principal_id, pr.name, p.bit
		FROM proxy p JOIN principal pr ON pr.id = p.to_principal_id
		WHERE p.from_principal_id = $1
	`, principalID)
	if err != nil {
		return nil, kerr.NewStorageErr(false, "load forward proxies", err)
	}
	defer rows.Close()
	return scanProxyEdges(rows)
}

// loadReverseProxies loads the grantors this principal may act as
// (storage.Principal.ReverseProxies: "principals this one may act as").
func loadReverseProxies(ctx context.Context, q querier, principalID int64) ([]storage.ProxyEdge, error) {
	rows, err := q.Query(ctx, `
		SELECT p.from_principal_id, pr.name, p.bit
		FROM proxy p JOIN principal pr ON pr.id = p.from_principal_id
		WHERE p.to_principal_id = $1
	`, principalID)
	if err != nil {
		return nil, kerr.NewStorageErr(false, "load reverse proxies", err)
	}
	defer rows.Close()
	return scanProxyEdges(rows)
}

func scanProxyEdges(rows pgx.Rows) ([]storage.ProxyEdge, error) {
	var out []storage.ProxyEdge
	for rows.Next() {
		var e storage.ProxyEdge
		var bit int
		if err := rows.Scan(&e.PrincipalID, &e.Name, &bit); err != nil {
			return nil, kerr.NewStorageErr(false, "scan proxy edge", err)
		}
		e.Bit = storage.ProxyBit(bit)
		out = append(out, e)
	}
	return out, rows.Err()
}
