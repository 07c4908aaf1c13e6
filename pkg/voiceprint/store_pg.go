package voiceprint

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgSchema holds one row per enrolled identity. The blob column is the
// raw little-endian float32 byte sequence, 4 bytes per dimension.
const pgSchema = `
CREATE TABLE IF NOT EXISTS voiceprints (
	identity_key   TEXT PRIMARY KEY,
	feature_vector BYTEA NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PGStore is a [Store] backed by PostgreSQL via pgx. The upsert relies
// on ON CONFLICT, so concurrent enrollments of the same identity
// resolve to last-write-wins without partial blobs.
type PGStore struct {
	pool *pgxpool.Pool
	dim  int
}

// NewPGStore connects to the database at dsn, ensures the schema, and
// returns a store for vectors of the given dimensionality.
func NewPGStore(ctx context.Context, dsn string, dim int) (*PGStore, error) {
	if dim <= 0 {
		return nil, errors.New("voiceprint: PGStore dimension is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrStoreUnavailable, err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ensure schema: %v", ErrStoreUnavailable, err)
	}
	return &PGStore{pool: pool, dim: dim}, nil
}

func (s *PGStore) Upsert(ctx context.Context, key string, vec []float32) error {
	if len(vec) != s.dim {
		return fmt.Errorf("%w: vector has %d values, store dimension is %d",
			ErrDimensionMismatch, len(vec), s.dim)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO voiceprints (identity_key, feature_vector)
		VALUES ($1, $2)
		ON CONFLICT (identity_key)
		DO UPDATE SET feature_vector = EXCLUDED.feature_vector, updated_at = now()`,
		key, EncodeVector(vec))
	if err != nil {
		return fmt.Errorf("%w: upsert %q: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}

func (s *PGStore) Fetch(ctx context.Context, keys []string) (map[string][]float32, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT identity_key, feature_vector FROM voiceprints
		WHERE identity_key = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch: %v", ErrStoreUnavailable, err)
	}
	return s.collect(rows)
}

func (s *PGStore) FetchAll(ctx context.Context) (map[string][]float32, error) {
	rows, err := s.pool.Query(ctx, `SELECT identity_key, feature_vector FROM voiceprints`)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch all: %v", ErrStoreUnavailable, err)
	}
	return s.collect(rows)
}

func (s *PGStore) collect(rows pgx.Rows) (map[string][]float32, error) {
	defer rows.Close()
	out := make(map[string][]float32)
	for rows.Next() {
		var key string
		var blob []byte
		if err := rows.Scan(&key, &blob); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStoreUnavailable, err)
		}
		vec, err := DecodeVector(blob, s.dim)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", key, err)
		}
		out[key] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrStoreUnavailable, err)
	}
	return out, nil
}

func (s *PGStore) Delete(ctx context.Context, key string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM voiceprints WHERE identity_key = $1`, key)
	if err != nil {
		return false, fmt.Errorf("%w: delete %q: %v", ErrStoreUnavailable, key, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM voiceprints`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
