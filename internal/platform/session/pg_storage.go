package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStorage struct {
	pool   *pgxpool.Pool
	sealer *Sealer
}

func NewPGStorage(ctx context.Context, pool *pgxpool.Pool, sealer *Sealer) (*PGStorage, error) {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS session_values (
		sid        TEXT        NOT NULL,
		k          TEXT        NOT NULL,
		v          TEXT        NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (sid, k)
	)`)
	if err != nil {
		return nil, fmt.Errorf("session: migrate: %w", err)
	}
	return &PGStorage{pool: pool, sealer: sealer}, nil
}

func (s *PGStorage) Get(ctx context.Context, sid, key string) (string, error) {
	var v string
	err := s.pool.QueryRow(ctx,
		`SELECT v FROM session_values WHERE sid = $1 AND k = $2`, sid, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session: get %s: %w", key, err)
	}
	return s.sealer.Open(v)
}

func (s *PGStorage) Set(ctx context.Context, sid, key, value string) error {
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO session_values (sid, k, v, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (sid, k) DO UPDATE SET v = EXCLUDED.v, updated_at = now()`,
		sid, key, sealed)
	if err != nil {
		return fmt.Errorf("session: set %s: %w", key, err)
	}
	return nil
}

func (s *PGStorage) Delete(ctx context.Context, sid string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM session_values WHERE sid = $1 AND k = ANY($2)`, sid, keys)
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

func (s *PGStorage) SessionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT sid FROM session_values WHERE k = $1`, KeyToken)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
