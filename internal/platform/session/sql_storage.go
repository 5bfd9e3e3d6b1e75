package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lendit-admin/internal/platform/db"
)

// MySQL / SQLite 共通で通る DDL
const schemaSQL = `CREATE TABLE IF NOT EXISTS session_values (
	sid        VARCHAR(64) NOT NULL,
	k          VARCHAR(32) NOT NULL,
	v          TEXT        NOT NULL,
	updated_at BIGINT      NOT NULL,
	PRIMARY KEY (sid, k)
)`

// SQLStorage は database/sql 経由の永続ストア。値は暗号化して保存する
type SQLStorage struct {
	db     *sql.DB
	sealer *Sealer
	now    func() time.Time
}

func NewSQLStorage(ctx context.Context, conn *sql.DB, sealer *Sealer) (*SQLStorage, error) {
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("session: migrate: %w", err)
	}
	return &SQLStorage{db: conn, sealer: sealer, now: time.Now}, nil
}

func (s *SQLStorage) Get(ctx context.Context, sid, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT v FROM session_values WHERE sid = ? AND k = ?`, sid, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session: get %s: %w", key, err)
	}
	return s.sealer.Open(v)
}

// 方言差を避けて DELETE → INSERT を 1 Tx で行う
func (s *SQLStorage) Set(ctx context.Context, sid, key, value string) error {
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return err
	}
	return db.RunInTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_values WHERE sid = ? AND k = ?`, sid, key); err != nil {
			return fmt.Errorf("session: set %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_values (sid, k, v, updated_at) VALUES (?, ?, ?, ?)`,
			sid, key, sealed, s.now().Unix()); err != nil {
			return fmt.Errorf("session: set %s: %w", key, err)
		}
		return nil
	})
}

func (s *SQLStorage) Delete(ctx context.Context, sid string, keys ...string) error {
	return db.RunInTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM session_values WHERE sid = ? AND k = ?`, sid, k); err != nil {
				return fmt.Errorf("session: delete %s: %w", k, err)
			}
		}
		return nil
	})
}

// SessionIDs: 再起動後の復元用
func (s *SQLStorage) SessionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT sid FROM session_values WHERE k = ?`, KeyToken)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
