package keyvalue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on top of a single kv table. Each row is
// (namespace, key, seq, value); seq is a bigserial so List can return
// values in insertion order. Primary key (namespace, key) gives Insert
// its conflict detection.
type Postgres struct {
	pool      *pgxpool.Pool
	namespace string
}

// NewPostgres returns a Store rooted at the given namespace.
func NewPostgres(pool *pgxpool.Pool, namespace string) *Postgres {
	return &Postgres{pool: pool, namespace: namespace}
}

func (p *Postgres) Get(ctx context.Context, key string, v any) error {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		"SELECT value FROM kv WHERE namespace = $1 AND key = $2",
		p.namespace, key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get %q: %w", key, err)
	}
	return json.Unmarshal(raw, v)
}

func (p *Postgres) Put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value for %q: %w", key, err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO kv (namespace, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value
	`, p.namespace, key, raw)
	if err != nil {
		return fmt.Errorf("failed to put %q: %w", key, err)
	}
	return nil
}

func (p *Postgres) Insert(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value for %q: %w", key, err)
	}
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO kv (namespace, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace, key) DO NOTHING
	`, p.namespace, key, raw)
	if err != nil {
		return fmt.Errorf("failed to insert %q: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	tag, err := p.pool.Exec(ctx,
		"DELETE FROM kv WHERE namespace = $1 AND key = $2",
		p.namespace, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]json.RawMessage, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT value FROM kv WHERE namespace = $1 ORDER BY seq",
		p.namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespace %q: %w", p.namespace, err)
	}
	defer rows.Close()

	var values []json.RawMessage
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, json.RawMessage(raw))
	}
	return values, rows.Err()
}

func (p *Postgres) Keys(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT key FROM kv WHERE namespace = $1 ORDER BY seq",
		p.namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys in %q: %w", p.namespace, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (p *Postgres) Sublevel(name string) Store {
	return &Postgres{pool: p.pool, namespace: p.namespace + Separator + name}
}
