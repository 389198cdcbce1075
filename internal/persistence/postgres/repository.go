// Package postgres stores document collections as JSONB rows in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/routines/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Store provides Postgres-backed document collections sharing one table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the documents table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// Collection implements domain.DocumentStore.
func (s *Store) Collection(name string) domain.Collection {
	return &Collection{pool: s.pool, name: name}
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Collection addresses the rows of one collection.
type Collection struct {
	pool *pgxpool.Pool
	name string
}

// Get implements domain.Collection.
func (c *Collection) Get(ctx context.Context, id string) (domain.Document, error) {
	const query = `SELECT body FROM documents WHERE collection=$1 AND id=$2`

	var body []byte
	if err := c.pool.QueryRow(ctx, query, c.name, id).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return decode(body)
}

// Put implements domain.Collection.
func (c *Collection) Put(ctx context.Context, id string, doc domain.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	const stmt = `INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3::jsonb)
        ON CONFLICT (collection, id) DO UPDATE SET body = EXCLUDED.body, written_at = NOW()`

	_, err = c.pool.Exec(ctx, stmt, c.name, id, string(body))
	return err
}

// Merge implements domain.Collection using JSONB concatenation, so top-level
// fields in the patch replace existing ones.
func (c *Collection) Merge(ctx context.Context, id string, fields domain.Document) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	const stmt = `UPDATE documents SET body = body || $3::jsonb, written_at = NOW() WHERE collection=$1 AND id=$2`

	tag, err := c.pool.Exec(ctx, stmt, c.name, id, string(body))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// Delete implements domain.Collection.
func (c *Collection) Delete(ctx context.Context, id string) error {
	tag, err := c.pool.Exec(ctx, `DELETE FROM documents WHERE collection=$1 AND id=$2`, c.name, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// Scan implements domain.Collection. Equality is evaluated server side with
// JSONB containment on a single-field object.
func (c *Collection) Scan(ctx context.Context, filter *domain.Filter) ([]domain.Record, error) {
	query := `SELECT id, body FROM documents WHERE collection=$1`
	args := []interface{}{c.name}

	if filter != nil {
		probe, err := json.Marshal(map[string]any{filter.Field: filter.Value})
		if err != nil {
			return nil, err
		}
		query += ` AND body @> $2::jsonb`
		args = append(args, string(probe))
	}

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Record, 0)
	for rows.Next() {
		var (
			id   string
			body []byte
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		doc, err := decode(body)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.Record{ID: id, Doc: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func decode(body []byte) (domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
