package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizrank-service/internal/docstore"
)

var fieldName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// DocStore keeps documents as JSONB rows in the documents table.
type DocStore struct {
	pool *pgxpool.Pool
}

func NewDocStore(pool *pgxpool.Pool) *DocStore {
	return &DocStore{pool: pool}
}

func (s *DocStore) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return docstore.Document{ID: id, Fields: fields}, nil
}

func (s *DocStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	sql := `SELECT id, data FROM documents WHERE collection = $1`
	args := []interface{}{collection}

	if q.Field != "" {
		if !fieldName.MatchString(q.Field) {
			return nil, fmt.Errorf("query %s: invalid field %q", collection, q.Field)
		}
		value, err := json.Marshal(q.Value)
		if err != nil {
			return nil, fmt.Errorf("query %s: encode value: %w", collection, err)
		}
		args = append(args, q.Field, string(value))
		sql += ` AND data -> $2::text = $3::jsonb`
	}
	if q.OrderBy != "" {
		if !fieldName.MatchString(q.OrderBy) {
			return nil, fmt.Errorf("query %s: invalid order field %q", collection, q.OrderBy)
		}
		args = append(args, q.OrderBy)
		sql += fmt.Sprintf(` ORDER BY data -> $%d::text NULLS LAST`, len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("query %s: scan: %w", collection, err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, fmt.Errorf("query %s/%s: %w", collection, id, err)
		}
		docs = append(docs, docstore.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return docs, nil
}

// MergeWrite locks the row, merges in Go and upserts, all in one transaction.
func (s *DocStore) MergeWrite(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("merge %s/%s: begin: %w", collection, id, err)
	}
	defer tx.Rollback(ctx)

	// The placeholder row gives FOR UPDATE something to lock when two writers
	// race on a document that does not exist yet.
	_, err = tx.Exec(ctx, `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, '{}'::jsonb, now())
		ON CONFLICT (collection, id) DO NOTHING`,
		collection, id)
	if err != nil {
		return fmt.Errorf("merge %s/%s: reserve: %w", collection, id, err)
	}

	var raw []byte
	err = tx.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`,
		collection, id).Scan(&raw)
	if err != nil {
		return fmt.Errorf("merge %s/%s: lock: %w", collection, id, err)
	}
	existing, err := decodeFields(raw)
	if err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, err)
	}

	merged, err := docstore.Merge(existing, fields)
	if err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, err)
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("merge %s/%s: encode: %w", collection, id, err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE documents SET data = $3::jsonb, updated_at = now() WHERE collection = $1 AND id = $2`,
		collection, id, string(data))
	if err != nil {
		return fmt.Errorf("merge %s/%s: update: %w", collection, id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("merge %s/%s: commit: %w", collection, id, err)
	}
	return nil
}

func (s *DocStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func decodeFields(raw []byte) (map[string]any, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fields, nil
}
