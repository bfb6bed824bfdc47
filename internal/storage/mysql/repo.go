package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"nanjing_go/internal/adapters/observability"
	"nanjing_go/internal/domain"
)

// Repo stores every collection in a single documents table keyed by
// (collection, doc_key); bodies are JSON columns.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) List(ctx context.Context, collection string) (docs []domain.Document, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("mysql", "list", start, err) }()

	rows, err := r.db.QueryContext(ctx, listDocumentsSQL, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs = []domain.Document{}
	for rows.Next() {
		var key string
		var body []byte
		if err := rows.Scan(&key, &body); err != nil {
			return nil, err
		}
		docs = append(docs, domain.Document{Key: key, Body: json.RawMessage(body)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// integer keys sort numerically, which a VARCHAR ORDER BY cannot express
	domain.SortDocuments(docs)
	return docs, nil
}

func (r *Repo) Get(ctx context.Context, collection, key string, dst any) (ok bool, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("mysql", "get", start, err) }()

	var body []byte
	err = r.db.QueryRowContext(ctx, getDocumentSQL, collection, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(body, dst)
}

func (r *Repo) Put(ctx context.Context, collection, key string, v any) (err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("mysql", "put", start, err) }()

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertDocumentSQL, collection, key, string(b))
	return err
}

func (r *Repo) Add(ctx context.Context, collection string, v any) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	if err := r.Put(ctx, collection, id.String(), v); err != nil {
		return "", err
	}
	return id.String(), nil
}

func (r *Repo) Delete(ctx context.Context, collection, key string) (err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("mysql", "delete", start, err) }()

	_, err = r.db.ExecContext(ctx, deleteDocumentSQL, collection, key)
	return err
}

// Replace clears the collection and writes docs in one transaction.
func (r *Repo) Replace(ctx context.Context, collection string, docs map[string]any) (err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("mysql", "replace", start, err) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, clearCollectionSQL, collection); err != nil {
		return err
	}
	for k, v := range docs {
		var b []byte
		if b, err = json.Marshal(v); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, upsertDocumentSQL, collection, k, string(b)); err != nil {
			return err
		}
	}
	return tx.Commit()
}
