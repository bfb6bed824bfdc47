package rtdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"firebase.google.com/go/v4/db"

	"nanjing_go/internal/adapters/observability"
	"nanjing_go/internal/domain"
)

// tree is the slice of the Realtime Database client the store needs.
type tree interface {
	get(ctx context.Context, path string, v any) error
	set(ctx context.Context, path string, v any) error
	push(ctx context.Context, path string, v any) (string, error)
	delete(ctx context.Context, path string) error
}

type refTree struct{ c *db.Client }

func (t refTree) get(ctx context.Context, path string, v any) error {
	return t.c.NewRef(path).Get(ctx, v)
}

func (t refTree) set(ctx context.Context, path string, v any) error {
	return t.c.NewRef(path).Set(ctx, v)
}

func (t refTree) push(ctx context.Context, path string, v any) (string, error) {
	ref, err := t.c.NewRef(path).Push(ctx, v)
	if err != nil {
		return "", err
	}
	return ref.Key, nil
}

func (t refTree) delete(ctx context.Context, path string) error {
	return t.c.NewRef(path).Delete(ctx)
}

// Store maps collections onto Realtime Database paths.
type Store struct{ t tree }

func New(c *db.Client) *Store { return &Store{t: refTree{c: c}} }

func child(collection, key string) string { return collection + "/" + key }

func (s *Store) List(ctx context.Context, collection string) (docs []domain.Document, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("rtdb", "list", start, err) }()

	var raw json.RawMessage
	if err := s.t.get(ctx, collection, &raw); err != nil {
		return nil, err
	}
	return children(raw)
}

func (s *Store) Get(ctx context.Context, collection, key string, dst any) (ok bool, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("rtdb", "get", start, err) }()

	var raw json.RawMessage
	if err := s.t.get(ctx, child(collection, key), &raw); err != nil {
		return false, err
	}
	if isNull(raw) {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (s *Store) Put(ctx context.Context, collection, key string, v any) (err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("rtdb", "put", start, err) }()
	return s.t.set(ctx, child(collection, key), v)
}

func (s *Store) Add(ctx context.Context, collection string, v any) (key string, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("rtdb", "add", start, err) }()
	return s.t.push(ctx, collection, v)
}

func (s *Store) Delete(ctx context.Context, collection, key string) (err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("rtdb", "delete", start, err) }()
	return s.t.delete(ctx, child(collection, key))
}

// Replace overwrites the collection node in a single write; an empty map
// removes it, matching how the database treats empty objects.
func (s *Store) Replace(ctx context.Context, collection string, docs map[string]any) (err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("rtdb", "replace", start, err) }()

	if len(docs) == 0 {
		return s.t.delete(ctx, collection)
	}
	return s.t.set(ctx, collection, docs)
}

func isNull(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

// children turns a node into ordered documents. Nodes whose keys are dense
// integers come back as JSON arrays, with null for missing indexes.
func children(raw json.RawMessage) ([]domain.Document, error) {
	docs := []domain.Document{}
	if isNull(raw) {
		return docs, nil
	}
	switch bytes.TrimSpace(raw)[0] {
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, fmt.Errorf("decode array node: %w", err)
		}
		for i, v := range arr {
			if isNull(v) {
				continue
			}
			docs = append(docs, domain.Document{Key: strconv.Itoa(i), Body: v})
		}
		return docs, nil
	case '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode object node: %w", err)
		}
		for k, v := range m {
			if isNull(v) {
				continue
			}
			docs = append(docs, domain.Document{Key: k, Body: v})
		}
		domain.SortDocuments(docs)
		return docs, nil
	}
	// a scalar leaf has no children
	return docs, nil
}
