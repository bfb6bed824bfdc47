package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"nanjing_go/internal/adapters/observability"
	"nanjing_go/internal/domain"
)

const keyPrefix = "nanjing:doc:"

// Store keeps one hash per collection; fields are document keys and values
// are the JSON bodies.
type Store struct{ c *redis.Client }

func New(addr, pass string, db int) *Store {
	return &Store{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func NewWithClient(c *redis.Client) *Store { return &Store{c: c} }

func (s *Store) Ping(ctx context.Context) error { return s.c.Ping(ctx).Err() }

func (s *Store) Close() error { return s.c.Close() }

func hashKey(collection string) string { return keyPrefix + collection }

func (s *Store) List(ctx context.Context, collection string) (docs []domain.Document, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("redis", "list", start, err) }()

	m, err := s.c.HGetAll(ctx, hashKey(collection)).Result()
	if err != nil {
		return nil, err
	}
	docs = make([]domain.Document, 0, len(m))
	for k, v := range m {
		docs = append(docs, domain.Document{Key: k, Body: json.RawMessage(v)})
	}
	domain.SortDocuments(docs)
	return docs, nil
}

func (s *Store) Get(ctx context.Context, collection, key string, dst any) (ok bool, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("redis", "get", start, err) }()

	v, err := s.c.HGet(ctx, hashKey(collection), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(v, dst)
}

func (s *Store) Put(ctx context.Context, collection, key string, v any) (err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("redis", "put", start, err) }()

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.c.HSet(ctx, hashKey(collection), key, b).Err()
}

// Add stores v under a fresh time-ordered key and returns it.
func (s *Store) Add(ctx context.Context, collection string, v any) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	key := id.String()
	if err := s.Put(ctx, collection, key, v); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) (err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("redis", "delete", start, err) }()
	return s.c.HDel(ctx, hashKey(collection), key).Err()
}

// Replace swaps the whole collection atomically.
func (s *Store) Replace(ctx context.Context, collection string, docs map[string]any) (err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("redis", "replace", start, err) }()

	fields := make([]any, 0, len(docs)*2)
	for k, v := range docs {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fields = append(fields, k, b)
	}
	hk := hashKey(collection)
	_, err = s.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, hk)
		if len(fields) > 0 {
			p.HSet(ctx, hk, fields...)
		}
		return nil
	})
	return err
}
