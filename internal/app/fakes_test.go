package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"nanjing_go/internal/domain"
)

// ---- fakes ----

var errBoom = errors.New("boom: connection reset")

type fakeStore struct {
	mu   sync.Mutex
	data map[string]map[string]json.RawMessage
	next int

	failList   bool
	failWrites bool
	lists      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]map[string]json.RawMessage{}}
}

func (f *fakeStore) seed(collection, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[collection] == nil {
		f.data[collection] = map[string]json.RawMessage{}
	}
	f.data[collection][key] = b
}

func (f *fakeStore) count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data[collection])
}

func (f *fakeStore) List(ctx context.Context, collection string) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.failList {
		return nil, errBoom
	}
	var out []domain.Document
	for k, v := range f.data[collection] {
		out = append(out, domain.Document{Key: k, Body: v})
	}
	domain.SortDocuments(out)
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, collection, key string, dst any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return false, errBoom
	}
	b, ok := f.data[collection][key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (f *fakeStore) Put(ctx context.Context, collection, key string, v any) error {
	if f.failWrites {
		return errBoom
	}
	f.seed(collection, key, v)
	return nil
}

func (f *fakeStore) Add(ctx context.Context, collection string, v any) (string, error) {
	if f.failWrites {
		return "", errBoom
	}
	f.mu.Lock()
	f.next++
	key := fmt.Sprintf("-K%04d", f.next)
	f.mu.Unlock()
	f.seed(collection, key, v)
	return key, nil
}

func (f *fakeStore) Delete(ctx context.Context, collection, key string) error {
	if f.failWrites {
		return errBoom
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data[collection], key)
	return nil
}

func (f *fakeStore) Replace(ctx context.Context, collection string, docs map[string]any) error {
	if f.failWrites {
		return errBoom
	}
	f.mu.Lock()
	delete(f.data, collection)
	f.mu.Unlock()
	for k, v := range docs {
		f.seed(collection, k, v)
	}
	return nil
}

type fakeGen struct {
	reply   string
	err     error
	prompts []string
}

func (g *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

// ---- fixtures ----

// seedLocations mirrors the seed uploader's shape: snake_case keys and the
// rating as a string.
func seedLocations(s *fakeStore) {
	s.seed(domain.LocationsCollection, "0", map[string]any{
		"name":               "Qixia Mountain",
		"address":            "No. 88 Qixia Street, Qixia District, Nanjing",
		"phone":              "025-85766979",
		"website":            "www.njqixiashan.com",
		"description":        "Famous for red maple leaves.",
		"opening_time":       "All year 08:00-16:00",
		"rating":             "4.6",
		"suggested_duration": "2 to 3 hours",
		"best_season":        "Autumn",
		"travel_tips":        []string{"Go early", "Wear hiking shoes"},
		"tips":               `Best time:\n- October to November\nArrive before 9am to avoid crowds.`,
	})
	s.seed(domain.LocationsCollection, "1", map[string]any{
		"name":        "Zhongshan Mountain National Park",
		"rating":      "4.6",
		"best_season": "Spring, Autumn",
	})
	s.seed(domain.LocationsCollection, "2", map[string]any{
		"name":        "Xuanwu Lake",
		"rating":      "not a number",
		"best_season": "Winter",
	})
}

func ptr[T any](v T) *T { return &v }

func names(ls []domain.Location) string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Name)
	}
	return strings.Join(out, "|")
}
