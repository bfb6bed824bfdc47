package domain

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
)

// DocumentStore is the remote document tree. Collections are slash paths
// ("locations", "users/{uid}/favoriteLocations"); documents are JSON values
// addressed by key inside a collection.
type DocumentStore interface {
	// Read paths. A missing collection lists as empty, a missing key reports false.
	List(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, collection, key string, dst any) (bool, error)

	// Write paths
	Put(ctx context.Context, collection, key string, v any) error
	Add(ctx context.Context, collection string, v any) (string, error)
	Delete(ctx context.Context, collection, key string) error
	Replace(ctx context.Context, collection string, docs map[string]any) error
}

type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Document struct {
	Key  string
	Body json.RawMessage
}

func (d Document) Decode(dst any) error { return json.Unmarshal(d.Body, dst) }

// Collection paths
const LocationsCollection = "locations"

func UserCollection(uid string) string         { return "users/" + uid }
func FavoritesCollection(uid string) string    { return "users/" + uid + "/favoriteLocations" }
func ConversationCollection(uid string) string { return "users/" + uid + "/conversationHistory" }

// SortDocuments orders documents the way the Realtime Database orders
// children: integer keys first by value, then the rest lexicographically.
func SortDocuments(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool { return KeyLess(docs[i].Key, docs[j].Key) })
}

func KeyLess(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}
