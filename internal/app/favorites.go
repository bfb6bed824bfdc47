package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"nanjing_go/internal/domain"
)

// FavoritesService keeps users/{uid}/favoriteLocations. Every mutation is a
// read followed by a write with no transaction around them; two clients
// racing on the same user can both pass the duplicate check.
type FavoritesService struct {
	store domain.DocumentStore
}

func NewFavoritesService(s domain.DocumentStore) *FavoritesService {
	return &FavoritesService{store: s}
}

type favoriteEntry struct {
	key string
	loc domain.Location
}

func (s *FavoritesService) entries(ctx context.Context, userID string) ([]favoriteEntry, error) {
	docs, err := s.store.List(ctx, domain.FavoritesCollection(userID))
	if err != nil {
		return nil, remote(err)
	}
	out := make([]favoriteEntry, 0, len(docs))
	for _, d := range docs {
		loc, ok := decodeFavorite(d)
		if !ok {
			log.Warn().Str("user", userID).Str("key", d.Key).Msg("skipping non-object favorite entry")
			continue
		}
		out = append(out, favoriteEntry{key: d.Key, loc: loc})
	}
	return out, nil
}

// decodeFavorite reads an entry in the shape Add wrote it, so empty strings
// and empty tips survive. Entries written by other clients with mistyped
// fields fall back to the lenient catalog mapper.
func decodeFavorite(d domain.Document) (domain.Location, bool) {
	var loc domain.Location
	if err := json.Unmarshal(d.Body, &loc); err != nil {
		raw := decodeRaw(d)
		if raw == nil {
			return domain.Location{}, false
		}
		return mapLocation(raw), true
	}
	if bytes.Equal(bytes.TrimSpace(d.Body), []byte("null")) {
		return domain.Location{}, false
	}
	if loc.TravelTips == nil {
		loc.TravelTips = []string{}
	}
	loc.Rating = clampRating(loc.Rating)
	return loc, true
}

func findByName(es []favoriteEntry, name string) (favoriteEntry, bool) {
	for _, e := range es {
		if e.loc.Name == name {
			return e, true
		}
	}
	return favoriteEntry{}, false
}

// Add stores a full copy of loc under a store-generated key unless a
// favorite with the same name already exists.
func (s *FavoritesService) Add(ctx context.Context, userID string, loc domain.Location) error {
	if userID == "" || loc.Name == "" {
		return fmt.Errorf("add favorite: %w", domain.ErrInvalidArgument)
	}
	es, err := s.entries(ctx, userID)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	if _, dup := findByName(es, loc.Name); dup {
		return fmt.Errorf("favorite %q: %w", loc.Name, domain.ErrAlreadyExists)
	}
	if loc.TravelTips == nil {
		loc.TravelTips = []string{}
	}
	key, err := s.store.Add(ctx, domain.FavoritesCollection(userID), loc)
	if err != nil {
		return fmt.Errorf("add favorite: %w", remote(err))
	}
	log.Info().Str("user", userID).Str("name", loc.Name).Str("key", key).Msg("favorite added")
	return nil
}

// Remove deletes the entry named name. A missing entry is not an error.
func (s *FavoritesService) Remove(ctx context.Context, userID, name string) error {
	if userID == "" || name == "" {
		return fmt.Errorf("remove favorite: %w", domain.ErrInvalidArgument)
	}
	es, err := s.entries(ctx, userID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	e, ok := findByName(es, name)
	if !ok {
		log.Debug().Str("user", userID).Str("name", name).Msg("remove favorite: nothing to remove")
		return nil
	}
	if err := s.store.Delete(ctx, domain.FavoritesCollection(userID), e.key); err != nil {
		return fmt.Errorf("remove favorite: %w", remote(err))
	}
	log.Info().Str("user", userID).Str("name", name).Msg("favorite removed")
	return nil
}

// IsFavorite reports false when the store cannot be read.
func (s *FavoritesService) IsFavorite(ctx context.Context, userID, name string) bool {
	if userID == "" {
		return false
	}
	es, err := s.entries(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("context", "IsFavorite").Str("user", userID).Msg("favorites read failed")
		return false
	}
	_, ok := findByName(es, name)
	return ok
}

// List never fails: an unreadable or missing collection is an empty list.
func (s *FavoritesService) List(ctx context.Context, userID string) []domain.Location {
	out := []domain.Location{}
	if userID == "" {
		return out
	}
	es, err := s.entries(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("context", "List").Str("user", userID).Msg("favorites read failed, returning empty list")
		return out
	}
	for _, e := range es {
		out = append(out, e.loc)
	}
	return out
}
