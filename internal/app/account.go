package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"nanjing_go/internal/domain"
)

const profileImageKey = "profileImageUrl"

type AccountService struct {
	store domain.DocumentStore
	favs  *FavoritesService
}

func NewAccountService(s domain.DocumentStore, favs *FavoritesService) *AccountService {
	return &AccountService{store: s, favs: favs}
}

// Register writes the user record the rest of the tree hangs off.
func (s *AccountService) Register(ctx context.Context, id domain.Identity) error {
	if id.UserID == "" {
		return fmt.Errorf("register: %w", domain.ErrInvalidArgument)
	}
	col := domain.UserCollection(id.UserID)
	if err := s.store.Put(ctx, col, "username", id.Username()); err != nil {
		return fmt.Errorf("register: %w", remote(err))
	}
	if err := s.store.Put(ctx, col, "email", id.Email); err != nil {
		return fmt.Errorf("register: %w", remote(err))
	}
	log.Info().Str("user", id.UserID).Msg("user registered")
	return nil
}

// Profile assembles what the account screen shows. Read failures degrade to
// empty fields.
func (s *AccountService) Profile(ctx context.Context, id domain.Identity) domain.UserProfile {
	p := domain.UserProfile{
		Username:  id.Username(),
		Email:     id.Email,
		Favorites: s.favs.List(ctx, id.UserID),
	}
	if url, err := s.ProfileImage(ctx, id.UserID); err == nil {
		p.ProfileImageURL = url
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("user", id.UserID).Msg("profile image read failed")
	}
	return p
}

func (s *AccountService) ProfileImage(ctx context.Context, userID string) (string, error) {
	var url string
	ok, err := s.store.Get(ctx, domain.UserCollection(userID), profileImageKey, &url)
	if err != nil {
		return "", fmt.Errorf("profile image: %w", remote(err))
	}
	if !ok || url == "" {
		return "", fmt.Errorf("profile image: %w", domain.ErrNotFound)
	}
	return url, nil
}

func (s *AccountService) SetProfileImage(ctx context.Context, userID, url string) error {
	if userID == "" || strings.TrimSpace(url) == "" {
		return fmt.Errorf("set profile image: %w", domain.ErrInvalidArgument)
	}
	if err := s.store.Put(ctx, domain.UserCollection(userID), profileImageKey, url); err != nil {
		return fmt.Errorf("set profile image: %w", remote(err))
	}
	return nil
}
