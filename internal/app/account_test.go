package app_test

import (
	"context"
	"errors"
	"testing"

	"nanjing_go/internal/app"
	"nanjing_go/internal/domain"
)

func TestAccount_RegisterAndProfile(t *testing.T) {
	store := newFakeStore()
	favs := app.NewFavoritesService(store)
	acc := app.NewAccountService(store, favs)
	ctx := context.Background()
	id := domain.Identity{UserID: "u1", Email: "mei@example.com"}

	if err := acc.Register(ctx, id); err != nil {
		t.Fatalf("Register: %v", err)
	}
	var username string
	if ok, _ := store.Get(ctx, domain.UserCollection("u1"), "username", &username); !ok || username != "mei" {
		t.Fatalf("username not stored: %q", username)
	}

	p := acc.Profile(ctx, id)
	if p.Username != "mei" || p.Email != "mei@example.com" || p.ProfileImageURL != "" || len(p.Favorites) != 0 {
		t.Fatalf("unexpected profile: %+v", p)
	}

	if err := acc.SetProfileImage(ctx, "u1", "https://cdn.example.com/u1.jpg"); err != nil {
		t.Fatalf("SetProfileImage: %v", err)
	}
	_ = favs.Add(ctx, "u1", domain.Location{Name: "Xuanwu Lake"})

	p = acc.Profile(ctx, id)
	if p.ProfileImageURL != "https://cdn.example.com/u1.jpg" || names(p.Favorites) != "Xuanwu Lake" {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestAccount_ProfileImageMissing(t *testing.T) {
	acc := app.NewAccountService(newFakeStore(), app.NewFavoritesService(newFakeStore()))

	if _, err := acc.ProfileImage(context.Background(), "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := acc.SetProfileImage(context.Background(), "u1", " "); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
