package firebase

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"

	"nanjing_go/internal/domain"
)

type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// TokenVerifier checks Firebase ID tokens.
type TokenVerifier struct{ c tokenVerifier }

func NewTokenVerifier(ctx context.Context, app *fb.App) (*TokenVerifier, error) {
	c, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return &TokenVerifier{c: c}, nil
}

func (v *TokenVerifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	tok, err := v.c.VerifyIDToken(ctx, token)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	email, _ := tok.Claims["email"].(string)
	return domain.Identity{UserID: tok.UID, Email: email}, nil
}

// HeaderVerifier trusts a "uid:email" token as-is. Development only.
type HeaderVerifier struct{}

func (HeaderVerifier) Verify(_ context.Context, token string) (domain.Identity, error) {
	uid, email, _ := strings.Cut(strings.TrimSpace(token), ":")
	if uid == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return domain.Identity{}, fmt.Errorf("%w: bad email", domain.ErrUnauthenticated)
		}
	}
	return domain.Identity{UserID: uid, Email: email}, nil
}
