package shared

import (
	"context"
	"database/sql"
	"fmt"

	fb "firebase.google.com/go/v4"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"nanjing_go/internal/adapters/firebase"
	redisad "nanjing_go/internal/adapters/redis"
	"nanjing_go/internal/domain"
	mysqlrepo "nanjing_go/internal/storage/mysql"
	"nanjing_go/internal/storage/rtdb"
)

// Backend is the document store chosen by STORE_BACKEND plus whatever it
// holds open.
type Backend struct {
	Store   domain.DocumentStore
	fbApp   *fb.App
	closers []func() error
}

func OpenBackend(ctx context.Context, cfg Config) (*Backend, error) {
	b := &Backend{}
	switch cfg.StoreBackend {
	case "firebase", "rtdb", "":
		app, err := b.firebase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client, err := app.Database(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase database: %w", err)
		}
		b.Store = rtdb.New(client)

	case "redis":
		s := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		b.Store = s
		b.closers = append(b.closers, s.Close)

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db.Ping: %w", err)
		}
		b.Store = mysqlrepo.New(db)
		b.closers = append(b.closers, db.Close)

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	log.Info().Str("backend", cfg.StoreBackend).Msg("document store ready")
	return b, nil
}

// Verifier builds the identity verifier for AUTH_MODE.
func (b *Backend) Verifier(ctx context.Context, cfg Config) (domain.IdentityVerifier, error) {
	if cfg.AuthMode == "header" {
		log.Warn().Msg("using header identity; never expose this outside development")
		return firebase.HeaderVerifier{}, nil
	}
	app, err := b.firebase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return firebase.NewTokenVerifier(ctx, app)
}

func (b *Backend) firebase(ctx context.Context, cfg Config) (*fb.App, error) {
	if b.fbApp != nil {
		return b.fbApp, nil
	}
	app, err := firebase.NewApp(ctx, firebase.Config{
		ProjectID:       cfg.FirebaseProjectID,
		DatabaseURL:     cfg.FirebaseDatabaseURL,
		CredentialsFile: cfg.FirebaseCredentials,
	})
	if err != nil {
		return nil, err
	}
	b.fbApp = app
	return app, nil
}

func (b *Backend) Close() {
	for _, c := range b.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("closing backend")
		}
	}
}
