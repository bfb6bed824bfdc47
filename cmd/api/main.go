package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"nanjing_go/internal/adapters/gemini"
	server "nanjing_go/internal/adapters/http_server"
	"nanjing_go/internal/adapters/observability"
	"nanjing_go/internal/app"
	"nanjing_go/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	backend, err := shared.OpenBackend(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("opening document store failed")
	}
	defer backend.Close()

	verifier, err := backend.Verifier(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("identity verifier init failed")
	}

	// deps
	store := backend.Store
	locations := app.NewLocationService(store, app.NewFeed())
	favs := app.NewFavoritesService(store)
	h := &server.Handlers{
		Locations: locations,
		Favorites: favs,
		Accounts:  app.NewAccountService(store, favs),
		Verifier:  verifier,
	}
	if cfg.GeminiKey != "" {
		gen, err := gemini.New(cfg.GeminiBase, cfg.GeminiKey, cfg.GeminiModel, cfg.GeminiRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Gemini client")
		}
		h.Chat = app.NewChatService(store, gen, favs)
	}

	if cfg.RefreshInterval > 0 {
		log.Info().Dur("every", cfg.RefreshInterval).Str("season", cfg.RefreshSeason).Msg("location refresh enabled")
		go locations.Watch(ctx, cfg.RefreshInterval, cfg.RefreshSeason)
	}

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
