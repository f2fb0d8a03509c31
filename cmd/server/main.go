package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/courtside/internal/auth"
	"github.com/freeeve/courtside/internal/config"
	"github.com/freeeve/courtside/internal/handler"
	"github.com/freeeve/courtside/internal/logger"
	"github.com/freeeve/courtside/internal/middleware"
	"github.com/freeeve/courtside/internal/realtime"
	"github.com/freeeve/courtside/internal/repository/postgres"
	redisrepo "github.com/freeeve/courtside/internal/repository/redis"
	"github.com/freeeve/courtside/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger.Init()
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
	log.Info().Msg("Server stopped")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Info().Str("port", cfg.Port).Dur("pollInterval", cfg.PollInterval).Msg("Config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := postgres.Migrate(ctx, db, cfg.MigrationsDir); err != nil {
			return err
		}
	}

	// Redis
	redisClient, err := redisrepo.NewClient(ctx, cfg.RedisURL, cfg.StateTTL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// Services
	matchRepo := postgres.NewMatchRepo(db)
	stateSvc := service.NewStateService(matchRepo, redisClient)
	matchSvc := service.NewMatchService(matchRepo)

	rt := realtime.NewService(stateSvc, cfg.PollInterval, logger.Get())
	defer rt.Close()

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)

	// WebSocket hub
	wsHub := handler.NewHub(rt)

	// Handlers
	stateHandler := handler.NewStateHandler(stateSvc, rt)
	matchHandler := handler.NewMatchHandler(matchSvc)
	healthHandler := handler.NewHealthHandler(rt, wsHub,
		handler.HealthCheck{Name: "postgres", Probe: db.PingContext},
		handler.HealthCheck{Name: "redis", Probe: redisClient.Ping},
	)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr, middleware.OriginChecker(cfg.CORSOrigins))

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)
	scorer := func(h http.HandlerFunc) http.Handler { return auth.RequireScorer(h) }

	mux.HandleFunc("GET /healthz", healthHandler.Health)

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /matches", matchHandler.ListMatches)
	api.Handle("POST /matches", scorer(matchHandler.CreateMatch))
	api.HandleFunc("GET /matches/{id}", matchHandler.GetMatch)
	api.HandleFunc("GET /matches/{id}/state", stateHandler.GetState)
	api.Handle("PATCH /matches/{id}/state", scorer(stateHandler.PatchState))

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.CORS(cfg.CORSOrigins), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server")

		// Hijacked WebSocket connections are not closed by Shutdown.
		wsHub.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
