package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/modpub/modpub/internal/activitypub"
	"github.com/modpub/modpub/internal/auth"
	"github.com/modpub/modpub/internal/config"
	"github.com/modpub/modpub/internal/db"
	"github.com/modpub/modpub/internal/handlers"
	"github.com/modpub/modpub/internal/keyvalue"
	"github.com/modpub/modpub/internal/store"
)

func main() {
	cfg := config.LoadOrDefault("config/config.yaml")

	logger, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("loaded configuration", zap.String("domain", cfg.Server.Domain))

	database, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect to databases", zap.Error(err))
	}
	defer database.Close()
	logger.Info("connected to PostgreSQL and Redis")

	kv := keyvalue.NewPostgres(database.Postgres, "modpub")
	st := store.New(kv, cfg.ActivityPub.MaxCachedActors)

	system := activitypub.NewSystem(st, database.Redis, logger, activitypub.Options{
		Domain:       cfg.Server.Domain,
		MaxClockSkew: time.Duration(cfg.ActivityPub.MaxClockSkew) * time.Second,
		KeyCacheTTL:  time.Duration(cfg.ActivityPub.KeyCacheTTL) * time.Second,
		UserAgent:    cfg.ActivityPub.UserAgent,
	})
	sessions := auth.NewSessionManager(database.Redis, time.Duration(cfg.Sessions.TTL)*time.Second)

	router := buildRouter(cfg, database, st, system, sessions, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
}

func buildRouter(
	cfg *config.Config,
	database *db.DB,
	st *store.Store,
	system *activitypub.System,
	sessions *auth.SessionManager,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Handle("/health", handlers.NewHealthHandler(database))

	discovery := handlers.NewDiscoveryHandler(st, cfg, logger)
	r.Get("/.well-known/webfinger", discovery.WebFinger)
	r.Get("/users/{username}", discovery.Actor)

	authHandler := handlers.NewAuthHandler(st, sessions, cfg, logger)
	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", authHandler.Login)

	lists := handlers.NewListsHandler(st, system, logger)
	r.Get("/admins", lists.GetAdmins)
	r.Post("/admins", lists.AddAdmins)
	r.Delete("/admins", lists.RemoveAdmins)

	inbox := handlers.NewInboxHandler(st, system, logger)
	r.Route("/{actor}", func(r chi.Router) {
		r.Get("/inbox", inbox.List)
		r.Post("/inbox", inbox.Receive)
		r.Post("/inbox/{id}", inbox.Approve)
		r.Delete("/inbox/{id}", inbox.Reject)

		r.Get("/{list}", lists.Get)
		r.Post("/{list}", lists.Add)
		r.Delete("/{list}", lists.Remove)
	})

	return r
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Logging.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
