package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	SetupLogging(cfg.LogLevel, cfg.LogPretty)

	var db *DB
	if cfg.DBPath != "" {
		db, err = OpenDB(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
		}
		defer db.Close()
	}

	auth := NewAuth(db, cfg.JWTSecret)
	analytics := NewAnalytics(db)

	deps := ArenaDeps{Tracker: analytics}
	if db != nil {
		deps.Migration = db
		deps.Recorder = db
	} else {
		log.Warn().Msg("no database configured, host migration limited to this process")
		deps.Migration = NewMemoryMigrationStore()
	}
	sessions := NewSessionManager(cfg.ArenaConfig(), deps)

	hub := NewHub(sessions, db, auth, analytics)
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sessions.RunJanitor(ctx)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: SetupRoutes(hub, RouteOptions{ClientDir: cfg.ClientDir, PublicURL: cfg.PublicURL}),
	}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("client", cfg.ClientDir).Msg("server starting")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe")
		}
	}()

	<-stop
	log.Info().Msg("shutting down, saving matches for the next host")
	cancel()
	sessions.MigrateAll()
	analytics.Stop()

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err := server.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("shutdown")
	}
}
