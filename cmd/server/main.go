package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"inkpress/internal/api"
	"inkpress/internal/auth"
	"inkpress/internal/config"
	"inkpress/internal/db"
	"inkpress/internal/logging"
	redisdb "inkpress/internal/redis"
	"inkpress/internal/service"
	"inkpress/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	path := os.Getenv("INKPRESS_CONFIG")
	if path == "" {
		path = "config.json"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		path = ""
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := db.Init(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}

	rdb := redisdb.NewClient(cfg)
	if rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, online counts will be unavailable")
		}
		cancel()
		defer rdb.Close()
	} else {
		log.Info().Msg("redis not configured, presence tracking disabled")
	}

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.TokenTTL())
	if err != nil {
		log.Fatal().Err(err).Msg("token issuer init failed")
	}
	users := store.NewGormUsers(conn)
	deps := &api.Deps{
		Auth:     service.NewAuthService(users, issuer),
		Users:    service.NewUserService(users),
		Issuer:   issuer,
		Presence: auth.NewPresence(rdb, auth.DefaultPresenceTTL),
		Cookies:  auth.NewCookiePolicy(cfg),
	}

	r := api.SetupRouter(cfg, deps)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("subpath", cfg.Server.Subpath).Str("env", cfg.Server.Environment).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
