package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tribuna.app/internal/auth"
	"tribuna.app/internal/catalog"
	"tribuna.app/internal/config"
	"tribuna.app/internal/httpapi"
	"tribuna.app/internal/obs"
	"tribuna.app/internal/session"
	"tribuna.app/internal/store/pg"
)

func main() {
	// Local development convenience; the file is optional.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	auth.Configure(cfg.AuthSecret)

	obs.Init()
	obs.InitBuildInfo(cfg.Version, cfg.Commit)

	provider := catalog.NewDemo(time.Now().UTC())

	// The archive is optional: without a DSN purchases live only in
	// process memory, matching the client-side core.
	var archive *pg.Store
	apiOpts := []httpapi.APIOption{
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
	}
	registryOpts := []session.Option{}
	if cfg.PostgresDSN != "" {
		archive, err = pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open archive: %v", err)
		}
		apiOpts = append(apiOpts, httpapi.WithArchive(archive))
		registryOpts = append(registryOpts, session.WithArchiver(archive))
	}

	registry := session.NewRegistry(provider, registryOpts...)

	probe := httpapi.ReadyProbe{}
	if archive != nil {
		probe.DB = archive.DB()
	}
	api := httpapi.New(probe, cfg.Version, registry, provider, apiOpts...)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting tribuna-api %s on %s", cfg.Version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if archive != nil {
		_ = archive.Close()
	}
	log.Println("Stopped")
}
