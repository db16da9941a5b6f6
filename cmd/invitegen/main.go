package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invitegen/internal/audit"
	"invitegen/internal/batch"
	"invitegen/internal/config"
	"invitegen/internal/logger"
	"invitegen/internal/metrics"
	"invitegen/internal/publish"
	"invitegen/internal/render"
	"invitegen/internal/server"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logg := logger.New(cfg.Logging.Level)
	slog.SetDefault(logg)

	renderer, err := render.NewFromFile(cfg.Render.TemplatePath)
	if err != nil {
		log.Fatalf("load template: %v", err)
	}

	var rec *audit.Recorder
	if cfg.Audit.Path != "" {
		rec, err = audit.Open(cfg.Audit.Path, logg)
		if err != nil {
			log.Fatalf("open audit store: %v", err)
		}
		defer rec.Close()
	}

	var store *publish.Store
	if cfg.Publish.Mode == config.ModeLink {
		store, err = publish.NewStore(cfg.Publish.Dir, cfg.Publish.BaseURL, cfg.Publish.CleanupDelay(), logg)
		if err != nil {
			log.Fatalf("open publish store: %v", err)
		}
	}

	m := metrics.New()
	srv := server.New(server.Options{
		Pipeline:  batch.New(renderer, m, logg),
		Store:     store,
		Mode:      cfg.Publish.Mode,
		Metrics:   m,
		Audit:     rec,
		Logger:    logg,
		MaxUpload: cfg.Server.MaxUploadBytes,
	})

	httpSrv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: srv.Routes(),
	}
	go func() {
		logg.Info("listening", "addr", cfg.Server.ListenAddr, "mode", cfg.Publish.Mode)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logg.Error("shutdown", "error", err)
	}
	logg.Info("stopped")
}
