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

	"github.com/geekatyourspot/rankpilot/internal/api"
	"github.com/geekatyourspot/rankpilot/internal/crawler"
	"github.com/geekatyourspot/rankpilot/internal/fixes"
	"github.com/geekatyourspot/rankpilot/internal/orchestrator"
	"github.com/geekatyourspot/rankpilot/internal/platform/config"
	"github.com/geekatyourspot/rankpilot/internal/platform/logger"
	"github.com/geekatyourspot/rankpilot/internal/platform/middleware"
	"github.com/geekatyourspot/rankpilot/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	store, err := sqlite.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	renderer := crawler.NewHTTPRenderer(cfg.RenderTimeout)
	checker := crawler.NewTechnicalChecker(log)
	siteCrawler := crawler.NewCrawler(renderer, checker, cfg.CrawlConcurrency, log)
	fixGen := fixes.NewClient(cfg.FixAPIURL, cfg.FixAPIKey, cfg.FixModel, log)
	orch := orchestrator.New(siteCrawler, fixGen, store, log)

	transport := api.NewTransport(store, orch, cfg.CrawlMaxPages, log)

	mux := http.NewServeMux()
	transport.RegisterRoutes(mux)

	handler := middleware.RequestID(middleware.Logging(log)(mux))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server started", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
