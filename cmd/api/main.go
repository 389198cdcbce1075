package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/routines/internal/api"
	"example.com/routines/internal/bootstrap"
	"example.com/routines/internal/config"
	httptransport "example.com/routines/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := bootstrap.Open(ctx, cfg, log.Default())
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	handler := api.NewHandler(rt.Service)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, httptransport.Chain(mux,
		httptransport.WithRequestLog(log.Default()),
		httptransport.WithCORS(cfg.CORSOrigin),
		httptransport.WithTimeout(cfg.RequestTimeout),
	))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("routine-service listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
