package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stordesk.org/internal/appliance"
	"stordesk.org/internal/config"
	"stordesk.org/internal/httpapi"
	"stordesk.org/internal/journal"
	journalpg "stordesk.org/internal/journal/pg"
	"stordesk.org/internal/obs"
	"stordesk.org/internal/provision"
	"stordesk.org/internal/stream"
)

var (
	version = "0.4.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Durable journal when a DSN is configured; in-memory otherwise so a
	// dev instance still serves project requests.
	var recorder journal.Recorder = journal.NewInMemory()
	probe := httpapi.ReadyProbe{}
	var pgStore *journalpg.Store
	if cfg.PGDSN != "" {
		pgStore, err = journalpg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open journal db: %v", err)
		}
		recorder = pgStore
		probe.DB = pgStore.DB()
	} else {
		log.Println("STORDESK_PG_DSN not set; project requests are journaled in memory only")
	}

	// The appliance client deliberately carries no request timeout; calls
	// block until the appliance answers.
	nas := appliance.New(cfg.ApplianceURL, cfg.ApplianceToken, nil)

	events := stream.New()
	svc := provision.NewService(nas, recorder, cfg.DefaultPool, events)

	api := httpapi.New(probe, version, svc, events)
	api.SetRateLimit(cfg.RateBurst, cfg.RatePerSec)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting stordesk-api %s on %s (appliance %s)", version, srv.Addr, cfg.ApplianceURL)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
