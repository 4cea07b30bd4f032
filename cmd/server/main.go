package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/matthewbaird/reviewsummary/internal/config"
	"github.com/matthewbaird/reviewsummary/internal/eventbus"
	"github.com/matthewbaird/reviewsummary/internal/labelstore"
	"github.com/matthewbaird/reviewsummary/internal/preview"
	"github.com/matthewbaird/reviewsummary/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("SUMMARY_CONFIG"), "path to a YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer closeStore()

	bus := eventbus.New(256)
	bus.Subscribe("log", eventbus.NewLogConsumer())
	var hub *preview.Hub
	if cfg.Preview.Enabled {
		hub = preview.NewHub()
		bus.Subscribe("preview", hub)
	}
	bus.Start(ctx)
	defer bus.Stop()

	router := server.NewRouter(cfg, server.Deps{Store: store, Events: bus, Hub: hub})
	if err := server.Run(ctx, cfg, router); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (labelstore.Store, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Println("using in-memory label document store")
		return labelstore.NewMemoryStore(cfg.Store.MaxDocumentBytes), func() {}, nil
	}

	db, err := labelstore.OpenSQLite(cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	store := labelstore.NewSQLiteStore(db, cfg.Store.MaxDocumentBytes)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Println("database migrated successfully")
	return store, func() { db.Close() }, nil
}
