package main

import (
	"flag"
	"log"
	"net/http"

	"phone-lookup/internal/api"
	"phone-lookup/internal/config"
	"phone-lookup/internal/phonedb"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load the phone database
	log.Printf("Loading phone database: %s", cfg.Database.Path)
	engine, err := phonedb.Load(cfg.Database.Path, cfg.Cache.Enabled, cfg.Cache.MaxSize)
	if err != nil {
		log.Fatalf("Failed to load phone database: %v", err)
	}
	log.Printf("Database loaded: version %s, %d prefixes", engine.Version(), engine.IndexCount())

	// Create server with the shared engine
	server := api.NewServer(engine, cfg.Batch.Workers)

	s := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Routes(),
	}

	log.Printf("Starting server on %s", cfg.Server.Addr)
	if err := s.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
