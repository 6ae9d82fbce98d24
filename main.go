// Entry point for the metadata value recommender service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/valuerec/valuerec-go/pkg/config"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v":
			fmt.Println("valuerec version:", version)
			return
		case "-h", "--help", "help":
			printHelp()
			return
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printHelp() {
	fmt.Println(`valuerec - association-rule based metadata value recommender

Usage:
  valuerec             start the HTTP service
  valuerec --version   print the version

Configuration is read from environment variables:
  PORT            listen port (default 8080)
  DATA_DIR        template/instance directory (default ./data)
  RULES_DB_PATH   SQLite rule database path (default: in-memory store)
  MAPPINGS_FILE   ontology mappings YAML file (optional)
  MIN_SUPPORT     mining support threshold (default 0.05)
  MIN_CONFIDENCE  mining confidence threshold (default 0.25)
  MAX_RULES       per-template rule cap (default 500)
  REGEN_SCHEDULE  cron expression for periodic regeneration (optional)`)
}
