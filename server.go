package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/valuerec/valuerec-go/pkg/config"
	"github.com/valuerec/valuerec-go/pkg/generator"
	"github.com/valuerec/valuerec-go/pkg/mappings"
	"github.com/valuerec/valuerec-go/pkg/miner"
	"github.com/valuerec/valuerec-go/pkg/rulestore"
	"github.com/valuerec/valuerec-go/pkg/scheduler"
	"github.com/valuerec/valuerec-go/pkg/status"
	"github.com/valuerec/valuerec-go/pkg/templatestore"
)

// Server wires the value recommender services behind the HTTP boundary.
type Server struct {
	router    *mux.Router
	config    *config.Config
	store     rulestore.RuleStore
	templates *templatestore.FileStore
	generator *generator.Service
	scheduler *scheduler.Service
	http      *http.Server
}

// NewServer builds the full service graph from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	templates, err := templatestore.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open template store: %w", err)
	}

	var store rulestore.RuleStore
	if cfg.RulesDBPath != "" {
		store, err = rulestore.NewSQLiteStore(cfg.RulesDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open rule store: %w", err)
		}
	} else {
		store = rulestore.NewMemoryStore()
	}

	mapper := mappings.NewService()
	if cfg.MappingsFile != "" {
		mapper, err = mappings.LoadFromFile(cfg.MappingsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load ontology mappings: %w", err)
		}
		log.Printf("Loaded ontology mappings for %d terms", mapper.Size())
	}

	gen := generator.NewService(templates, templates, store, status.NewTracker(), mapper, generator.Options{
		Miner: miner.Options{
			MinSupport:    cfg.MinSupport,
			MinConfidence: cfg.MinConfidence,
			MaxRules:      cfg.MaxRules,
		},
		FetchWorkers: cfg.FetchWorkers,
	})

	s := &Server{
		router:    mux.NewRouter(),
		config:    cfg,
		store:     store,
		templates: templates,
		generator: gen,
	}
	if cfg.RegenSchedule != "" {
		s.scheduler = scheduler.NewService(gen, templates)
	}
	s.setupRoutes()
	return s, nil
}

// Start runs the HTTP server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s.scheduler != nil {
		if err := s.scheduler.Start(s.config.RegenSchedule); err != nil {
			return err
		}
	}

	s.http = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Value recommender listening on :%s", s.config.Port)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.generator.Wait()
	return s.store.Close()
}
