package main

import "net/http"

// setupRoutes sets up the HTTP routes with API versioning
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.errorRecoveryMiddleware)

	// Health check (no version)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	// Recommendation
	v1.HandleFunc("/recommend", s.handleRecommend).Methods(http.MethodPost)
	v1.HandleFunc("/recommend/can-generate", s.handleCanGenerate).Methods(http.MethodGet)

	// Rule generation
	v1.HandleFunc("/rules/generate", s.handleGenerateRules).Methods(http.MethodPost)
	v1.HandleFunc("/rules/templates", s.handleListRuleTemplates).Methods(http.MethodGet)

	// Generation status
	v1.HandleFunc("/generation-status", s.handleListGenerationStatus).Methods(http.MethodGet)
	v1.HandleFunc("/generation-status/{templateId}", s.handleGetGenerationStatus).Methods(http.MethodGet)
	v1.HandleFunc("/generation-status/{templateId}/cancel", s.handleCancelGeneration).Methods(http.MethodPost)
}
