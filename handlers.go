package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/valuerec/valuerec-go/pkg/models"
)

// handleHealth returns basic service health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleRecommend answers a value recommendation request
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestResponse(w, "invalid request body: "+err.Error())
		return
	}

	recommendation, err := s.generator.Recommend(r.Context(), &req)
	if err != nil {
		writeDomainErrorResponse(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, recommendation)
}

// handleCanGenerate reports whether rules exist for a template (or at all)
func (s *Server) handleCanGenerate(w http.ResponseWriter, r *http.Request) {
	templateID := r.URL.Query().Get("templateId")
	can, err := s.generator.CanGenerateRecommendations(r.Context(), templateID)
	if err != nil {
		writeDomainErrorResponse(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"templateId":                 templateID,
		"canGenerateRecommendations": can,
	})
}

// GenerateRulesRequest names the templates to mine
type GenerateRulesRequest struct {
	TemplateIDs []string `json:"templateIds"`
}

// handleGenerateRules dispatches asynchronous rule generation and returns
// immediately; progress is polled via the generation-status endpoints
func (s *Server) handleGenerateRules(w http.ResponseWriter, r *http.Request) {
	var req GenerateRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestResponse(w, "invalid request body: "+err.Error())
		return
	}
	if len(req.TemplateIDs) == 0 {
		writeBadRequestResponse(w, "templateIds is required")
		return
	}

	s.generator.GenerateRules(req.TemplateIDs)
	writeJSONResponse(w, http.StatusAccepted, map[string]any{
		"dispatched":  len(req.TemplateIDs),
		"templateIds": req.TemplateIDs,
	})
}

// handleListRuleTemplates lists templates with indexed rules
func (s *Server) handleListRuleTemplates(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.ListTemplateIDs(r.Context())
	if err != nil {
		writeDomainErrorResponse(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"templateIds": ids})
}

// handleListGenerationStatus returns all generation status entries
func (s *Server) handleListGenerationStatus(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, s.generator.GenerationStatuses())
}

// handleGetGenerationStatus returns one template's generation status
func (s *Server) handleGetGenerationStatus(w http.ResponseWriter, r *http.Request) {
	templateID := mux.Vars(r)["templateId"]
	st, err := s.generator.GenerationStatus(templateID)
	if err != nil {
		writeDomainErrorResponse(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, st)
}

// handleCancelGeneration cancels an in-flight generation run
func (s *Server) handleCancelGeneration(w http.ResponseWriter, r *http.Request) {
	templateID := mux.Vars(r)["templateId"]
	if err := s.generator.CancelGeneration(templateID); err != nil {
		writeDomainErrorResponse(w, err)
		return
	}
	writeOperationSuccessResponse(w, "generation cancelled", "templateId", templateID)
}

// writeDomainErrorResponse maps the service error taxonomy onto HTTP
// status codes
func writeDomainErrorResponse(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		writeBadRequestResponse(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeErrorResponse(w, http.StatusNotFound, err.Error())
	default:
		writeInternalServerErrorResponse(w, err.Error())
	}
}
