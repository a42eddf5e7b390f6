package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/utils"
)

// handleStartCrawling bootstraps the workflow and requests the crawl.
func (s *Server) handleStartCrawling(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	var req model.StartCrawlingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if _, err := s.service.StartOnboarding(r.Context(), accountID, req); err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, map[string]string{"status": "started"})
}

// handleWebhook receives crawler progress callbacks addressed by the
// workflow id and replies with the updated record snapshot.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflow_id")

	var event model.WebhookEventPayload
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	record, err := s.service.HandleWebhook(r.Context(), workflowID, event)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, record)
}

// handleStatus returns the record snapshot, creating it lazily so the
// front end can poll before start-crawling was ever called.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	record, err := s.service.GetOrCreateStatus(r.Context(), accountID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, record)
}

// handlePatch applies the front-end owned fields to an existing record.
func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	var req model.PatchOnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	record, err := s.service.PatchOnboarding(r.Context(), accountID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, record)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady runs the registered dependency checks.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	failures := map[string]string{}
	for name, check := range s.readiness {
		if err := check(r.Context()); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		utils.WriteJSONResponse(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "unavailable",
			"failures": failures,
		})
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeError maps workflow errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var status int
	switch {
	case apperrors.IsValidationError(err), apperrors.IsBadRequestError(err):
		status = http.StatusBadRequest
	case apperrors.IsNotFoundError(err):
		status = http.StatusNotFound
	case apperrors.IsCrawlStartError(err):
		status = http.StatusBadGateway
	case apperrors.IsDuplicateError(err):
		status = http.StatusConflict
	default:
		// Data integrity faults land here on purpose: they must be loud.
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Warn("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	utils.WriteJSONResponse(w, status, map[string]string{"error": err.Error()})
}
