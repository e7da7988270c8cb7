package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"trackline-backend/application/services"
	"trackline-backend/domain/analysis"
	"trackline-backend/domain/core/entities"
	"trackline-backend/pkg/auth"
	pkgerrors "trackline-backend/pkg/errors"
	"trackline-backend/pkg/utils"
)

// AnalysisHandler serves meeting analysis and consolidation endpoints
type AnalysisHandler struct {
	service *services.ProjectService
	logger  *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service *services.ProjectService, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		logger:  logger,
	}
}

// MentionRequest is one project mention extracted from a meeting
type MentionRequest struct {
	Name    string `json:"name" validate:"required"`
	Update  string `json:"update"`
	Context string `json:"context"`
	Status  string `json:"status" validate:"omitempty,oneof=open hold done"`
	Date    string `json:"date"`
}

// AnalyzeMeetingRequest carries a meeting's extracted project mentions
type AnalyzeMeetingRequest struct {
	Mentions []MentionRequest `json:"mentions" validate:"dive"`
}

// AnalyzeMeeting resolves a meeting's project mentions against the user's projects
func (h *AnalysisHandler) AnalyzeMeeting(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingID")
	if meetingID == "" {
		h.respondError(w, http.StatusBadRequest, "Meeting ID is required")
		return
	}

	var req AnalyzeMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	mentions := make([]services.NewMention, 0, len(req.Mentions))
	for _, m := range req.Mentions {
		mentions = append(mentions, services.NewMention{
			Name:        m.Name,
			UpdateText:  m.Update,
			ContextText: m.Context,
			Status:      entities.ProjectStatus(m.Status),
			Date:        m.Date,
		})
	}

	result, err := h.service.AnalyzeMeetingProjects(r.Context(), user.UserID, meetingID, mentions)
	if err != nil {
		h.handleServiceError(w, err, "Failed to analyze meeting")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// PreviewConsolidation proposes duplicate-project merges without applying them
func (h *AnalysisHandler) PreviewConsolidation(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	preview, err := h.service.PreviewConsolidation(r.Context(), user.UserID)
	if err != nil {
		h.handleServiceError(w, err, "Failed to analyze projects")
		return
	}

	h.respondJSON(w, http.StatusOK, preview)
}

// ExecuteConsolidationRequest carries the groups accepted from a preview
type ExecuteConsolidationRequest struct {
	Groups []analysis.ConsolidationGroup `json:"groups" validate:"required,min=1"`
}

// ExecuteConsolidation applies previously previewed merge groups
func (h *AnalysisHandler) ExecuteConsolidation(w http.ResponseWriter, r *http.Request) {
	var req ExecuteConsolidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.service.ExecuteConsolidation(r.Context(), user.UserID, req.Groups)
	if err != nil {
		h.handleServiceError(w, err, "Failed to execute consolidation")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *AnalysisHandler) handleServiceError(w http.ResponseWriter, err error, fallback string) {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		h.respondError(w, appErr.HTTPStatus, appErr.Message)
		return
	}
	h.logger.Error(fallback, zap.Error(err))
	h.respondError(w, http.StatusInternalServerError, fallback)
}

func (h *AnalysisHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *AnalysisHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
