package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"trackline-backend/application/services"
	"trackline-backend/domain/core/entities"
	"trackline-backend/pkg/auth"
)

// ProjectHandler serves project and task read endpoints
type ProjectHandler struct {
	service *services.ProjectService
	logger  *zap.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(service *services.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		logger:  logger,
	}
}

// ProjectView is the wire representation of a project
type ProjectView struct {
	ID         string                   `json:"id"`
	Name       string                   `json:"name"`
	Status     string                   `json:"status"`
	Context    string                   `json:"context,omitempty"`
	Updates    []entities.ProjectUpdate `json:"updates"`
	LastUpdate string                   `json:"lastUpdate,omitempty"`
	CreatedAt  string                   `json:"createdAt"`
	UpdatedAt  string                   `json:"updatedAt"`
}

// TaskView is the wire representation of a task
type TaskView struct {
	ID        string `json:"id"`
	MeetingID string `json:"meetingId"`
	ProjectID string `json:"projectId,omitempty"`
	Text      string `json:"text"`
	Owner     string `json:"owner,omitempty"`
	Priority  string `json:"priority"`
	Completed bool   `json:"completed"`
	Due       string `json:"due,omitempty"`
}

// ListProjects returns all of the user's projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	projects, err := h.service.ListProjects(r.Context(), user.UserID)
	if err != nil {
		h.logger.Error("Failed to list projects", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}

	views := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, toProjectView(p))
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"projects": views,
		"count":    len(views),
	})
}

// ListTasks returns all of the user's tasks
func (h *ProjectHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tasks, err := h.service.ListTasks(r.Context(), user.UserID)
	if err != nil {
		h.logger.Error("Failed to list tasks", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to list tasks")
		return
	}

	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, toTaskView(t))
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": views,
		"count": len(views),
	})
}

func toProjectView(p *entities.Project) ProjectView {
	return ProjectView{
		ID:         p.ID().String(),
		Name:       p.Name(),
		Status:     string(p.Status()),
		Context:    p.Context(),
		Updates:    p.Updates(),
		LastUpdate: p.LastUpdate(),
		CreatedAt:  p.CreatedAt().Format(time.RFC3339),
		UpdatedAt:  p.UpdatedAt().Format(time.RFC3339),
	}
}

func toTaskView(t *entities.Task) TaskView {
	return TaskView{
		ID:        t.ID().String(),
		MeetingID: t.MeetingID(),
		ProjectID: t.ProjectID().String(),
		Text:      t.Text(),
		Owner:     t.Owner(),
		Priority:  string(t.Priority()),
		Completed: t.Completed(),
		Due:       t.Due(),
	}
}

func (h *ProjectHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *ProjectHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
