// Package memory provides in-memory repository implementations used by
// tests and local development.
package memory

import (
	"context"
	"sync"

	"trackline-backend/domain/core/entities"
	"trackline-backend/domain/core/valueobjects"
	pkgerrors "trackline-backend/pkg/errors"
)

// ProjectRepository is a thread-safe in-memory project store
type ProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]map[string]*entities.Project // userID -> projectID -> project
}

// NewProjectRepository creates an empty in-memory project repository
func NewProjectRepository() *ProjectRepository {
	return &ProjectRepository{
		projects: make(map[string]map[string]*entities.Project),
	}
}

// Save persists a new project
func (r *ProjectRepository) Save(ctx context.Context, project *entities.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID := project.UserID()
	if r.projects[userID] == nil {
		r.projects[userID] = make(map[string]*entities.Project)
	}
	r.projects[userID][project.ID().String()] = project
	return nil
}

// GetByID retrieves a project by its ID
func (r *ProjectRepository) GetByID(ctx context.Context, userID string, id valueobjects.ProjectID) (*entities.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, ok := r.projects[userID][id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("project")
	}
	return project, nil
}

// GetByUserID retrieves all projects for a user
func (r *ProjectRepository) GetByUserID(ctx context.Context, userID string) ([]*entities.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Project, 0, len(r.projects[userID]))
	for _, p := range r.projects[userID] {
		out = append(out, p)
	}
	return out, nil
}

// Update persists changes to an existing project
func (r *ProjectRepository) Update(ctx context.Context, project *entities.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID := project.UserID()
	if _, ok := r.projects[userID][project.ID().String()]; !ok {
		return pkgerrors.NewNotFoundError("project")
	}
	r.projects[userID][project.ID().String()] = project
	return nil
}

// Delete removes a project
func (r *ProjectRepository) Delete(ctx context.Context, userID string, id valueobjects.ProjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[userID][id.String()]; !ok {
		return pkgerrors.NewNotFoundError("project")
	}
	delete(r.projects[userID], id.String())
	return nil
}

// TaskRepository is a thread-safe in-memory task store
type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]map[string]*entities.Task // userID -> taskID -> task
}

// NewTaskRepository creates an empty in-memory task repository
func NewTaskRepository() *TaskRepository {
	return &TaskRepository{
		tasks: make(map[string]map[string]*entities.Task),
	}
}

// Save persists a new task
func (r *TaskRepository) Save(ctx context.Context, task *entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID := task.UserID()
	if r.tasks[userID] == nil {
		r.tasks[userID] = make(map[string]*entities.Task)
	}
	r.tasks[userID][task.ID().String()] = task
	return nil
}

// GetByID retrieves a task by its ID
func (r *TaskRepository) GetByID(ctx context.Context, userID string, id valueobjects.TaskID) (*entities.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[userID][id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("task")
	}
	return task, nil
}

// GetByUserID retrieves all tasks for a user
func (r *TaskRepository) GetByUserID(ctx context.Context, userID string) ([]*entities.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Task, 0, len(r.tasks[userID]))
	for _, t := range r.tasks[userID] {
		out = append(out, t)
	}
	return out, nil
}

// GetUnassignedByMeeting retrieves a meeting's tasks that have no project yet
func (r *TaskRepository) GetUnassignedByMeeting(ctx context.Context, userID, meetingID string) ([]*entities.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entities.Task
	for _, t := range r.tasks[userID] {
		if t.MeetingID() == meetingID && t.IsUnassigned() {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetByProjectID retrieves all tasks assigned to a project
func (r *TaskRepository) GetByProjectID(ctx context.Context, userID string, projectID valueobjects.ProjectID) ([]*entities.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entities.Task
	for _, t := range r.tasks[userID] {
		if t.ProjectID().Equals(projectID) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Update persists changes to an existing task
func (r *TaskRepository) Update(ctx context.Context, task *entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID := task.UserID()
	if _, ok := r.tasks[userID][task.ID().String()]; !ok {
		return pkgerrors.NewNotFoundError("task")
	}
	r.tasks[userID][task.ID().String()] = task
	return nil
}

// Delete removes a task
func (r *TaskRepository) Delete(ctx context.Context, userID string, id valueobjects.TaskID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[userID][id.String()]; !ok {
		return pkgerrors.NewNotFoundError("task")
	}
	delete(r.tasks[userID], id.String())
	return nil
}
