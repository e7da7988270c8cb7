package ports

import (
	"context"

	"trackline-backend/domain/core/entities"
	"trackline-backend/domain/core/valueobjects"
)

// ProjectRepository defines the interface for project persistence
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type ProjectRepository interface {
	// Save persists a new project
	Save(ctx context.Context, project *entities.Project) error

	// GetByID retrieves a project by its ID
	GetByID(ctx context.Context, userID string, id valueobjects.ProjectID) (*entities.Project, error)

	// GetByUserID retrieves all projects for a user
	GetByUserID(ctx context.Context, userID string) ([]*entities.Project, error)

	// Update persists changes to an existing project
	Update(ctx context.Context, project *entities.Project) error

	// Delete removes a project
	Delete(ctx context.Context, userID string, id valueobjects.ProjectID) error
}

// TaskRepository defines the interface for task persistence
type TaskRepository interface {
	// Save persists a new task
	Save(ctx context.Context, task *entities.Task) error

	// GetByID retrieves a task by its ID
	GetByID(ctx context.Context, userID string, id valueobjects.TaskID) (*entities.Task, error)

	// GetByUserID retrieves all tasks for a user
	GetByUserID(ctx context.Context, userID string) ([]*entities.Task, error)

	// GetUnassignedByMeeting retrieves a meeting's tasks that have no project yet
	GetUnassignedByMeeting(ctx context.Context, userID, meetingID string) ([]*entities.Task, error)

	// GetByProjectID retrieves all tasks assigned to a project
	GetByProjectID(ctx context.Context, userID string, projectID valueobjects.ProjectID) ([]*entities.Task, error)

	// Update persists changes to an existing task
	Update(ctx context.Context, task *entities.Task) error

	// Delete removes a task
	Delete(ctx context.Context, userID string, id valueobjects.TaskID) error
}
