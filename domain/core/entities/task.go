package entities

import (
	"time"

	"trackline-backend/domain/core/valueobjects"
	pkgerrors "trackline-backend/pkg/errors"
)

// TaskPriority represents the urgency of a task
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Task is an action item extracted from a meeting. A task with an empty
// project ID is unassigned and awaits relationship analysis.
type Task struct {
	id        valueobjects.TaskID
	userID    string
	meetingID string
	projectID valueobjects.ProjectID
	text      string
	owner     string
	priority  TaskPriority
	completed bool
	due       string
	createdAt time.Time
	updatedAt time.Time
}

// NewTask creates a new unassigned task with validation
func NewTask(userID, meetingID, text, owner string, priority TaskPriority, due string) (*Task, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if meetingID == "" {
		return nil, pkgerrors.NewValidationError("meetingID cannot be empty")
	}
	if text == "" {
		return nil, pkgerrors.NewValidationError("task text cannot be empty")
	}
	if priority == "" {
		priority = PriorityMedium
	}

	now := time.Now()
	return &Task{
		id:        valueobjects.NewTaskID(),
		userID:    userID,
		meetingID: meetingID,
		text:      text,
		owner:     owner,
		priority:  priority,
		due:       due,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructTask rebuilds a task from repository data with preserved timestamps
func ReconstructTask(
	id valueobjects.TaskID,
	userID, meetingID string,
	projectID valueobjects.ProjectID,
	text, owner string,
	priority TaskPriority,
	completed bool,
	due string,
	createdAt, updatedAt time.Time,
) (*Task, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("task ID cannot be empty")
	}
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if text == "" {
		return nil, pkgerrors.NewValidationError("task text cannot be empty")
	}

	return &Task{
		id:        id,
		userID:    userID,
		meetingID: meetingID,
		projectID: projectID,
		text:      text,
		owner:     owner,
		priority:  priority,
		completed: completed,
		due:       due,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

// ID returns the task identifier
func (t *Task) ID() valueobjects.TaskID {
	return t.id
}

// UserID returns the owning user's identifier
func (t *Task) UserID() string {
	return t.userID
}

// MeetingID returns the meeting the task was extracted from
func (t *Task) MeetingID() string {
	return t.meetingID
}

// ProjectID returns the assigned project, zero when unassigned
func (t *Task) ProjectID() valueobjects.ProjectID {
	return t.projectID
}

// Text returns the task description
func (t *Task) Text() string {
	return t.text
}

// Owner returns the person responsible for the task
func (t *Task) Owner() string {
	return t.owner
}

// Priority returns the task priority
func (t *Task) Priority() TaskPriority {
	return t.priority
}

// Completed reports whether the task is done
func (t *Task) Completed() bool {
	return t.completed
}

// Due returns the due date string, empty when none was extracted
func (t *Task) Due() string {
	return t.due
}

// CreatedAt returns the creation timestamp
func (t *Task) CreatedAt() time.Time {
	return t.createdAt
}

// UpdatedAt returns the last modification timestamp
func (t *Task) UpdatedAt() time.Time {
	return t.updatedAt
}

// IsUnassigned reports whether the task has no project yet
func (t *Task) IsUnassigned() bool {
	return t.projectID.IsZero()
}

// AssignToProject links the task to a project
func (t *Task) AssignToProject(projectID valueobjects.ProjectID) error {
	if projectID.IsZero() {
		return pkgerrors.NewValidationError("projectID cannot be empty")
	}
	t.projectID = projectID
	t.updatedAt = time.Now()
	return nil
}

// Complete marks the task as done
func (t *Task) Complete() {
	t.completed = true
	t.updatedAt = time.Now()
}
