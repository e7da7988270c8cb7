package entities

import (
	"time"

	"trackline-backend/domain/core/valueobjects"
	pkgerrors "trackline-backend/pkg/errors"
)

// ProjectStatus represents the lifecycle state of a project
type ProjectStatus string

const (
	StatusOpen ProjectStatus = "open"
	StatusHold ProjectStatus = "hold"
	StatusDone ProjectStatus = "done"
)

// ValidProjectStatus reports whether s is a known project status
func ValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case StatusOpen, StatusHold, StatusDone:
		return true
	}
	return false
}

// ProjectUpdate is a single meeting-sourced note appended to a project
type ProjectUpdate struct {
	MeetingID string `json:"meetingId"`
	Text      string `json:"text"`
	Date      string `json:"date"`
}

// Project is a rich domain entity accumulating updates across meetings.
// Private fields ensure all mutation goes through behavior methods.
type Project struct {
	id         valueobjects.ProjectID
	userID     string
	name       string
	status     ProjectStatus
	context    string
	updates    []ProjectUpdate
	lastUpdate string
	createdAt  time.Time
	updatedAt  time.Time
}

// NewProject creates a new project with business rule validation
func NewProject(userID, name, contextText string, status ProjectStatus) (*Project, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("project name cannot be empty")
	}
	if status == "" {
		status = StatusOpen
	}
	if !ValidProjectStatus(status) {
		return nil, pkgerrors.NewValidationError("invalid project status: " + string(status))
	}

	now := time.Now()
	return &Project{
		id:        valueobjects.NewProjectID(),
		userID:    userID,
		name:      name,
		status:    status,
		context:   contextText,
		updates:   []ProjectUpdate{},
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructProject rebuilds a project from repository data with preserved timestamps
func ReconstructProject(
	id valueobjects.ProjectID,
	userID, name string,
	status ProjectStatus,
	contextText string,
	updates []ProjectUpdate,
	lastUpdate string,
	createdAt, updatedAt time.Time,
) (*Project, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("project ID cannot be empty")
	}
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("project name cannot be empty")
	}
	if !ValidProjectStatus(status) {
		return nil, pkgerrors.NewValidationError("invalid project status: " + string(status))
	}

	if updates == nil {
		updates = []ProjectUpdate{}
	}
	return &Project{
		id:         id,
		userID:     userID,
		name:       name,
		status:     status,
		context:    contextText,
		updates:    updates,
		lastUpdate: lastUpdate,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}, nil
}

// ID returns the project's identifier
func (p *Project) ID() valueobjects.ProjectID {
	return p.id
}

// UserID returns the owning user's identifier
func (p *Project) UserID() string {
	return p.userID
}

// Name returns the project name
func (p *Project) Name() string {
	return p.name
}

// Status returns the project status
func (p *Project) Status() ProjectStatus {
	return p.status
}

// Context returns the accumulated project context
func (p *Project) Context() string {
	return p.context
}

// Updates returns a copy of the project's update history
func (p *Project) Updates() []ProjectUpdate {
	out := make([]ProjectUpdate, len(p.updates))
	copy(out, p.updates)
	return out
}

// LastUpdate returns the text of the most recently appended update
func (p *Project) LastUpdate() string {
	return p.lastUpdate
}

// CreatedAt returns the creation timestamp
func (p *Project) CreatedAt() time.Time {
	return p.createdAt
}

// UpdatedAt returns the last modification timestamp
func (p *Project) UpdatedAt() time.Time {
	return p.updatedAt
}

// AppendUpdate records a meeting-sourced note and tracks it as the latest update
func (p *Project) AppendUpdate(update ProjectUpdate) error {
	if update.Text == "" {
		return pkgerrors.NewValidationError("update text cannot be empty")
	}
	p.updates = append(p.updates, update)
	p.lastUpdate = update.Text
	p.updatedAt = time.Now()
	return nil
}

// AbsorbUpdates appends another project's full update history, preserving order.
// Used during merges so no meeting note is lost.
func (p *Project) AbsorbUpdates(updates []ProjectUpdate) {
	if len(updates) == 0 {
		return
	}
	p.updates = append(p.updates, updates...)
	p.lastUpdate = updates[len(updates)-1].Text
	p.updatedAt = time.Now()
}

// ApplyMerge overwrites name and context with merged values, keeping the
// existing value when the merged one is empty
func (p *Project) ApplyMerge(mergedName, mergedContext string) {
	if mergedName != "" {
		p.name = mergedName
	}
	if mergedContext != "" {
		p.context = mergedContext
	}
	p.updatedAt = time.Now()
}

// SetStatus transitions the project to a new status
func (p *Project) SetStatus(status ProjectStatus) error {
	if !ValidProjectStatus(status) {
		return pkgerrors.NewValidationError("invalid project status: " + string(status))
	}
	p.status = status
	p.updatedAt = time.Now()
	return nil
}

// Rename changes the project name
func (p *Project) Rename(name string) error {
	if name == "" {
		return pkgerrors.NewValidationError("project name cannot be empty")
	}
	p.name = name
	p.updatedAt = time.Now()
	return nil
}
