package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// ProjectID is a value object representing a unique project identifier
// Value objects are immutable and have no identity beyond their value
type ProjectID struct {
	value string
}

// NewProjectID creates a new random ProjectID
func NewProjectID() ProjectID {
	return ProjectID{value: uuid.New().String()}
}

// NewProjectIDFromString creates a ProjectID from an existing string
func NewProjectIDFromString(id string) (ProjectID, error) {
	if id == "" {
		return ProjectID{}, errors.New("project ID cannot be empty")
	}
	if !isValidUUID(id) {
		return ProjectID{}, errors.New("project ID must be a valid UUID")
	}
	return ProjectID{value: id}, nil
}

// String returns the string representation of the ProjectID
func (id ProjectID) String() string {
	return id.value
}

// Equals checks if two ProjectIDs are equal
func (id ProjectID) Equals(other ProjectID) bool {
	return id.value == other.value
}

// IsZero checks if the ProjectID is the zero value
func (id ProjectID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id ProjectID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ProjectID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("ProjectID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// TaskID is a value object representing a unique task identifier
type TaskID struct {
	value string
}

// NewTaskID creates a new random TaskID
func NewTaskID() TaskID {
	return TaskID{value: uuid.New().String()}
}

// NewTaskIDFromString creates a TaskID from an existing string
func NewTaskIDFromString(id string) (TaskID, error) {
	if id == "" {
		return TaskID{}, errors.New("task ID cannot be empty")
	}
	if !isValidUUID(id) {
		return TaskID{}, errors.New("task ID must be a valid UUID")
	}
	return TaskID{value: id}, nil
}

// String returns the string representation of the TaskID
func (id TaskID) String() string {
	return id.value
}

// Equals checks if two TaskIDs are equal
func (id TaskID) Equals(other TaskID) bool {
	return id.value == other.value
}

// IsZero checks if the TaskID is the zero value
func (id TaskID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id TaskID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *TaskID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("TaskID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// isValidUUID validates if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
