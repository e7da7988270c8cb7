package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackline-backend/domain/core/valueobjects"
)

func TestNewTask(t *testing.T) {
	t.Run("creates unassigned task with defaults", func(t *testing.T) {
		task, err := NewTask("user-1", "meeting-1", "Draft roadmap", "petra", "", "2026-09-15")
		require.NoError(t, err)

		assert.False(t, task.ID().IsZero())
		assert.True(t, task.IsUnassigned())
		assert.Equal(t, PriorityMedium, task.Priority())
		assert.False(t, task.Completed())
		assert.Equal(t, "2026-09-15", task.Due())
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := NewTask("", "meeting-1", "text", "", PriorityLow, "")
		assert.Error(t, err)

		_, err = NewTask("user-1", "", "text", "", PriorityLow, "")
		assert.Error(t, err)

		_, err = NewTask("user-1", "meeting-1", "", "", PriorityLow, "")
		assert.Error(t, err)
	})
}

func TestTaskAssignToProject(t *testing.T) {
	task, err := NewTask("user-1", "meeting-1", "Draft roadmap", "", PriorityHigh, "")
	require.NoError(t, err)

	projectID := valueobjects.NewProjectID()
	require.NoError(t, task.AssignToProject(projectID))
	assert.False(t, task.IsUnassigned())
	assert.True(t, task.ProjectID().Equals(projectID))

	assert.Error(t, task.AssignToProject(valueobjects.ProjectID{}))
}

func TestTaskComplete(t *testing.T) {
	task, err := NewTask("user-1", "meeting-1", "Draft roadmap", "", PriorityLow, "")
	require.NoError(t, err)

	task.Complete()
	assert.True(t, task.Completed())
}
