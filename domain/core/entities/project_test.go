package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProject(t *testing.T) {
	t.Run("creates project with defaults", func(t *testing.T) {
		p, err := NewProject("user-1", "Website Redesign", "Marketing site refresh", "")
		require.NoError(t, err)

		assert.False(t, p.ID().IsZero())
		assert.Equal(t, "user-1", p.UserID())
		assert.Equal(t, "Website Redesign", p.Name())
		assert.Equal(t, StatusOpen, p.Status())
		assert.Empty(t, p.Updates())
		assert.Empty(t, p.LastUpdate())
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := NewProject("", "Name", "", StatusOpen)
		assert.Error(t, err)

		_, err = NewProject("user-1", "", "", StatusOpen)
		assert.Error(t, err)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := NewProject("user-1", "Name", "", ProjectStatus("archived"))
		assert.Error(t, err)
	})
}

func TestProjectAppendUpdate(t *testing.T) {
	p, err := NewProject("user-1", "Alpha", "", StatusOpen)
	require.NoError(t, err)

	require.NoError(t, p.AppendUpdate(ProjectUpdate{MeetingID: "m1", Text: "Kickoff held", Date: "2026-08-01"}))
	require.NoError(t, p.AppendUpdate(ProjectUpdate{MeetingID: "m2", Text: "Budget approved", Date: "2026-08-15"}))

	updates := p.Updates()
	require.Len(t, updates, 2)
	assert.Equal(t, "Kickoff held", updates[0].Text)
	assert.Equal(t, "Budget approved", p.LastUpdate())

	assert.Error(t, p.AppendUpdate(ProjectUpdate{MeetingID: "m3"}))
}

func TestProjectAbsorbUpdates(t *testing.T) {
	p, err := NewProject("user-1", "Alpha", "", StatusOpen)
	require.NoError(t, err)
	require.NoError(t, p.AppendUpdate(ProjectUpdate{MeetingID: "m1", Text: "First"}))

	p.AbsorbUpdates([]ProjectUpdate{
		{MeetingID: "m2", Text: "Second"},
		{MeetingID: "m3", Text: "Third"},
	})

	require.Len(t, p.Updates(), 3)
	assert.Equal(t, "Third", p.LastUpdate())

	// Absorbing nothing changes nothing
	p.AbsorbUpdates(nil)
	assert.Len(t, p.Updates(), 3)
}

func TestProjectApplyMerge(t *testing.T) {
	p, err := NewProject("user-1", "Alpha", "old context", StatusOpen)
	require.NoError(t, err)

	p.ApplyMerge("Alpha Initiative", "combined context")
	assert.Equal(t, "Alpha Initiative", p.Name())
	assert.Equal(t, "combined context", p.Context())

	// Empty merged values keep the existing ones
	p.ApplyMerge("", "")
	assert.Equal(t, "Alpha Initiative", p.Name())
	assert.Equal(t, "combined context", p.Context())
}

func TestProjectUpdatesReturnsCopy(t *testing.T) {
	p, err := NewProject("user-1", "Alpha", "", StatusOpen)
	require.NoError(t, err)
	require.NoError(t, p.AppendUpdate(ProjectUpdate{MeetingID: "m1", Text: "First"}))

	updates := p.Updates()
	updates[0].Text = "mutated"
	assert.Equal(t, "First", p.Updates()[0].Text)
}

func TestProjectSetStatus(t *testing.T) {
	p, err := NewProject("user-1", "Alpha", "", StatusOpen)
	require.NoError(t, err)

	require.NoError(t, p.SetStatus(StatusDone))
	assert.Equal(t, StatusDone, p.Status())

	assert.Error(t, p.SetStatus(ProjectStatus("bogus")))
}
