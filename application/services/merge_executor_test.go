package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trackline-backend/domain/analysis"
	"trackline-backend/domain/core/entities"
	"trackline-backend/infrastructure/persistence/memory"
)

func TestMergeExecutorExecute(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("merges duplicate projects and reassigns tasks", func(t *testing.T) {
		projectRepo := memory.NewProjectRepository()
		taskRepo := memory.NewTaskRepository()

		keep := newTestProject(t, "user-1", "Website Redesign", "Marketing site refresh")
		require.NoError(t, keep.AppendUpdate(entities.ProjectUpdate{MeetingID: "m1", Text: "Kickoff held"}))
		dup1 := newTestProject(t, "user-1", "website revamp", "New homepage")
		require.NoError(t, dup1.AppendUpdate(entities.ProjectUpdate{MeetingID: "m2", Text: "Mockups reviewed"}))
		dup2 := newTestProject(t, "user-1", "site redesign", "")

		for _, p := range []*entities.Project{keep, dup1, dup2} {
			require.NoError(t, projectRepo.Save(ctx, p))
		}

		task := newTestTask(t, "user-1", "m2", "Finalize color palette")
		require.NoError(t, task.AssignToProject(dup1.ID()))
		require.NoError(t, taskRepo.Save(ctx, task))

		executor := NewMergeExecutor(projectRepo, taskRepo, logger)
		result, err := executor.Execute(ctx, "user-1", []analysis.ConsolidationGroup{{
			KeepProjectID:    keep.ID().String(),
			SourceProjectIDs: []string{keep.ID().String(), dup1.ID().String(), dup2.ID().String()},
			MergedName:       "Website Redesign",
			MergedContext:    "Marketing site refresh including new homepage",
		}})
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.Equal(t, 3, result.OriginalCount)
		assert.Equal(t, 1, result.FinalCount)
		require.Len(t, result.Groups, 1)
		assert.Len(t, result.Groups[0].AbsorbedIDs, 2)
		assert.Equal(t, 1, result.Groups[0].UpdatesConsolidated)
		assert.Equal(t, 1, result.Groups[0].TasksReassigned)

		merged, err := projectRepo.GetByID(ctx, "user-1", keep.ID())
		require.NoError(t, err)
		assert.Equal(t, "Website Redesign", merged.Name())
		assert.Equal(t, "Marketing site refresh including new homepage", merged.Context())
		assert.Len(t, merged.Updates(), 2)

		moved, err := taskRepo.GetByID(ctx, "user-1", task.ID())
		require.NoError(t, err)
		assert.True(t, moved.ProjectID().Equals(keep.ID()))

		_, err = projectRepo.GetByID(ctx, "user-1", dup1.ID())
		assert.Error(t, err)
		_, err = projectRepo.GetByID(ctx, "user-1", dup2.ID())
		assert.Error(t, err)
	})

	t.Run("fails a later group whose kept project was absorbed", func(t *testing.T) {
		projectRepo := memory.NewProjectRepository()
		taskRepo := memory.NewTaskRepository()

		a := newTestProject(t, "user-1", "Alpha", "")
		b := newTestProject(t, "user-1", "Beta", "")
		c := newTestProject(t, "user-1", "Gamma", "")
		for _, p := range []*entities.Project{a, b, c} {
			require.NoError(t, projectRepo.Save(ctx, p))
		}

		executor := NewMergeExecutor(projectRepo, taskRepo, logger)
		result, err := executor.Execute(ctx, "user-1", []analysis.ConsolidationGroup{
			{KeepProjectID: a.ID().String(), SourceProjectIDs: []string{a.ID().String(), b.ID().String()}, MergedName: "Alpha"},
			{KeepProjectID: b.ID().String(), SourceProjectIDs: []string{b.ID().String(), c.ID().String()}, MergedName: "Beta"},
		})
		require.NoError(t, err)

		assert.False(t, result.Success)
		require.Len(t, result.Groups, 2)
		assert.Len(t, result.Groups[0].AbsorbedIDs, 1)
		assert.NotEmpty(t, result.Groups[1].Error)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, 2, result.FinalCount)

		// Gamma survives because its group failed before touching anything
		_, err = projectRepo.GetByID(ctx, "user-1", c.ID())
		assert.NoError(t, err)
	})

	t.Run("missing kept project fails that group only", func(t *testing.T) {
		projectRepo := memory.NewProjectRepository()
		taskRepo := memory.NewTaskRepository()

		a := newTestProject(t, "user-1", "Alpha", "")
		b := newTestProject(t, "user-1", "Beta", "")
		c := newTestProject(t, "user-1", "Gamma", "")
		for _, p := range []*entities.Project{a, b, c} {
			require.NoError(t, projectRepo.Save(ctx, p))
		}
		ghost := newTestProject(t, "user-1", "Ghost", "")

		executor := NewMergeExecutor(projectRepo, taskRepo, logger)
		result, err := executor.Execute(ctx, "user-1", []analysis.ConsolidationGroup{
			{KeepProjectID: ghost.ID().String(), SourceProjectIDs: []string{ghost.ID().String(), a.ID().String()}, MergedName: "Ghost"},
			{KeepProjectID: b.ID().String(), SourceProjectIDs: []string{b.ID().String(), c.ID().String()}, MergedName: "Beta"},
		})
		require.NoError(t, err)

		assert.False(t, result.Success)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, 2, result.FinalCount)

		// Alpha untouched by the failed group
		_, err = projectRepo.GetByID(ctx, "user-1", a.ID())
		assert.NoError(t, err)
	})

	t.Run("group with no surviving sources is skipped", func(t *testing.T) {
		projectRepo := memory.NewProjectRepository()
		taskRepo := memory.NewTaskRepository()

		a := newTestProject(t, "user-1", "Alpha", "")
		b := newTestProject(t, "user-1", "Beta", "")
		for _, p := range []*entities.Project{a, b} {
			require.NoError(t, projectRepo.Save(ctx, p))
		}

		executor := NewMergeExecutor(projectRepo, taskRepo, logger)
		result, err := executor.Execute(ctx, "user-1", []analysis.ConsolidationGroup{
			{KeepProjectID: a.ID().String(), SourceProjectIDs: []string{a.ID().String(), b.ID().String()}, MergedName: "Alpha"},
			{KeepProjectID: a.ID().String(), SourceProjectIDs: []string{a.ID().String(), b.ID().String()}, MergedName: "Alpha"},
		})
		require.NoError(t, err)

		assert.True(t, result.Success)
		require.Len(t, result.Groups, 2)
		assert.True(t, result.Groups[1].Skipped)
		assert.Equal(t, 1, result.FinalCount)
	})

	t.Run("rejects empty user", func(t *testing.T) {
		executor := NewMergeExecutor(memory.NewProjectRepository(), memory.NewTaskRepository(), logger)
		_, err := executor.Execute(ctx, "", nil)
		assert.Error(t, err)
	})
}
