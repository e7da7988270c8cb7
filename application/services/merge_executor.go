package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"trackline-backend/application/ports"
	"trackline-backend/domain/analysis"
	"trackline-backend/domain/core/entities"
	"trackline-backend/domain/core/valueobjects"
	pkgerrors "trackline-backend/pkg/errors"
)

// GroupResult records the outcome of executing one consolidation group
type GroupResult struct {
	KeepProjectID       string   `json:"keepProjectId"`
	AbsorbedIDs         []string `json:"absorbedIds"`
	UpdatesConsolidated int      `json:"updatesConsolidated"`
	TasksReassigned     int      `json:"tasksReassigned"`
	Skipped             bool     `json:"skipped,omitempty"`
	Error               string   `json:"error,omitempty"`
}

// MergeResult is the outcome of an entire consolidation run
type MergeResult struct {
	OriginalCount int           `json:"originalCount"`
	FinalCount    int           `json:"finalCount"`
	Groups        []GroupResult `json:"groups"`
	Errors        []string      `json:"errors,omitempty"`
	Success       bool          `json:"success"`
}

// MergeExecutor applies accepted consolidation groups. Each group is
// executed independently so one failure never blocks the others, and
// nothing is ever rolled back: a partially merged group keeps whatever
// progress it made. Source projects are deleted only after their update
// history is safely absorbed and their tasks reassigned.
type MergeExecutor struct {
	projectRepo ports.ProjectRepository
	taskRepo    ports.TaskRepository
	logger      *zap.Logger
}

// NewMergeExecutor creates a merge executor
func NewMergeExecutor(projectRepo ports.ProjectRepository, taskRepo ports.TaskRepository, logger *zap.Logger) *MergeExecutor {
	return &MergeExecutor{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		logger:      logger,
	}
}

// Execute applies the given groups for a user. The absorbed-ID set is
// scoped to this run: once a project is absorbed, any later group that
// references it is skipped rather than executed against a deleted project.
func (e *MergeExecutor) Execute(ctx context.Context, userID string, groups []analysis.ConsolidationGroup) (*MergeResult, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}

	projects, err := e.projectRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load projects")
	}

	result := &MergeResult{
		OriginalCount: len(projects),
		Groups:        make([]GroupResult, 0, len(groups)),
	}

	absorbed := make(map[string]bool)
	totalAbsorbed := 0

	for _, g := range groups {
		gr := e.executeGroup(ctx, userID, g, absorbed)
		result.Groups = append(result.Groups, gr)
		totalAbsorbed += len(gr.AbsorbedIDs)
		if gr.Error != "" {
			result.Errors = append(result.Errors, gr.Error)
		}
	}

	result.FinalCount = result.OriginalCount - totalAbsorbed
	result.Success = len(result.Errors) == 0

	e.logger.Info("consolidation run complete",
		zap.String("userID", userID),
		zap.Int("groups", len(groups)),
		zap.Int("absorbed", totalAbsorbed),
		zap.Int("originalCount", result.OriginalCount),
		zap.Int("finalCount", result.FinalCount),
		zap.Bool("success", result.Success))

	return result, nil
}

func (e *MergeExecutor) executeGroup(ctx context.Context, userID string, g analysis.ConsolidationGroup, absorbed map[string]bool) GroupResult {
	gr := GroupResult{KeepProjectID: g.KeepProjectID, AbsorbedIDs: []string{}}

	if absorbed[g.KeepProjectID] {
		gr.Error = fmt.Sprintf("group %s: kept project was already absorbed by an earlier group", g.KeepProjectID)
		return gr
	}

	keepID, err := valueobjects.NewProjectIDFromString(g.KeepProjectID)
	if err != nil {
		gr.Error = fmt.Sprintf("group %s: invalid keep project ID: %v", g.KeepProjectID, err)
		return gr
	}

	keep, err := e.projectRepo.GetByID(ctx, userID, keepID)
	if err != nil {
		gr.Error = fmt.Sprintf("group %s: kept project not found: %v", g.KeepProjectID, err)
		return gr
	}

	// Load sources up front, dropping the kept project itself and any
	// already absorbed or missing IDs
	type loadedSource struct {
		id      valueobjects.ProjectID
		project *entities.Project
	}
	var sources []loadedSource
	for _, sid := range g.SourceProjectIDs {
		if sid == g.KeepProjectID {
			continue
		}
		if absorbed[sid] {
			e.logger.Warn("dropping already-absorbed source from group",
				zap.String("sourceProjectId", sid),
				zap.String("keepProjectId", g.KeepProjectID))
			continue
		}
		srcID, err := valueobjects.NewProjectIDFromString(sid)
		if err != nil {
			gr.Error = appendErr(gr.Error, fmt.Sprintf("group %s: invalid source ID %s: %v", g.KeepProjectID, sid, err))
			continue
		}
		src, err := e.projectRepo.GetByID(ctx, userID, srcID)
		if err != nil {
			gr.Error = appendErr(gr.Error, fmt.Sprintf("group %s: source %s not found: %v", g.KeepProjectID, sid, err))
			continue
		}
		sources = append(sources, loadedSource{id: srcID, project: src})
	}

	if len(sources) == 0 {
		gr.Skipped = gr.Error == ""
		return gr
	}

	// Absorb update histories and apply the merged identity before any
	// destructive step
	for _, s := range sources {
		keep.AbsorbUpdates(s.project.Updates())
		gr.UpdatesConsolidated += len(s.project.Updates())
	}
	keep.ApplyMerge(g.MergedName, g.MergedContext)

	if err := e.projectRepo.Update(ctx, keep); err != nil {
		gr.Error = appendErr(gr.Error, fmt.Sprintf("group %s: failed to update kept project: %v", g.KeepProjectID, err))
		return gr
	}

	// Reassign each source's tasks, then delete the source. A source whose
	// tasks could not all be moved is left in place so no task is orphaned.
	for _, s := range sources {
		moved, err := e.reassignTasks(ctx, userID, s.id, keepID)
		gr.TasksReassigned += moved
		if err != nil {
			gr.Error = appendErr(gr.Error, fmt.Sprintf("group %s: failed to reassign tasks from %s: %v", g.KeepProjectID, s.id.String(), err))
			continue
		}
		if err := e.projectRepo.Delete(ctx, userID, s.id); err != nil {
			gr.Error = appendErr(gr.Error, fmt.Sprintf("group %s: failed to delete source %s: %v", g.KeepProjectID, s.id.String(), err))
			continue
		}
		absorbed[s.id.String()] = true
		gr.AbsorbedIDs = append(gr.AbsorbedIDs, s.id.String())
	}

	return gr
}

func (e *MergeExecutor) reassignTasks(ctx context.Context, userID string, from, to valueobjects.ProjectID) (int, error) {
	tasks, err := e.taskRepo.GetByProjectID(ctx, userID, from)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, t := range tasks {
		if err := t.AssignToProject(to); err != nil {
			return moved, err
		}
		if err := e.taskRepo.Update(ctx, t); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func appendErr(existing, msg string) string {
	if existing == "" {
		return msg
	}
	return existing + "; " + msg
}
