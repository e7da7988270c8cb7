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
	"trackline-backend/pkg/utils"
)

// MentionOutcome records what happened to one mentioned project
type MentionOutcome struct {
	Name      string `json:"name"`
	Action    string `json:"action"`
	ProjectID string `json:"projectId"`
	Reasoning string `json:"reasoning,omitempty"`
}

// MeetingAnalysisResult summarizes the application of a meeting's analysis
type MeetingAnalysisResult struct {
	Outcomes      []MentionOutcome `json:"outcomes"`
	TasksAssigned int              `json:"tasksAssigned"`
	FallbackUsed  bool             `json:"fallbackUsed"`
}

// ProjectService orchestrates meeting analysis and consolidation. It is
// the single entry point the transport layer talks to.
type ProjectService struct {
	projectRepo   ports.ProjectRepository
	taskRepo      ports.TaskRepository
	analyzer      *RelationshipAnalyzer
	consolidation *ConsolidationAnalyzer
	executor      *MergeExecutor
	logger        *zap.Logger
}

// NewProjectService creates a project service
func NewProjectService(
	projectRepo ports.ProjectRepository,
	taskRepo ports.TaskRepository,
	analyzer *RelationshipAnalyzer,
	consolidation *ConsolidationAnalyzer,
	executor *MergeExecutor,
	logger *zap.Logger,
) *ProjectService {
	return &ProjectService{
		projectRepo:   projectRepo,
		taskRepo:      taskRepo,
		analyzer:      analyzer,
		consolidation: consolidation,
		executor:      executor,
		logger:        logger,
	}
}

// AnalyzeMeetingProjects resolves a meeting's project mentions against the
// user's existing projects and applies the verdict. When the reasoner fails
// or returns an untrustworthy verdict, every mention becomes a new project
// and the meeting's tasks stay unassigned.
func (s *ProjectService) AnalyzeMeetingProjects(
	ctx context.Context,
	userID, meetingID string,
	mentions []NewMention,
) (*MeetingAnalysisResult, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if meetingID == "" {
		return nil, pkgerrors.NewValidationError("meetingID cannot be empty")
	}

	existing, err := s.projectRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load projects")
	}
	unassigned, err := s.taskRepo.GetUnassignedByMeeting(ctx, userID, meetingID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load unassigned tasks")
	}

	verdict, err := s.analyzer.Analyze(ctx, mentions, existing, unassigned)
	fallbackUsed := false
	if err != nil {
		s.logger.Warn("relationship analysis failed, treating all mentions as new projects",
			zap.String("meetingID", meetingID),
			zap.Error(err))
		verdict = FallbackAllCreate(mentions)
		fallbackUsed = true
	}

	result := &MeetingAnalysisResult{
		Outcomes:     make([]MentionOutcome, 0, len(verdict.Mappings)),
		FallbackUsed: fallbackUsed,
	}

	mentionByName := make(map[string]NewMention, len(mentions))
	for _, m := range mentions {
		mentionByName[m.Name] = m
	}

	// resolve maps both mention names and existing project IDs to the
	// project each mention ended up in, for task assignment lookup
	resolve := make(map[string]valueobjects.ProjectID, len(verdict.Mappings))

	for _, mapping := range verdict.Mappings {
		mention := mentionByName[mapping.SourceMentionName]
		switch mapping.Action {
		case analysis.ActionCreate:
			project, err := s.createFromMention(ctx, userID, meetingID, mention)
			if err != nil {
				return nil, err
			}
			resolve[mapping.SourceMentionName] = project.ID()
			result.Outcomes = append(result.Outcomes, MentionOutcome{
				Name:      mapping.SourceMentionName,
				Action:    analysis.ActionCreate,
				ProjectID: project.ID().String(),
				Reasoning: mapping.Reasoning,
			})

		case analysis.ActionMerge:
			project, err := s.mergeIntoExisting(ctx, userID, meetingID, mention, mapping)
			if err != nil {
				return nil, err
			}
			resolve[mapping.SourceMentionName] = project.ID()
			resolve[mapping.TargetProjectID] = project.ID()
			result.Outcomes = append(result.Outcomes, MentionOutcome{
				Name:      mapping.SourceMentionName,
				Action:    analysis.ActionMerge,
				ProjectID: project.ID().String(),
				Reasoning: mapping.Reasoning,
			})
		}
	}
	for _, p := range existing {
		if _, claimed := resolve[p.ID().String()]; !claimed {
			resolve[p.ID().String()] = p.ID()
		}
	}

	taskByID := make(map[string]*entities.Task, len(unassigned))
	for _, t := range unassigned {
		taskByID[t.ID().String()] = t
	}
	for _, assignment := range verdict.Assignments {
		task := taskByID[assignment.TaskID]
		projectID, ok := resolve[assignment.ProjectID]
		if task == nil || !ok {
			continue
		}
		if err := task.AssignToProject(projectID); err != nil {
			return nil, err
		}
		if err := s.taskRepo.Update(ctx, task); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to assign task")
		}
		result.TasksAssigned++
	}

	s.logger.Info("meeting analysis applied",
		zap.String("meetingID", meetingID),
		zap.Int("mentions", len(mentions)),
		zap.Int("tasksAssigned", result.TasksAssigned),
		zap.Bool("fallbackUsed", fallbackUsed))

	return result, nil
}

func (s *ProjectService) createFromMention(ctx context.Context, userID, meetingID string, mention NewMention) (*entities.Project, error) {
	project, err := entities.NewProject(userID, mention.Name, mention.ContextText, mention.Status)
	if err != nil {
		return nil, err
	}
	if err := project.AppendUpdate(entities.ProjectUpdate{
		MeetingID: meetingID,
		Text:      updateText(meetingID, mention),
		Date:      updateDate(mention),
	}); err != nil {
		return nil, err
	}
	if err := s.projectRepo.Save(ctx, project); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to save project")
	}
	return project, nil
}

func (s *ProjectService) mergeIntoExisting(
	ctx context.Context,
	userID, meetingID string,
	mention NewMention,
	mapping analysis.ProjectMapping,
) (*entities.Project, error) {
	targetID, err := valueobjects.NewProjectIDFromString(mapping.TargetProjectID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid target project ID").WithCause(err)
	}
	project, err := s.projectRepo.GetByID(ctx, userID, targetID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load merge target")
	}

	project.ApplyMerge(mapping.MergedName, mapping.MergedContext)
	if err := project.AppendUpdate(entities.ProjectUpdate{
		MeetingID: meetingID,
		Text:      updateText(meetingID, mention),
		Date:      updateDate(mention),
	}); err != nil {
		return nil, err
	}
	if mention.Status != "" {
		if err := project.SetStatus(mention.Status); err != nil {
			return nil, err
		}
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to update merge target")
	}
	return project, nil
}

// updateText falls back to a provenance note so every applied mention
// leaves exactly one update entry
func updateText(meetingID string, mention NewMention) string {
	if mention.UpdateText != "" {
		return mention.UpdateText
	}
	return fmt.Sprintf("Mentioned in meeting %s", meetingID)
}

// updateDate stamps undated mentions with the current time
func updateDate(mention NewMention) string {
	if mention.Date != "" {
		return mention.Date
	}
	return utils.NowRFC3339()
}

// PreviewConsolidation scans the user's projects for duplicates without
// changing anything
func (s *ProjectService) PreviewConsolidation(ctx context.Context, userID string) (*Preview, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	projects, err := s.projectRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load projects")
	}
	tasks, err := s.taskRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load tasks")
	}
	taskCounts := make(map[string]int, len(projects))
	for _, t := range tasks {
		if !t.IsUnassigned() {
			taskCounts[t.ProjectID().String()]++
		}
	}
	return s.consolidation.Analyze(ctx, projects, taskCounts)
}

// ExecuteConsolidation applies previously previewed consolidation groups
func (s *ProjectService) ExecuteConsolidation(ctx context.Context, userID string, groups []analysis.ConsolidationGroup) (*MergeResult, error) {
	return s.executor.Execute(ctx, userID, groups)
}

// ListProjects returns all of a user's projects
func (s *ProjectService) ListProjects(ctx context.Context, userID string) ([]*entities.Project, error) {
	return s.projectRepo.GetByUserID(ctx, userID)
}

// ListTasks returns all of a user's tasks
func (s *ProjectService) ListTasks(ctx context.Context, userID string) ([]*entities.Task, error) {
	return s.taskRepo.GetByUserID(ctx, userID)
}
