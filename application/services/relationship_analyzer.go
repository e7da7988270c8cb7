package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"trackline-backend/application/ports"
	"trackline-backend/domain/analysis"
	"trackline-backend/domain/core/entities"
)

// NewMention is a project reference extracted from a meeting, not yet
// resolved against the user's existing projects
type NewMention struct {
	Name        string
	UpdateText  string
	ContextText string
	Status      entities.ProjectStatus
	Date        string
}

// RelationshipAnalyzer asks the reasoning service whether each mentioned
// project is genuinely new or refers to an existing one. The verdict is
// validated strictly; an untrustworthy verdict is returned as an error so
// the caller can fall back to treating every mention as new.
type RelationshipAnalyzer struct {
	reasoner ports.Reasoner
	logger   *zap.Logger
}

// NewRelationshipAnalyzer creates a relationship analyzer
func NewRelationshipAnalyzer(reasoner ports.Reasoner, logger *zap.Logger) *RelationshipAnalyzer {
	return &RelationshipAnalyzer{
		reasoner: reasoner,
		logger:   logger,
	}
}

const relationshipSystemPrompt = `You resolve project mentions from meeting notes against a user's existing projects.

For each mentioned project decide:
- "create" when it is a genuinely new project
- "merge" when it refers to an existing project, even under a different name

When merging, provide the best combined name and a context that preserves information from both sides.

Assign each listed task to the project it belongs to. Only reference task IDs, existing project IDs, and mentioned names given to you. For a task belonging to a project that will be created, use the mentioned name as its projectId.

Respond with JSON only:
{
  "projectMappings": [
    {"sourceMentionName": "<mentioned name>", "action": "create"},
    {"sourceMentionName": "<mentioned name>", "action": "merge", "targetProjectId": "<existing id>", "mergedName": "...", "mergedContext": "...", "reasoning": "..."}
  ],
  "taskAssignments": [
    {"taskId": "<task id>", "projectId": "<existing id or mentioned name>", "reasoning": "..."}
  ]
}`

// Analyze resolves the meeting's mentions against existing projects.
// With no mentions it short-circuits without calling the reasoner.
func (a *RelationshipAnalyzer) Analyze(
	ctx context.Context,
	mentions []NewMention,
	existing []*entities.Project,
	unassignedTasks []*entities.Task,
) (*analysis.MeetingAnalysis, error) {
	if len(mentions) == 0 {
		return &analysis.MeetingAnalysis{
			Mappings:    []analysis.ProjectMapping{},
			Assignments: []analysis.TaskAssignment{},
		}, nil
	}

	userPrompt := a.buildPrompt(mentions, existing, unassignedTasks)

	raw, err := a.reasoner.Complete(ctx, relationshipSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	result, err := analysis.ParseMeetingAnalysis(raw)
	if err != nil {
		a.logger.Warn("rejecting unparseable relationship analysis", zap.Error(err))
		return nil, err
	}

	mentionedNames := make(map[string]bool, len(mentions))
	for _, m := range mentions {
		mentionedNames[m.Name] = true
	}
	existingIDs := make(map[string]bool, len(existing))
	for _, p := range existing {
		existingIDs[p.ID().String()] = true
	}
	taskIDs := make(map[string]bool, len(unassignedTasks))
	for _, t := range unassignedTasks {
		taskIDs[t.ID().String()] = true
	}

	if err := result.Validate(mentionedNames, existingIDs, taskIDs); err != nil {
		a.logger.Warn("rejecting invalid relationship analysis", zap.Error(err))
		return nil, err
	}

	a.logger.Info("relationship analysis complete",
		zap.Int("mentions", len(mentions)),
		zap.Int("mappings", len(result.Mappings)),
		zap.Int("assignments", len(result.Assignments)))

	return result, nil
}

// FallbackAllCreate builds the conservative verdict used when analysis
// fails: every mention becomes a new project, no tasks are assigned.
func FallbackAllCreate(mentions []NewMention) *analysis.MeetingAnalysis {
	mappings := make([]analysis.ProjectMapping, 0, len(mentions))
	for _, m := range mentions {
		mappings = append(mappings, analysis.ProjectMapping{
			SourceMentionName: m.Name,
			Action:            analysis.ActionCreate,
		})
	}
	return &analysis.MeetingAnalysis{
		Mappings:    mappings,
		Assignments: []analysis.TaskAssignment{},
	}
}

func (a *RelationshipAnalyzer) buildPrompt(
	mentions []NewMention,
	existing []*entities.Project,
	unassignedTasks []*entities.Task,
) string {
	var sb strings.Builder

	sb.WriteString("## Existing projects\n\n")
	if len(existing) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, p := range existing {
		fmt.Fprintf(&sb, "- id: %s\n  name: %s\n  status: %s\n", p.ID().String(), p.Name(), p.Status())
		if p.Context() != "" {
			fmt.Fprintf(&sb, "  context: %s\n", p.Context())
		}
		if p.LastUpdate() != "" {
			fmt.Fprintf(&sb, "  lastUpdate: %s\n", p.LastUpdate())
		}
	}

	sb.WriteString("\n## Projects mentioned in this meeting\n\n")
	for _, m := range mentions {
		fmt.Fprintf(&sb, "- name: %s\n", m.Name)
		if m.UpdateText != "" {
			fmt.Fprintf(&sb, "  update: %s\n", m.UpdateText)
		}
		if m.ContextText != "" {
			fmt.Fprintf(&sb, "  context: %s\n", m.ContextText)
		}
		if m.Status != "" {
			fmt.Fprintf(&sb, "  status: %s\n", m.Status)
		}
	}

	sb.WriteString("\n## Unassigned tasks from this meeting\n\n")
	if len(unassignedTasks) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, t := range unassignedTasks {
		fmt.Fprintf(&sb, "- id: %s\n  text: %s\n", t.ID().String(), t.Text())
	}

	return sb.String()
}
