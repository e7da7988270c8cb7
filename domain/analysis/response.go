// Package analysis defines the structured responses expected from the
// reasoning service and the strict parsing and validation applied to them.
// Parsing is fail-closed: a response that cannot be fully trusted is
// rejected in its entirety rather than partially applied.
package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	pkgerrors "trackline-backend/pkg/errors"
)

// Mapping actions for mentioned projects
const (
	ActionCreate = "create"
	ActionMerge  = "merge"
)

// ProjectMapping is the reasoner's verdict for one mentioned project:
// either create it as new, or merge it into an existing project.
type ProjectMapping struct {
	SourceMentionName string `json:"sourceMentionName"`
	Action            string `json:"action"`
	TargetProjectID   string `json:"targetProjectId,omitempty"`
	MergedName        string `json:"mergedName,omitempty"`
	MergedContext     string `json:"mergedContext,omitempty"`
	Reasoning         string `json:"reasoning,omitempty"`
}

// TaskAssignment links an extracted task to a project. ProjectID is either
// an existing project's ID or, for projects being created this meeting,
// the mentioned name standing in for the not-yet-assigned ID.
type TaskAssignment struct {
	TaskID    string `json:"taskId"`
	ProjectID string `json:"projectId"`
	Reasoning string `json:"reasoning,omitempty"`
}

// MeetingAnalysis is the full relationship verdict for one meeting
type MeetingAnalysis struct {
	Mappings    []ProjectMapping `json:"projectMappings"`
	Assignments []TaskAssignment `json:"taskAssignments"`
}

// ConsolidationGroup names a set of duplicate projects and which member
// of the set survives the merge
type ConsolidationGroup struct {
	SourceProjectIDs []string `json:"sourceProjectIds"`
	KeepProjectID    string   `json:"keepProjectId"`
	MergedName       string   `json:"mergedName"`
	MergedContext    string   `json:"mergedContext"`
	Reasoning        string   `json:"reasoning,omitempty"`
}

// ConsolidationAnalysis is the reasoner's duplicate-detection verdict
type ConsolidationAnalysis struct {
	Groups []ConsolidationGroup `json:"groups"`
}

// ParseMeetingAnalysis decodes a reasoner response into a MeetingAnalysis,
// stripping any markdown code fence the model wrapped the JSON in
func ParseMeetingAnalysis(raw string) (*MeetingAnalysis, error) {
	cleaned := ExtractJSON(raw)
	var out MeetingAnalysis
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, pkgerrors.NewValidationError("reasoner returned unparseable analysis").WithCause(err)
	}
	return &out, nil
}

// ParseConsolidationAnalysis decodes a reasoner response into a ConsolidationAnalysis
func ParseConsolidationAnalysis(raw string) (*ConsolidationAnalysis, error) {
	cleaned := ExtractJSON(raw)
	var out ConsolidationAnalysis
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, pkgerrors.NewValidationError("reasoner returned unparseable consolidation analysis").WithCause(err)
	}
	return &out, nil
}

// Validate checks every mapping and assignment against what was actually
// offered to the reasoner. Any single violation rejects the whole analysis.
func (a *MeetingAnalysis) Validate(mentionedNames map[string]bool, existingProjectIDs map[string]bool, offeredTaskIDs map[string]bool) error {
	seen := make(map[string]bool, len(a.Mappings))
	for i, m := range a.Mappings {
		if m.SourceMentionName == "" {
			return pkgerrors.NewValidationError(fmt.Sprintf("mapping %d has empty mention name", i))
		}
		if !mentionedNames[m.SourceMentionName] {
			return pkgerrors.NewValidationError(fmt.Sprintf("mapping references unknown mention %q", m.SourceMentionName))
		}
		if seen[m.SourceMentionName] {
			return pkgerrors.NewValidationError(fmt.Sprintf("duplicate mapping for mention %q", m.SourceMentionName))
		}
		seen[m.SourceMentionName] = true

		switch m.Action {
		case ActionCreate:
			// nothing further required
		case ActionMerge:
			if m.TargetProjectID == "" {
				return pkgerrors.NewValidationError(fmt.Sprintf("merge mapping for %q has no target project", m.SourceMentionName))
			}
			if !existingProjectIDs[m.TargetProjectID] {
				return pkgerrors.NewValidationError(fmt.Sprintf("merge mapping for %q targets unknown project %q", m.SourceMentionName, m.TargetProjectID))
			}
		default:
			return pkgerrors.NewValidationError(fmt.Sprintf("mapping for %q has invalid action %q", m.SourceMentionName, m.Action))
		}
	}

	for _, t := range a.Assignments {
		if !offeredTaskIDs[t.TaskID] {
			return pkgerrors.NewValidationError(fmt.Sprintf("assignment references unknown task %q", t.TaskID))
		}
		if !existingProjectIDs[t.ProjectID] && !mentionedNames[t.ProjectID] {
			return pkgerrors.NewValidationError(fmt.Sprintf("assignment for task %q references unknown project %q", t.TaskID, t.ProjectID))
		}
	}

	return nil
}

// Validate checks a consolidation group against the project IDs that were
// present in its batch. The kept project must itself be one of the sources,
// a group needs at least two members, and groups may only reference
// projects the reasoner saw.
func (g *ConsolidationGroup) Validate(batchProjectIDs map[string]bool) error {
	if g.KeepProjectID == "" {
		return pkgerrors.NewValidationError("consolidation group has no keep project")
	}
	if len(g.SourceProjectIDs) < 2 {
		return pkgerrors.NewValidationError("consolidation group needs at least two projects")
	}

	seen := make(map[string]bool, len(g.SourceProjectIDs))
	for _, id := range g.SourceProjectIDs {
		if !batchProjectIDs[id] {
			return pkgerrors.NewValidationError(fmt.Sprintf("consolidation group references unknown project %q", id))
		}
		if seen[id] {
			return pkgerrors.NewValidationError(fmt.Sprintf("consolidation group lists project %q twice", id))
		}
		seen[id] = true
	}

	if !seen[g.KeepProjectID] {
		return pkgerrors.NewValidationError(fmt.Sprintf("kept project %q is not among the group's sources", g.KeepProjectID))
	}
	return nil
}

// ExtractJSON extracts JSON from markdown code blocks or returns the input
// trimmed when no fence is found
func ExtractJSON(s string) string {
	if start := strings.Index(s, "```json"); start != -1 {
		start += 7
		if end := strings.Index(s[start:], "```"); end != -1 {
			return strings.TrimSpace(s[start : start+end])
		}
	}
	if start := strings.Index(s, "```"); start != -1 {
		start += 3
		if end := strings.Index(s[start:], "```"); end != -1 {
			content := strings.TrimSpace(s[start : start+end])
			// Skip a language identifier line, but never the JSON itself
			if idx := strings.Index(content, "\n"); idx != -1 &&
				!strings.HasPrefix(content, "{") && !strings.HasPrefix(content, "[") {
				content = content[idx+1:]
			}
			return strings.TrimSpace(content)
		}
	}
	return strings.TrimSpace(s)
}
