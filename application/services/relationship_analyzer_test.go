package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trackline-backend/domain/analysis"
	"trackline-backend/domain/core/entities"
)

// stubReasoner is a scriptable ports.Reasoner for tests
type stubReasoner struct {
	mu      sync.Mutex
	calls   int
	respond func(systemPrompt, userPrompt string) (string, error)
}

func (s *stubReasoner) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.respond != nil {
		return s.respond(systemPrompt, userPrompt)
	}
	return "", errors.New("no stub response configured")
}

func (s *stubReasoner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestProject(t *testing.T, userID, name, contextText string) *entities.Project {
	t.Helper()
	p, err := entities.NewProject(userID, name, contextText, entities.StatusOpen)
	require.NoError(t, err)
	return p
}

func newTestTask(t *testing.T, userID, meetingID, text string) *entities.Task {
	t.Helper()
	task, err := entities.NewTask(userID, meetingID, text, "", entities.PriorityMedium, "")
	require.NoError(t, err)
	return task
}

func TestRelationshipAnalyzerAnalyze(t *testing.T) {
	logger := zap.NewNop()

	t.Run("short-circuits on empty mentions without calling reasoner", func(t *testing.T) {
		reasoner := &stubReasoner{}
		analyzer := NewRelationshipAnalyzer(reasoner, logger)

		result, err := analyzer.Analyze(context.Background(), nil, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, result.Mappings)
		assert.Empty(t, result.Assignments)
		assert.Equal(t, 0, reasoner.callCount())
	})

	t.Run("accepts a valid merge verdict", func(t *testing.T) {
		existing := newTestProject(t, "user-1", "Website Redesign", "Redesign of the marketing site")
		task := newTestTask(t, "user-1", "meeting-1", "Review homepage mockups")

		response := fmt.Sprintf(`{
			"projectMappings": [
				{"sourceMentionName": "website revamp", "action": "merge", "targetProjectId": %q, "mergedName": "Website Redesign", "mergedContext": "Redesign of the marketing site including homepage"}
			],
			"taskAssignments": [
				{"taskId": %q, "projectId": "website revamp"}
			]
		}`, existing.ID().String(), task.ID().String())

		reasoner := &stubReasoner{respond: func(_, _ string) (string, error) {
			return response, nil
		}}
		analyzer := NewRelationshipAnalyzer(reasoner, logger)

		mentions := []NewMention{{Name: "website revamp", UpdateText: "Homepage mockups reviewed"}}
		result, err := analyzer.Analyze(context.Background(), mentions, []*entities.Project{existing}, []*entities.Task{task})
		require.NoError(t, err)
		require.Len(t, result.Mappings, 1)
		assert.Equal(t, analysis.ActionMerge, result.Mappings[0].Action)
		assert.Equal(t, existing.ID().String(), result.Mappings[0].TargetProjectID)
		require.Len(t, result.Assignments, 1)
		assert.Equal(t, 1, reasoner.callCount())
	})

	t.Run("rejects verdict naming an unmentioned project", func(t *testing.T) {
		reasoner := &stubReasoner{respond: func(_, _ string) (string, error) {
			return `{"projectMappings":[{"sourceMentionName":"Hallucinated","action":"create"}]}`, nil
		}}
		analyzer := NewRelationshipAnalyzer(reasoner, logger)

		_, err := analyzer.Analyze(context.Background(),
			[]NewMention{{Name: "Real Project"}}, nil, nil)
		assert.Error(t, err)
	})

	t.Run("rejects verdict merging into unknown project", func(t *testing.T) {
		reasoner := &stubReasoner{respond: func(_, _ string) (string, error) {
			return `{"projectMappings":[{"sourceMentionName":"Real Project","action":"merge","targetProjectId":"nonexistent"}]}`, nil
		}}
		analyzer := NewRelationshipAnalyzer(reasoner, logger)

		_, err := analyzer.Analyze(context.Background(),
			[]NewMention{{Name: "Real Project"}}, nil, nil)
		assert.Error(t, err)
	})

	t.Run("propagates reasoner failure", func(t *testing.T) {
		reasoner := &stubReasoner{respond: func(_, _ string) (string, error) {
			return "", errors.New("service down")
		}}
		analyzer := NewRelationshipAnalyzer(reasoner, logger)

		_, err := analyzer.Analyze(context.Background(),
			[]NewMention{{Name: "Real Project"}}, nil, nil)
		assert.Error(t, err)
	})
}

func TestFallbackAllCreate(t *testing.T) {
	mentions := []NewMention{
		{Name: "Alpha"},
		{Name: "Beta"},
	}

	result := FallbackAllCreate(mentions)
	require.Len(t, result.Mappings, 2)
	for i, m := range result.Mappings {
		assert.Equal(t, mentions[i].Name, m.SourceMentionName)
		assert.Equal(t, analysis.ActionCreate, m.Action)
	}
	assert.Empty(t, result.Assignments)
}
