package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trackline-backend/application/services"
	"trackline-backend/domain/core/entities"
	"trackline-backend/infrastructure/persistence/memory"
	"trackline-backend/pkg/auth"
)

const (
	testSecret = "test-secret"
	testIssuer = "trackline-backend"
)

type cannedReasoner struct {
	response string
}

func (c *cannedReasoner) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.response, nil
}

func setupTestServer(t *testing.T, reasonerResponse string) (http.Handler, *memory.ProjectRepository) {
	t.Helper()
	logger := zap.NewNop()
	projectRepo := memory.NewProjectRepository()
	taskRepo := memory.NewTaskRepository()
	reasoner := &cannedReasoner{response: reasonerResponse}

	service := services.NewProjectService(
		projectRepo,
		taskRepo,
		services.NewRelationshipAnalyzer(reasoner, logger),
		services.NewConsolidationAnalyzer(reasoner, logger, 0, 0),
		services.NewMergeExecutor(projectRepo, taskRepo, logger),
		logger,
	)

	validator, err := auth.NewJWTValidator(testSecret, testIssuer)
	require.NoError(t, err)

	router := NewRouter(service, validator, logger, false)
	return router.Setup(), projectRepo
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	claims := auth.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestRouterAuth(t *testing.T) {
	handler, _ := setupTestServer(t, "")

	t.Run("health check is public", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("API requires a token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("API rejects a malformed token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAnalyzeMeetingEndpoint(t *testing.T) {
	handler, projectRepo := setupTestServer(t,
		`{"projectMappings":[{"sourceMentionName":"Alpha","action":"create"}],"taskAssignments":[]}`)

	body := `{"mentions":[{"name":"Alpha","update":"Kickoff held","status":"open"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/meetings/meeting-1/projects/analyze", strings.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result services.MeetingAnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.FallbackUsed)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "create", result.Outcomes[0].Action)

	projects, err := projectRepo.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Alpha", projects[0].Name())
}

func TestConsolidationPreviewEndpoint(t *testing.T) {
	handler, projectRepo := setupTestServer(t, `{"groups":[]}`)

	ctx := context.Background()
	for _, name := range []string{"Alpha", "Beta"} {
		p, err := entities.NewProject("user-1", name, "", entities.StatusOpen)
		require.NoError(t, err)
		require.NoError(t, projectRepo.Save(ctx, p))
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/consolidation/preview", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var preview services.Preview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.True(t, preview.NoChanges)
}
