package dynamodb

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trackline-backend/domain/core/entities"
)

// fakeClient serves canned Query pages so pagination can be exercised
// without a live table
type fakeClient struct {
	pages []*dynamodb.QueryOutput
	calls int
}

func (f *fakeClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	out := f.pages[f.calls]
	f.calls++
	return out, nil
}

func (f *fakeClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return &dynamodb.DeleteItemOutput{}, nil
}

func marshalProject(t *testing.T, userID, name string) map[string]types.AttributeValue {
	t.Helper()
	p, err := entities.NewProject(userID, name, "", entities.StatusOpen)
	require.NoError(t, err)
	av, err := attributevalue.MarshalMap(toProjectItem(p))
	require.NoError(t, err)
	return av
}

func marshalTask(t *testing.T, userID, meetingID, text string) map[string]types.AttributeValue {
	t.Helper()
	task, err := entities.NewTask(userID, meetingID, text, "", entities.PriorityMedium, "")
	require.NoError(t, err)
	av, err := attributevalue.MarshalMap(toTaskItem(task))
	require.NoError(t, err)
	return av
}

func TestProjectGetByUserIDFollowsPagination(t *testing.T) {
	cursor := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "USER#user-1"},
	}
	client := &fakeClient{pages: []*dynamodb.QueryOutput{
		{
			Items:            []map[string]types.AttributeValue{marshalProject(t, "user-1", "Alpha")},
			LastEvaluatedKey: cursor,
		},
		{
			Items: []map[string]types.AttributeValue{marshalProject(t, "user-1", "Beta")},
		},
	}}

	repo := NewProjectRepository(client, "test-table", zap.NewNop())
	projects, err := repo.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 2, client.calls)
	require.Len(t, projects, 2)
	assert.Equal(t, "Alpha", projects[0].Name())
	assert.Equal(t, "Beta", projects[1].Name())
}

func TestTaskQueriesFollowPagination(t *testing.T) {
	cursor := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "USER#user-1"},
	}
	client := &fakeClient{pages: []*dynamodb.QueryOutput{
		{
			Items:            []map[string]types.AttributeValue{marshalTask(t, "user-1", "m1", "First task")},
			LastEvaluatedKey: cursor,
		},
		{
			Items: []map[string]types.AttributeValue{marshalTask(t, "user-1", "m2", "Second task")},
		},
	}}

	repo := NewTaskRepository(client, "test-table", zap.NewNop())
	tasks, err := repo.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 2, client.calls)
	require.Len(t, tasks, 2)
	assert.Equal(t, "First task", tasks[0].Text())
	assert.Equal(t, "Second task", tasks[1].Text())
}
