package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"trackline-backend/application/ports"
	"trackline-backend/domain/core/entities"
	"trackline-backend/domain/core/valueobjects"
	pkgerrors "trackline-backend/pkg/errors"
)

// TaskRepository implements ports.TaskRepository using DynamoDB
// single-table storage: PK = USER#<userID>, SK = TASK#<taskID>
type TaskRepository struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

// NewTaskRepository creates a DynamoDB-backed task repository
func NewTaskRepository(client Client, tableName string, logger *zap.Logger) ports.TaskRepository {
	return &TaskRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// taskItem represents the DynamoDB item structure for a task
type taskItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	TaskID     string `dynamodbav:"TaskID"`
	UserID     string `dynamodbav:"UserID"`
	MeetingID  string `dynamodbav:"MeetingID"`
	ProjectID  string `dynamodbav:"ProjectID,omitempty"`
	Text       string `dynamodbav:"Text"`
	Owner      string `dynamodbav:"Owner,omitempty"`
	Priority   string `dynamodbav:"Priority"`
	Completed  bool   `dynamodbav:"Completed"`
	Due        string `dynamodbav:"Due,omitempty"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

func taskSK(id string) string {
	return fmt.Sprintf("TASK#%s", id)
}

// Save persists a task to DynamoDB
func (r *TaskRepository) Save(ctx context.Context, task *entities.Task) error {
	av, err := attributevalue.MarshalMap(toTaskItem(task))
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal task", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}
	if _, err := r.client.PutItem(ctx, input); err != nil {
		r.logger.Error("Failed to save task",
			zap.Error(err),
			zap.String("taskID", task.ID().String()))
		return pkgerrors.NewDatabaseError("save task", err)
	}

	return nil
}

// GetByID retrieves a task by its ID
func (r *TaskRepository) GetByID(ctx context.Context, userID string, id valueobjects.TaskID) (*entities.Task, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: projectPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: taskSK(id.String())},
		},
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get task", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("task")
	}

	var item taskItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal task", err)
	}

	return fromTaskItem(item)
}

// GetByUserID retrieves all tasks for a user
func (r *TaskRepository) GetByUserID(ctx context.Context, userID string) ([]*entities.Task, error) {
	return r.queryTasks(ctx, userID, nil)
}

// GetUnassignedByMeeting retrieves a meeting's tasks that have no project yet
func (r *TaskRepository) GetUnassignedByMeeting(ctx context.Context, userID, meetingID string) ([]*entities.Task, error) {
	return r.queryTasks(ctx, userID, func(t *entities.Task) bool {
		return t.MeetingID() == meetingID && t.IsUnassigned()
	})
}

// GetByProjectID retrieves all tasks assigned to a project
func (r *TaskRepository) GetByProjectID(ctx context.Context, userID string, projectID valueobjects.ProjectID) ([]*entities.Task, error) {
	return r.queryTasks(ctx, userID, func(t *entities.Task) bool {
		return t.ProjectID().Equals(projectID)
	})
}

// Update persists changes to an existing task
func (r *TaskRepository) Update(ctx context.Context, task *entities.Task) error {
	return r.Save(ctx, task)
}

// Delete removes a task
func (r *TaskRepository) Delete(ctx context.Context, userID string, id valueobjects.TaskID) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: projectPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: taskSK(id.String())},
		},
	}
	if _, err := r.client.DeleteItem(ctx, input); err != nil {
		return pkgerrors.NewDatabaseError("delete task", err)
	}
	return nil
}

// queryTasks retrieves a user's tasks, optionally filtered in memory.
// Task volumes per user are small enough that a key-range query plus
// client-side filter beats maintaining extra GSIs.
func (r *TaskRepository) queryTasks(ctx context.Context, userID string, keep func(*entities.Task) bool) ([]*entities.Task, error) {
	input, err := buildPrefixQuery(r.tableName, userID, "TASK#")
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("build task query", err)
	}

	tasks := []*entities.Task{}
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query tasks", err)
		}

		for _, raw := range result.Items {
			var item taskItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Skipping unreadable task item", zap.Error(err))
				continue
			}
			task, err := fromTaskItem(item)
			if err != nil {
				r.logger.Warn("Skipping invalid task item",
					zap.Error(err),
					zap.String("taskID", item.TaskID))
				continue
			}
			if keep == nil || keep(task) {
				tasks = append(tasks, task)
			}
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return tasks, nil
}

func toTaskItem(task *entities.Task) taskItem {
	return taskItem{
		PK:         projectPK(task.UserID()),
		SK:         taskSK(task.ID().String()),
		EntityType: "TASK",
		TaskID:     task.ID().String(),
		UserID:     task.UserID(),
		MeetingID:  task.MeetingID(),
		ProjectID:  task.ProjectID().String(),
		Text:       task.Text(),
		Owner:      task.Owner(),
		Priority:   string(task.Priority()),
		Completed:  task.Completed(),
		Due:        task.Due(),
		CreatedAt:  task.CreatedAt().Format(time.RFC3339),
		UpdatedAt:  task.UpdatedAt().Format(time.RFC3339),
	}
}

func fromTaskItem(item taskItem) (*entities.Task, error) {
	id, err := valueobjects.NewTaskIDFromString(item.TaskID)
	if err != nil {
		return nil, err
	}

	var projectID valueobjects.ProjectID
	if item.ProjectID != "" {
		projectID, err = valueobjects.NewProjectIDFromString(item.ProjectID)
		if err != nil {
			return nil, err
		}
	}

	createdAt, _ := time.Parse(time.RFC3339, item.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, item.UpdatedAt)

	return entities.ReconstructTask(
		id,
		item.UserID,
		item.MeetingID,
		projectID,
		item.Text,
		item.Owner,
		entities.TaskPriority(item.Priority),
		item.Completed,
		item.Due,
		createdAt,
		updatedAt,
	)
}
