package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"trackline-backend/application/ports"
	"trackline-backend/domain/core/entities"
	"trackline-backend/domain/core/valueobjects"
	pkgerrors "trackline-backend/pkg/errors"
)

// Client is the subset of the DynamoDB API the repositories use
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// ProjectRepository implements ports.ProjectRepository using DynamoDB
// single-table storage: PK = USER#<userID>, SK = PROJECT#<projectID>
type ProjectRepository struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

// NewProjectRepository creates a DynamoDB-backed project repository
func NewProjectRepository(client Client, tableName string, logger *zap.Logger) ports.ProjectRepository {
	return &ProjectRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// projectItem represents the DynamoDB item structure for a project
type projectItem struct {
	PK         string       `dynamodbav:"PK"`
	SK         string       `dynamodbav:"SK"`
	EntityType string       `dynamodbav:"EntityType"`
	ProjectID  string       `dynamodbav:"ProjectID"`
	UserID     string       `dynamodbav:"UserID"`
	Name       string       `dynamodbav:"Name"`
	Status     string       `dynamodbav:"Status"`
	Context    string       `dynamodbav:"Context,omitempty"`
	Updates    []updateItem `dynamodbav:"Updates"`
	LastUpdate string       `dynamodbav:"LastUpdate,omitempty"`
	CreatedAt  string       `dynamodbav:"CreatedAt"`
	UpdatedAt  string       `dynamodbav:"UpdatedAt"`
}

type updateItem struct {
	MeetingID string `dynamodbav:"MeetingID"`
	Text      string `dynamodbav:"Text"`
	Date      string `dynamodbav:"Date,omitempty"`
}

func projectPK(userID string) string {
	return fmt.Sprintf("USER#%s", userID)
}

func projectSK(id string) string {
	return fmt.Sprintf("PROJECT#%s", id)
}

// buildPrefixQuery builds a query for all of a user's items whose sort key
// starts with the given entity prefix
func buildPrefixQuery(tableName, userID, prefix string) (*dynamodb.QueryInput, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(projectPK(userID))).
		And(expression.Key("SK").BeginsWith(prefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, err
	}

	return &dynamodb.QueryInput{
		TableName:                 aws.String(tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}

// Save persists a project to DynamoDB
func (r *ProjectRepository) Save(ctx context.Context, project *entities.Project) error {
	av, err := attributevalue.MarshalMap(toProjectItem(project))
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal project", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}
	if _, err := r.client.PutItem(ctx, input); err != nil {
		r.logger.Error("Failed to save project",
			zap.Error(err),
			zap.String("projectID", project.ID().String()))
		return pkgerrors.NewDatabaseError("save project", err)
	}

	return nil
}

// GetByID retrieves a project by its ID
func (r *ProjectRepository) GetByID(ctx context.Context, userID string, id valueobjects.ProjectID) (*entities.Project, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: projectPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: projectSK(id.String())},
		},
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get project", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("project")
	}

	var item projectItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal project", err)
	}

	return fromProjectItem(item)
}

// GetByUserID retrieves all projects for a user
func (r *ProjectRepository) GetByUserID(ctx context.Context, userID string) ([]*entities.Project, error) {
	input, err := buildPrefixQuery(r.tableName, userID, "PROJECT#")
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("build project query", err)
	}

	projects := []*entities.Project{}
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query projects", err)
		}

		for _, raw := range result.Items {
			var item projectItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Skipping unreadable project item", zap.Error(err))
				continue
			}
			project, err := fromProjectItem(item)
			if err != nil {
				r.logger.Warn("Skipping invalid project item",
					zap.Error(err),
					zap.String("projectID", item.ProjectID))
				continue
			}
			projects = append(projects, project)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return projects, nil
}

// Update persists changes to an existing project
func (r *ProjectRepository) Update(ctx context.Context, project *entities.Project) error {
	return r.Save(ctx, project)
}

// Delete removes a project
func (r *ProjectRepository) Delete(ctx context.Context, userID string, id valueobjects.ProjectID) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: projectPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: projectSK(id.String())},
		},
	}
	if _, err := r.client.DeleteItem(ctx, input); err != nil {
		r.logger.Error("Failed to delete project",
			zap.Error(err),
			zap.String("projectID", id.String()))
		return pkgerrors.NewDatabaseError("delete project", err)
	}
	return nil
}

func toProjectItem(project *entities.Project) projectItem {
	updates := make([]updateItem, 0, len(project.Updates()))
	for _, u := range project.Updates() {
		updates = append(updates, updateItem{
			MeetingID: u.MeetingID,
			Text:      u.Text,
			Date:      u.Date,
		})
	}

	return projectItem{
		PK:         projectPK(project.UserID()),
		SK:         projectSK(project.ID().String()),
		EntityType: "PROJECT",
		ProjectID:  project.ID().String(),
		UserID:     project.UserID(),
		Name:       project.Name(),
		Status:     string(project.Status()),
		Context:    project.Context(),
		Updates:    updates,
		LastUpdate: project.LastUpdate(),
		CreatedAt:  project.CreatedAt().Format(time.RFC3339),
		UpdatedAt:  project.UpdatedAt().Format(time.RFC3339),
	}
}

func fromProjectItem(item projectItem) (*entities.Project, error) {
	id, err := valueobjects.NewProjectIDFromString(item.ProjectID)
	if err != nil {
		return nil, err
	}

	updates := make([]entities.ProjectUpdate, 0, len(item.Updates))
	for _, u := range item.Updates {
		updates = append(updates, entities.ProjectUpdate{
			MeetingID: u.MeetingID,
			Text:      u.Text,
			Date:      u.Date,
		})
	}

	createdAt, _ := time.Parse(time.RFC3339, item.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, item.UpdatedAt)

	return entities.ReconstructProject(
		id,
		item.UserID,
		item.Name,
		entities.ProjectStatus(item.Status),
		item.Context,
		updates,
		item.LastUpdate,
		createdAt,
		updatedAt,
	)
}
