package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"trackline-backend/application/ports"
	"trackline-backend/application/services"
	"trackline-backend/infrastructure/config"
	"trackline-backend/infrastructure/persistence/dynamodb"
	"trackline-backend/infrastructure/reasoning"
	"trackline-backend/pkg/auth"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideProjectRepository creates a project repository
func ProvideProjectRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ProjectRepository {
	return dynamodb.NewProjectRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideTaskRepository creates a task repository
func ProvideTaskRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.TaskRepository {
	return dynamodb.NewTaskRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideReasoner creates the reasoning service client
func ProvideReasoner(cfg *config.Config, logger *zap.Logger) (ports.Reasoner, error) {
	return reasoning.NewClient(reasoning.Config{
		BaseURL:     cfg.ReasoningBaseURL,
		APIKey:      cfg.ReasoningAPIKey,
		Model:       cfg.ReasoningModel,
		Timeout:     cfg.ReasoningTimeout,
		MaxAttempts: cfg.ReasoningMaxAttempts,
	}, logger)
}

// ProvideRelationshipAnalyzer creates the relationship analyzer
func ProvideRelationshipAnalyzer(reasoner ports.Reasoner, logger *zap.Logger) *services.RelationshipAnalyzer {
	return services.NewRelationshipAnalyzer(reasoner, logger)
}

// ProvideConsolidationAnalyzer creates the consolidation analyzer
func ProvideConsolidationAnalyzer(reasoner ports.Reasoner, cfg *config.Config, logger *zap.Logger) *services.ConsolidationAnalyzer {
	return services.NewConsolidationAnalyzer(reasoner, logger,
		cfg.ConsolidationTokenBudget, cfg.ConsolidationMaxPerBatch)
}

// ProvideMergeExecutor creates the merge executor
func ProvideMergeExecutor(projectRepo ports.ProjectRepository, taskRepo ports.TaskRepository, logger *zap.Logger) *services.MergeExecutor {
	return services.NewMergeExecutor(projectRepo, taskRepo, logger)
}

// ProvideProjectService creates the project service
func ProvideProjectService(
	projectRepo ports.ProjectRepository,
	taskRepo ports.TaskRepository,
	analyzer *services.RelationshipAnalyzer,
	consolidation *services.ConsolidationAnalyzer,
	executor *services.MergeExecutor,
	logger *zap.Logger,
) *services.ProjectService {
	return services.NewProjectService(projectRepo, taskRepo, analyzer, consolidation, executor, logger)
}

// ProvideJWTValidator creates the token validator
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" && !cfg.IsProduction() {
		secret = "trackline-dev-secret"
	}
	return auth.NewJWTValidator(secret, cfg.JWTIssuer)
}
