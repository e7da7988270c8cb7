package di

import (
	"go.uber.org/zap"

	"trackline-backend/application/ports"
	"trackline-backend/application/services"
	"trackline-backend/infrastructure/config"
	"trackline-backend/pkg/auth"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	ProjectRepo    ports.ProjectRepository
	TaskRepo       ports.TaskRepository
	Reasoner       ports.Reasoner
	ProjectService *services.ProjectService
	JWTValidator   *auth.JWTValidator
}
