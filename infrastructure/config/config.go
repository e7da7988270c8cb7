package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// AWS configuration
	AWSRegion     string `yaml:"aws_region"`
	DynamoDBTable string `yaml:"dynamodb_table"`

	// Reasoning service configuration
	ReasoningBaseURL     string        `yaml:"reasoning_base_url"`
	ReasoningAPIKey      string        `yaml:"-"`
	ReasoningModel       string        `yaml:"reasoning_model"`
	ReasoningTimeout     time.Duration `yaml:"reasoning_timeout"`
	ReasoningMaxAttempts int           `yaml:"reasoning_max_attempts"`

	// Consolidation batching
	ConsolidationTokenBudget int `yaml:"consolidation_token_budget"`
	ConsolidationMaxPerBatch int `yaml:"consolidation_max_per_batch"`

	// Authentication
	JWTSecret string `yaml:"-"`
	JWTIssuer string `yaml:"jwt_issuer"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Feature flags
	EnableCORS bool `yaml:"enable_cors"`
}

// LoadConfig loads configuration from environment variables, optionally
// overlaid on a YAML file named by CONFIG_FILE
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: ":8080",
		Environment:   "development",
		AWSRegion:     "us-west-2",
		DynamoDBTable: "trackline",

		ReasoningModel:       "gpt-4o-mini",
		ReasoningTimeout:     60 * time.Second,
		ReasoningMaxAttempts: 3,

		ConsolidationTokenBudget: 20000,
		ConsolidationMaxPerBatch: 40,

		JWTIssuer:  "trackline-backend",
		LogLevel:   "info",
		EnableCORS: true,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.DynamoDBTable = getEnv("DYNAMODB_TABLE", cfg.DynamoDBTable)

	cfg.ReasoningBaseURL = getEnv("REASONING_BASE_URL", cfg.ReasoningBaseURL)
	cfg.ReasoningAPIKey = getEnv("REASONING_API_KEY", cfg.ReasoningAPIKey)
	cfg.ReasoningModel = getEnv("REASONING_MODEL", cfg.ReasoningModel)
	cfg.ReasoningTimeout = getEnvDuration("REASONING_TIMEOUT", cfg.ReasoningTimeout)
	cfg.ReasoningMaxAttempts = getEnvInt("REASONING_MAX_ATTEMPTS", cfg.ReasoningMaxAttempts)

	cfg.ConsolidationTokenBudget = getEnvInt("CONSOLIDATION_TOKEN_BUDGET", cfg.ConsolidationTokenBudget)
	cfg.ConsolidationMaxPerBatch = getEnvInt("CONSOLIDATION_MAX_PER_BATCH", cfg.ConsolidationMaxPerBatch)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.ReasoningBaseURL == "" {
		return fmt.Errorf("REASONING_BASE_URL is required")
	}
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
		if c.ReasoningAPIKey == "" {
			return fmt.Errorf("REASONING_API_KEY is required in production")
		}
	}
	return nil
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment reports whether the app runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
