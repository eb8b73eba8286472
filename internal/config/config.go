package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	MongoDB MongoDBConfig
	Email   EmailConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// AIConfig holds the remote model configuration. Gemini is the default
// provider; OpenAI is used when Provider is "openai".
type AIConfig struct {
	Provider      string // "gemini" or "openai"
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	Temperature   float64
	MaxTokens     int
	SchemaDir     string
}

// MongoDBConfig holds MongoDB connection details for the best-effort
// task/profile snapshot persistence. All fields optional.
type MongoDBConfig struct {
	URI        string
	Username   string
	Password   string
	Host       string
	Port       string
	Database   string
	AuthSource string
}

// EmailConfig holds SendGrid email configuration for reminders and the
// weekly summary. Reminders are disabled when APIKey is empty.
type EmailConfig struct {
	APIKey    string
	FromEmail string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8086"),
			Host: getEnv("HOST", "0.0.0.0"),
		},
		AI: AIConfig{
			Provider:      getEnv("AI_PROVIDER", "gemini"),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature:   getEnvFloat("AI_TEMPERATURE", 0.3),
			MaxTokens:     getEnvInt("AI_MAX_TOKENS", 0), // 0 means provider default
			SchemaDir:     getEnv("SCHEMA_DIR", "schemas"),
		},
		MongoDB: MongoDBConfig{
			URI:        getEnv("MONGODB_URI", ""),
			Username:   getEnv("MONGODB_USERNAME", ""),
			Password:   getEnv("MONGODB_PASSWORD", ""),
			Host:       getEnv("MONGODB_HOST", ""),
			Port:       getEnv("MONGODB_PORT", "27017"),
			Database:   getEnv("MONGODB_DATABASE", "taskpilot"),
			AuthSource: getEnv("MONGODB_AUTH_SOURCE", "admin"),
		},
		Email: EmailConfig{
			APIKey:    getEnv("SENDGRID_API_KEY", ""),
			FromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		},
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ValidateConfig validates that required configuration values are present
func ValidateConfig(config *Config) error {
	switch config.AI.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("AI_PROVIDER must be \"gemini\" or \"openai\", got %q", config.AI.Provider)
	}
	if config.AI.Provider == "openai" && config.AI.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER=openai")
	}
	// Gemini key is not required at startup: every AI call degrades to a
	// deterministic fallback, so the server stays useful without it.
	return nil
}

// Helper functions for environment variable access
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
