package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey string
	GeminiModel  string
	DatabaseURL  string
	HTTPPort     string
	LogMode      string
	LogLevel     string
	JWTSecret    string
	JWTTTL       time.Duration

	ModelTimeout     time.Duration
	ModelMaxAttempts int
	ModelRetryBase   time.Duration

	DefaultCurrency  string
	ChatHistoryLimit int
}

var AppConfig Config

// LoadConfig populates AppConfig from the environment, reading a .env file
// first when one exists. The returned bool reports whether .env was found.
func LoadConfig() (bool, error) {
	envFileLoaded := godotenv.Load() == nil

	AppConfig = Config{
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		DatabaseURL:  getEnv("DATABASE_URL", "innostart.db"),
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		LogMode:      getEnv("LOG_MODE", "dev"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTTTL:       time.Duration(getEnvAsInt("JWT_TTL_HOURS", 24)) * time.Hour,

		ModelTimeout:     time.Duration(getEnvAsInt("MODEL_TIMEOUT_SECONDS", 60)) * time.Second,
		ModelMaxAttempts: getEnvAsInt("MODEL_MAX_ATTEMPTS", 2),
		ModelRetryBase:   time.Duration(getEnvAsInt("MODEL_RETRY_BASE_MS", 500)) * time.Millisecond,

		DefaultCurrency:  getEnv("DEFAULT_CURRENCY", "USD"),
		ChatHistoryLimit: getEnvAsInt("CHAT_HISTORY_LIMIT", 10),
	}

	if AppConfig.GeminiAPIKey == "" {
		return envFileLoaded, errors.New("GEMINI_API_KEY environment variable is required")
	}

	if AppConfig.JWTSecret == "" {
		return envFileLoaded, errors.New("JWT_SECRET environment variable is required")
	}
	return envFileLoaded, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
