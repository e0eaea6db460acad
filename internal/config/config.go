package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Env      string
	LogLevel string
	OpsAddr  string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Provider credentials and default models.
	OpenAIAPIKey      string
	OpenAIModel       string
	GeminiAPIKey      string
	GeminiModel       string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterModels  []string

	// Circuit breaker tuning, shared by all provider breakers.
	BreakerFailureThreshold int
	BreakerResetTimeout     time.Duration
	BreakerHalfOpenRequests int
	ProviderCallTimeout     time.Duration

	// Analyzer tuning.
	MinMessageLength  int
	MaxMessageLength  int
	LowStockThreshold int
	MinQuantity       int
	MaxQuantity       int
	ContextTurns      int
	CatalogIndexTTL   time.Duration

	// Memory window budgets.
	MaxHistoryMessages int
	MaxHistoryTokens   int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		OpsAddr:  getEnv("OPS_ADDR", ":9090"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterModels:  getEnvAsList("OPENROUTER_MODELS", []string{"meta-llama/llama-3.1-70b-instruct", "mistralai/mistral-small", "google/gemma-2-27b-it"}),

		BreakerFailureThreshold: getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerResetTimeout:     getEnvAsDuration("BREAKER_RESET_TIMEOUT", 30*time.Second),
		BreakerHalfOpenRequests: getEnvAsInt("BREAKER_HALF_OPEN_REQUESTS", 2),
		ProviderCallTimeout:     getEnvAsDuration("PROVIDER_CALL_TIMEOUT", 45*time.Second),

		MinMessageLength:  getEnvAsInt("MIN_MESSAGE_LENGTH", 2),
		MaxMessageLength:  getEnvAsInt("MAX_MESSAGE_LENGTH", 2000),
		LowStockThreshold: getEnvAsInt("LOW_STOCK_THRESHOLD", 5),
		MinQuantity:       getEnvAsInt("MIN_QUANTITY", 1),
		MaxQuantity:       getEnvAsInt("MAX_QUANTITY", 100),
		ContextTurns:      getEnvAsInt("CONTEXT_TURNS", 5),
		CatalogIndexTTL:   getEnvAsDuration("CATALOG_INDEX_TTL", 10*time.Minute),

		MaxHistoryMessages: getEnvAsInt("MAX_HISTORY_MESSAGES", 20),
		MaxHistoryTokens:   getEnvAsInt("MAX_HISTORY_TOKENS", 3000),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
