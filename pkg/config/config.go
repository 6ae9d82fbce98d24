package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Environment   string
	Port          string
	DataDir       string
	RulesDBPath   string // empty selects the in-memory rule store
	MappingsFile  string
	MinSupport    float64
	MinConfidence float64
	MaxRules      int
	FetchWorkers  int
	RegenSchedule string // cron expression; empty disables scheduled regeneration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Environment:   getEnv("ENVIRONMENT", "development"),
		Port:          getEnv("PORT", "8080"),
		DataDir:       getEnv("DATA_DIR", "./data"),
		RulesDBPath:   getEnv("RULES_DB_PATH", ""),
		MappingsFile:  getEnv("MAPPINGS_FILE", ""),
		MinSupport:    getEnvAsFloat("MIN_SUPPORT", 0.05),
		MinConfidence: getEnvAsFloat("MIN_CONFIDENCE", 0.25),
		MaxRules:      getEnvAsInt("MAX_RULES", 500),
		FetchWorkers:  getEnvAsInt("FETCH_WORKERS", 8),
		RegenSchedule: getEnv("REGEN_SCHEDULE", ""),
	}
	return config, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
