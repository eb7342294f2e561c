package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	DB      DatabaseConfig
	Sheets  SheetsConfig
	Queue   QueueConfig
	Cache   CacheConfig
	LLM     LLMConfig
	Limiter RateLimiterConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	InternalAPIKey     string
}

type DatabaseConfig struct {
	Connection string
}

type SheetsConfig struct {
	CredentialsFile string
}

type QueueConfig struct {
	NatsURL    string
	StreamName string
	SubjectPrefix string
}

type CacheConfig struct {
	RedisURL  string
	TTLSecond int
}

type LLMConfig struct {
	Provider string // "ollama" or "openai-compatible"
	BaseURL  string
	Model    string
	APIKey   string
}

type RateLimiterConfig struct {
	SafetyFactor float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("note: .env file not found, using system environment")
	}

	cfg := &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			InternalAPIKey:     getEnv("INTERNAL_API_KEY", ""),
		},
		DB: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Sheets: SheetsConfig{
			CredentialsFile: getEnv("GOOGLE_SHEETS_CREDENTIALS_FILE", ""),
		},
		Queue: QueueConfig{
			NatsURL:       getEnv("NATS_URL", "nats://localhost:4222"),
			StreamName:    getEnv("SHEET_SYNC_STREAM", "SHEET_SYNC"),
			SubjectPrefix: getEnv("SHEET_SYNC_SUBJECT", "sheet.sync.tasks"),
		},
		Cache: CacheConfig{
			RedisURL:  getEnv("REDIS_URL", "redis://localhost:6379"),
			TTLSecond: getEnvAsInt("ANALYTICS_CACHE_TTL_SECONDS", 300),
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", "ollama"),
			BaseURL:  getEnv("LLM_BASE_URL", "http://localhost:11434"),
			Model:    getEnv("LLM_MODEL", "llama3"),
			APIKey:   getEnv("LLM_API_KEY", ""),
		},
		Limiter: RateLimiterConfig{
			SafetyFactor: getEnvAsFloat("RATE_LIMITER_SAFETY_FACTOR", 0.8),
		},
	}

	if cfg.DB.Connection == "" {
		log.Fatalf("DB_CONNECTION_STRING is required")
	}
	if cfg.Sheets.CredentialsFile == "" {
		log.Fatalf("GOOGLE_SHEETS_CREDENTIALS_FILE is required")
	}
	if cfg.App.InternalAPIKey == "" {
		log.Fatalf("INTERNAL_API_KEY is required")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
