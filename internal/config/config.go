package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser        string
	DBPassword    string
	DBName        string
	DBHost        string
	DBPort        string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	BotToken      string
	APIAddr       string
	APIBaseURL    string
	APIToken      string
	JWTSecret     string
	AdminChatID   int64
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "invitedesk"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		BotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		APIAddr:       getEnv("API_ADDR", ":5000"),
		APIBaseURL:    getEnv("API_BASE_URL", "http://localhost:5000"),
		APIToken:      getEnv("API_TOKEN", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		AdminChatID:   getEnvInt64("ADMIN_CHAT_ID", 0),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("Invalid %s value %q, using default", key, value)
		return fallback
	}
	return parsed
}
