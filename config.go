package main

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the server settings read from the environment
type Config struct {
	Host          string
	Port          string
	ClientDir     string
	DBPath        string
	PublicURL     string
	AdminPassword string
	JWTSecret     string
	MaxRooms      int
	Production    bool
}

// Addr is the listen address
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// LoadConfig reads an optional .env file and then the environment
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	cfg := &Config{
		Host:          getEnv("HOST", "0.0.0.0"),
		Port:          getEnv("PORT", "3002"),
		ClientDir:     getEnv("CLIENT_DIR", ""),
		DBPath:        getEnv("ANALYTICS_DB", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		MaxRooms:      getEnvInt("MAX_ROOMS", DefaultMaxRooms),
		Production:    getEnv("APP_ENV", "development") == "production",
	}
	cfg.PublicURL = getEnv("PUBLIC_URL", "http://localhost:"+cfg.Port)
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
