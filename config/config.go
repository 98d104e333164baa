package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// Origin of the external link-shortener service; empty disables shortening.
	ShortenerOrigin string
	// Public origin of the web client, used when building shareable event URLs.
	ClientOrigin string
	// Public origin of this API, used when building bot leaderboard URLs.
	APIOrigin string

	// Identity used on outbound notification embeds.
	NotifierName      string
	NotifierAvatarURL string
}

// Load reads configuration from environment variables, optionally picking up
// a .env file for local development. A missing .env is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	cfg := &Config{
		DatabaseURL:       dbURL,
		JWTSecretKey:      jwtKey,
		ServerPort:        port,
		ShortenerOrigin:   os.Getenv("SHORTENER_ORIGIN"),
		ClientOrigin:      getEnvOrDefault("CLIENT_ORIGIN", "https://singularity.events"),
		APIOrigin:         getEnvOrDefault("API_ORIGIN", fmt.Sprintf("http://localhost:%d", port)),
		NotifierName:      getEnvOrDefault("NOTIFIER_NAME", "singularity"),
		NotifierAvatarURL: os.Getenv("NOTIFIER_AVATAR_URL"),
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
