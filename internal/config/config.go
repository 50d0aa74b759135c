package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the sync client.
// It follows the 12-factor app methodology by prioritizing environment variables.
type Config struct {
	Server Server
	Sync   Sync
}

type Server struct {
	WebSocketURL string
	APIBaseURL   string
	AccessToken  string
	Environment  string
}

type Sync struct {
	DedupWindow       time.Duration
	ParticipantExpiry time.Duration
	DefaultChunkBytes int
	SendChannelBuffer int
	WriteTimeout      time.Duration
	PingInterval      time.Duration
	RequestTimeout    time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	return &Config{
		Server: Server{
			WebSocketURL: getEnv("SYNC_WS_URL", "ws://localhost:8080/ws"),
			APIBaseURL:   getEnv("SYNC_API_URL", "http://localhost:8080/api/v1"),
			AccessToken:  getEnv("SYNC_ACCESS_TOKEN", ""),
			Environment:  getEnv("APP_ENV", "development"),
		},
		Sync: Sync{
			DedupWindow:       time.Duration(getEnvAsInt("SYNC_DEDUP_WINDOW_MS", 30000)) * time.Millisecond,
			ParticipantExpiry: time.Duration(getEnvAsInt("SYNC_PARTICIPANT_EXPIRY_MS", 30000)) * time.Millisecond,
			DefaultChunkBytes: getEnvAsInt("SYNC_DEFAULT_CHUNK_BYTES", 64*1024),
			SendChannelBuffer: getEnvAsInt("SYNC_SEND_BUFFER", 256),
			WriteTimeout:      time.Duration(getEnvAsInt("SYNC_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
			PingInterval:      time.Duration(getEnvAsInt("SYNC_PING_INTERVAL_MS", 30000)) * time.Millisecond,
			RequestTimeout:    time.Duration(getEnvAsInt("SYNC_REQUEST_TIMEOUT_MS", 15000)) * time.Millisecond,
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
