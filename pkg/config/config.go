package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GitHub   GitHubConfig
	Session  SessionConfig
	GitLab   GitLabConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

type DatabaseConfig struct {
	Path string
}

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	// APIURL overrides the GitHub REST endpoint, mostly for GitHub Enterprise.
	APIURL string
}

type SessionConfig struct {
	Secret          string
	TTL             time.Duration
	RefreshWindow   time.Duration
	ResolveTimeout  time.Duration
	CleanupSchedule string
	CookieSecure    bool
	// RedirectDelay is how long protected pages show a notice before sending
	// anonymous visitors away. Zero redirects immediately.
	RedirectDelay time.Duration
}

type GitLabConfig struct {
	BaseURL string
	Timeout time.Duration
	PerPage int
	// RateLimit caps outgoing GitLab requests per second. Zero is unlimited.
	RateLimit int
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 15),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./perfguide.db"),
		},
		GitHub: GitHubConfig{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			CallbackURL:  getEnv("GITHUB_CALLBACK_URL", "http://localhost:8080/auth/github/callback"),
			APIURL:       getEnv("GITHUB_API_URL", ""),
		},
		Session: SessionConfig{
			Secret:          getEnv("SESSION_SECRET", "default-secret-key"),
			TTL:             time.Duration(getEnvAsInt("SESSION_TTL_HOURS", 24)) * time.Hour,
			RefreshWindow:   time.Duration(getEnvAsInt("SESSION_REFRESH_WINDOW_HOURS", 6)) * time.Hour,
			ResolveTimeout:  time.Duration(getEnvAsInt("SESSION_RESOLVE_TIMEOUT_MS", 2000)) * time.Millisecond,
			CleanupSchedule: getEnv("SESSION_CLEANUP_SCHEDULE", "@every 15m"),
			CookieSecure:    getEnvAsBool("COOKIE_SECURE", false),
			RedirectDelay:   time.Duration(getEnvAsInt("AUTH_REDIRECT_DELAY_MS", 0)) * time.Millisecond,
		},
		GitLab: GitLabConfig{
			BaseURL:   getEnv("GITLAB_BASE_URL", "https://gitlab.com"),
			Timeout:   time.Duration(getEnvAsInt("GITLAB_TIMEOUT_SECONDS", 30)) * time.Second,
			PerPage:   getEnvAsInt("GITLAB_PER_PAGE", 10),
			RateLimit: getEnvAsInt("GITLAB_RATE_LIMIT", 0),
		},
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
