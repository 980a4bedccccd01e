package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv  string
	Port     string
	TenantID string
	Database DatabaseConfig
	Remote   RemoteConfig
	Device   DeviceConfig
	Sync     *SyncConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Alter    bool
}

// RemoteConfig holds the remote store endpoint configuration
type RemoteConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// DeviceConfig holds device identity configuration
type DeviceConfig struct {
	DataDir    string
	Platform   string
	AppVersion string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		NodeEnv:  getEnv("NODE_ENV", "development"),
		Port:     getEnv("PORT", "3001"),
		TenantID: getEnv("POS_TENANT_ID", "default"),
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "posgo"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
		},
		Remote: RemoteConfig{
			BaseURL:        getEnv("REMOTE_BASE_URL", "http://localhost:8080"),
			APIKey:         os.Getenv("REMOTE_API_KEY"),
			TimeoutSeconds: getIntEnv("REMOTE_TIMEOUT", 15),
		},
		Device: DeviceConfig{
			DataDir:    getEnv("POS_DATA_DIR", ".posgo"),
			Platform:   getEnv("POS_PLATFORM", "terminal"),
			AppVersion: getEnv("POS_APP_VERSION", "dev"),
		},
		Sync: LoadSyncConfig(),
	}, nil
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
