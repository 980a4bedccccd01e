package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SyncConfig holds synchronization configuration
type SyncConfig struct {
	// ============ BASIC SETTINGS ============
	Enabled            bool   `json:"enabled"`
	ConflictResolution string `json:"conflict_resolution"` // remote_wins, local_wins, manual

	// ============ SCHEDULING ============
	AutoSyncEnabled bool `json:"auto_sync_enabled"`
	SyncIntervalMs  int  `json:"sync_interval_ms"`
	SyncOnStartup   bool `json:"sync_on_startup"`

	// ============ LIMITS ============
	MaxRetries   int `json:"max_retries"`
	RetryDelayMs int `json:"retry_delay_ms"`
	BatchSize    int `json:"batch_size"`

	// ============ CONFLICT DETECTION ============
	// Window within which a local pending edit and a remote edit to the
	// same entity are treated as concurrent.
	ConflictWindowMs int `json:"conflict_window_ms"`
}

// LoadSyncConfig loads sync configuration from environment or file
func LoadSyncConfig() *SyncConfig {
	// Try to load from file first
	if configPath := os.Getenv("SYNC_CONFIG_PATH"); configPath != "" {
		if cfg, err := loadSyncConfigFromFile(configPath); err == nil {
			cfg.applyFloors()
			return cfg
		}
	}

	cfg := &SyncConfig{
		Enabled:            getBoolEnv("SYNC_ENABLED", true),
		ConflictResolution: getEnv("SYNC_CONFLICT_RESOLUTION", "remote_wins"),

		AutoSyncEnabled: getBoolEnv("SYNC_AUTO_ENABLED", true),
		SyncIntervalMs:  getIntEnv("SYNC_INTERVAL_MS", 30000),
		SyncOnStartup:   getBoolEnv("SYNC_ON_STARTUP", true),

		MaxRetries:   getIntEnv("SYNC_MAX_RETRIES", 3),
		RetryDelayMs: getIntEnv("SYNC_RETRY_DELAY_MS", 5000),
		BatchSize:    getIntEnv("SYNC_BATCH_SIZE", 50),

		ConflictWindowMs: getIntEnv("SYNC_CONFLICT_WINDOW_MS", 1000),
	}
	cfg.applyFloors()
	return cfg
}

// loadSyncConfigFromFile loads sync config from JSON file
func loadSyncConfigFromFile(path string) (*SyncConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg SyncConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyFloors enforces the minimum values the sync engine relies on
func (c *SyncConfig) applyFloors() {
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	if c.SyncIntervalMs < 1000 {
		c.SyncIntervalMs = 1000
	}
	if c.RetryDelayMs < 0 {
		c.RetryDelayMs = 0
	}
	if c.ConflictWindowMs < 0 {
		c.ConflictWindowMs = 0
	}
	switch c.ConflictResolution {
	case "remote_wins", "local_wins", "manual":
	default:
		c.ConflictResolution = "remote_wins"
	}
}

// SyncInterval returns the scheduler tick interval
func (c *SyncConfig) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMs) * time.Millisecond
}

// RetryDelay returns the delay between upload retries
func (c *SyncConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// ConflictWindow returns the concurrent-edit detection tolerance
func (c *SyncConfig) ConflictWindow() time.Duration {
	return time.Duration(c.ConflictWindowMs) * time.Millisecond
}

// Helper functions for environment variables

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
