// Package device manages the stable per-installation identity of a POS
// terminal and its row in the device registry.
package device

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/velstore/posgo/internal/database"
	"github.com/velstore/posgo/internal/models"
	"gorm.io/gorm/clause"
)

// Descriptor identifies this installation. Generated once on first run and
// persisted, so the device id survives restarts and app updates.
type Descriptor struct {
	DeviceID   string `json:"device_id"`
	Name       string `json:"name"`
	Platform   string `json:"platform"`
	AppVersion string `json:"app_version"`
}

const identityFileName = "device_identity.json"

// LoadOrGenerate returns the terminal's persistent identity. Environment
// variables win, then the identity file, then a freshly generated id that
// is written back for next time.
func LoadOrGenerate(dataDir, platform, appVersion string) (*Descriptor, error) {
	// 1. Environment override (fleet provisioning)
	if envID := os.Getenv("POS_DEVICE_ID"); envID != "" {
		return &Descriptor{
			DeviceID:   envID,
			Name:       os.Getenv("POS_DEVICE_NAME"),
			Platform:   platform,
			AppVersion: appVersion,
		}, nil
	}

	// 2. Local persistence file
	identityFile := filepath.Join(dataDir, identityFileName)
	if data, err := os.ReadFile(identityFile); err == nil {
		var d Descriptor
		if err := json.Unmarshal(data, &d); err == nil && d.DeviceID != "" {
			d.Platform = platform
			d.AppVersion = appVersion
			return &d, nil
		}
	}

	// 3. First run: generate and persist
	d := &Descriptor{
		DeviceID:   uuid.New().String(),
		Name:       defaultDeviceName(),
		Platform:   platform,
		AppVersion: appVersion,
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(identityFile, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to persist device identity: %w", err)
	}
	return d, nil
}

func defaultDeviceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "pos-terminal"
	}
	return host
}

// Touch registers or refreshes the device row: created on first run,
// updated on every activity tick.
func Touch(db *database.DB, d *Descriptor, tenantID string, online bool) error {
	rec := models.DeviceRecord{
		DeviceID:     d.DeviceID,
		TenantID:     tenantID,
		Name:         d.Name,
		Platform:     d.Platform,
		AppVersion:   d.AppVersion,
		IsOnline:     online,
		LastActiveAt: time.Now().UTC(),
	}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}
