package models

import (
	"time"
)

// DeviceRecord represents one POS terminal installation.
// Created on first run, touched on every activity tick.
type DeviceRecord struct {
	DeviceID string `gorm:"primaryKey" json:"device_id"`
	TenantID string `gorm:"not null;index" json:"tenant_id"`

	Name       string `json:"name"`
	Platform   string `json:"platform"`
	AppVersion string `json:"app_version"`

	IsOnline     bool      `gorm:"default:false" json:"is_online"`
	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (DeviceRecord) TableName() string { return "device_info" }

// GetEntityID implements SyncableEntity
func (d DeviceRecord) GetEntityID() string { return d.DeviceID }

// GetEntityType implements SyncableEntity
func (d DeviceRecord) GetEntityType() string { return "devices" }
