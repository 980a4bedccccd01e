package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer represents a tenant's registered buyer
type Customer struct {
	ID       string `gorm:"primaryKey" json:"id"`
	TenantID string `gorm:"not null;index:idx_customers_tenant_sync" json:"tenant_id"`

	Name          string `gorm:"not null" json:"name"`
	Email         string `gorm:"index" json:"email"`
	Phone         string `json:"phone"`
	LoyaltyPoints int    `gorm:"default:0" json:"loyalty_points"`
	Active        bool   `gorm:"default:true" json:"active"`

	SyncStatus   SyncStatus `gorm:"default:'pending';index:idx_customers_tenant_sync" json:"sync_status"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

// BeforeCreate assigns an id when the caller did not provide one
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// GetEntityID implements SyncableEntity
func (c Customer) GetEntityID() string { return c.ID }

// GetEntityType implements SyncableEntity
func (c Customer) GetEntityType() string { return "customers" }
