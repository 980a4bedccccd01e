package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product represents a sellable item in the tenant's catalog
type Product struct {
	ID       string `gorm:"primaryKey" json:"id"`
	TenantID string `gorm:"not null;index:idx_products_tenant_sync" json:"tenant_id"`

	Name             string  `gorm:"not null" json:"name"`
	SKU              string  `gorm:"index" json:"sku"`
	Barcode          string  `gorm:"index" json:"barcode"`
	Price            float64 `json:"price"`
	Cost             float64 `json:"cost"`
	StockQuantity    int     `gorm:"default:0" json:"stock_quantity"`
	ReorderThreshold int     `gorm:"default:0" json:"reorder_threshold"`
	Active           bool    `gorm:"default:true" json:"active"`

	SyncStatus   SyncStatus `gorm:"default:'pending';index:idx_products_tenant_sync" json:"sync_status"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// BeforeCreate assigns an id when the caller did not provide one
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// NeedsReorder reports whether stock has fallen to the reorder threshold
func (p *Product) NeedsReorder() bool {
	return p.Active && p.StockQuantity <= p.ReorderThreshold
}

// GetEntityID implements SyncableEntity
func (p Product) GetEntityID() string { return p.ID }

// GetEntityType implements SyncableEntity
func (p Product) GetEntityType() string { return "products" }
