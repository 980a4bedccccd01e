package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentMethod defines how an order was paid
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodMobile PaymentMethod = "mobile"
	PaymentMethodOther  PaymentMethod = "other"
)

// Payment records a settlement attempt against one order
type Payment struct {
	ID       string `gorm:"primaryKey" json:"id"`
	TenantID string `gorm:"not null;index:idx_payments_tenant_sync" json:"tenant_id"`
	OrderID  string `gorm:"not null;index" json:"order_id"`

	Amount         float64       `gorm:"not null" json:"amount"`
	Method         PaymentMethod `gorm:"default:'cash'" json:"method"`
	TransactionRef *string       `json:"transaction_ref,omitempty"`
	Status         PaymentStatus `gorm:"default:'pending'" json:"status"`

	SyncStatus   SyncStatus `gorm:"default:'pending';index:idx_payments_tenant_sync" json:"sync_status"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// BeforeCreate assigns an id when the caller did not provide one
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// GetEntityID implements SyncableEntity
func (p Payment) GetEntityID() string { return p.ID }

// GetEntityType implements SyncableEntity
func (p Payment) GetEntityType() string { return "payments" }
