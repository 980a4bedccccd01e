package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus defines the order lifecycle
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// PaymentStatus defines the settlement state of an order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order represents a sale taken at the terminal
type Order struct {
	ID       string `gorm:"primaryKey" json:"id"`
	TenantID string `gorm:"not null;index:idx_orders_tenant_sync;uniqueIndex:idx_orders_tenant_number" json:"tenant_id"`

	OrderNumber    string        `gorm:"not null;uniqueIndex:idx_orders_tenant_number" json:"order_number"`
	CustomerID     *string       `gorm:"index" json:"customer_id,omitempty"`
	TotalAmount    float64       `json:"total_amount"`
	TaxAmount      float64       `json:"tax_amount"`
	DiscountAmount float64       `json:"discount_amount"`
	Status         OrderStatus   `gorm:"default:'pending';index" json:"status"`
	PaymentStatus  PaymentStatus `gorm:"default:'pending'" json:"payment_status"`

	SyncStatus   SyncStatus `gorm:"default:'pending';index:idx_orders_tenant_sync" json:"sync_status"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Items and payments are owned by the order and removed with it
	Items    []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Payments []Payment   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
}

func (Order) TableName() string { return "orders" }

// BeforeCreate assigns an id and order number when missing
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = generateOrderNumber()
	}
	return nil
}

// generateOrderNumber creates an order number unique within a tenant
func generateOrderNumber() string {
	return "ORD" + time.Now().UTC().Format("20060102-150405") + "-" + uuid.New().String()[:4]
}

// GetEntityID implements SyncableEntity
func (o Order) GetEntityID() string { return o.ID }

// GetEntityType implements SyncableEntity
func (o Order) GetEntityType() string { return "orders" }

// OrderItem is a single line of an order
type OrderItem struct {
	ID        string `gorm:"primaryKey" json:"id"`
	OrderID   string `gorm:"not null;index" json:"order_id"`
	ProductID string `gorm:"not null;index" json:"product_id"`

	Quantity  int     `gorm:"not null" json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
	Discount  float64 `json:"discount"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OrderItem) TableName() string { return "order_items" }

// BeforeCreate assigns an id when the caller did not provide one
func (oi *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if oi.ID == "" {
		oi.ID = uuid.New().String()
	}
	return nil
}
