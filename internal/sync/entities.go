package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/velstore/posgo/internal/models"
	"github.com/velstore/posgo/internal/remote"
	"github.com/velstore/posgo/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// baseHandler carries the parts of EntityHandler that are identical across
// entity types: queue payloads are opaque blobs at this boundary, so upload
// and delta pull never need to know the concrete shape.
type baseHandler struct {
	entityType EntityType
	tableName  string
	store      *store.Store
	remote     remote.Client
}

func (b *baseHandler) EntityType() EntityType { return b.entityType }

func (b *baseHandler) Upload(ctx context.Context, op models.SyncOperation) error {
	return b.remote.Push(ctx, op.TenantID, string(b.entityType), op.Operation, op.EntityID, json.RawMessage(op.Payload))
}

func (b *baseHandler) PullSince(ctx context.Context, tenantID string, since time.Time) ([]remote.Record, error) {
	return b.remote.PullSince(ctx, tenantID, string(b.entityType), since)
}

func (b *baseHandler) MarkSynced(tenantID, entityID string, at time.Time) error {
	return b.store.MarkSynced(b.tableName, tenantID, entityID, at)
}

func (b *baseHandler) MarkConflict(tenantID, entityID string) error {
	return b.store.MarkConflict(b.tableName, tenantID, entityID)
}

func (b *baseHandler) MarkPending(tenantID, entityID string) error {
	return b.store.MarkPending(b.tableName, tenantID, entityID)
}

// localVersionOf builds the conflict-detection view of one local row
func localVersionOf(status models.SyncStatus, updatedAt time.Time, row interface{}) (*LocalVersion, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize local row: %w", err)
	}
	return &LocalVersion{SyncStatus: status, UpdatedAt: updatedAt, Data: data}, nil
}

// ProductHandler syncs the product catalog
type ProductHandler struct {
	baseHandler
}

// NewProductHandler creates the products handler
func NewProductHandler(s *store.Store, r remote.Client) *ProductHandler {
	return &ProductHandler{baseHandler{EntityTypeProduct, models.Product{}.TableName(), s, r}}
}

// Local implements EntityHandler
func (h *ProductHandler) Local(tenantID, entityID string) (*LocalVersion, error) {
	var p models.Product
	if err := h.store.Get(&p, tenantID, entityID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return localVersionOf(p.SyncStatus, p.UpdatedAt, p)
}

// ApplyRemote implements EntityHandler
func (h *ProductHandler) ApplyRemote(tenantID string, rec remote.Record) error {
	if rec.Deleted {
		return h.store.Delete(&models.Product{}, tenantID, rec.ID)
	}
	var p models.Product
	if err := json.Unmarshal(rec.Data, &p); err != nil {
		return fmt.Errorf("bad remote product %s: %w", rec.ID, err)
	}
	stampRemote(&p.ID, &p.TenantID, &p.SyncStatus, &p.LastSyncedAt, &p.UpdatedAt, rec, tenantID)
	return h.store.Upsert(&p)
}

// CustomerHandler syncs the customer book
type CustomerHandler struct {
	baseHandler
}

// NewCustomerHandler creates the customers handler
func NewCustomerHandler(s *store.Store, r remote.Client) *CustomerHandler {
	return &CustomerHandler{baseHandler{EntityTypeCustomer, models.Customer{}.TableName(), s, r}}
}

// Local implements EntityHandler
func (h *CustomerHandler) Local(tenantID, entityID string) (*LocalVersion, error) {
	var c models.Customer
	if err := h.store.Get(&c, tenantID, entityID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return localVersionOf(c.SyncStatus, c.UpdatedAt, c)
}

// ApplyRemote implements EntityHandler
func (h *CustomerHandler) ApplyRemote(tenantID string, rec remote.Record) error {
	if rec.Deleted {
		return h.store.Delete(&models.Customer{}, tenantID, rec.ID)
	}
	var c models.Customer
	if err := json.Unmarshal(rec.Data, &c); err != nil {
		return fmt.Errorf("bad remote customer %s: %w", rec.ID, err)
	}
	stampRemote(&c.ID, &c.TenantID, &c.SyncStatus, &c.LastSyncedAt, &c.UpdatedAt, rec, tenantID)
	return h.store.Upsert(&c)
}

// OrderHandler syncs orders with their owned line items
type OrderHandler struct {
	baseHandler
}

// NewOrderHandler creates the orders handler
func NewOrderHandler(s *store.Store, r remote.Client) *OrderHandler {
	return &OrderHandler{baseHandler{EntityTypeOrder, models.Order{}.TableName(), s, r}}
}

// Local implements EntityHandler
func (h *OrderHandler) Local(tenantID, entityID string) (*LocalVersion, error) {
	var o models.Order
	if err := h.store.Get(&o, tenantID, entityID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return localVersionOf(o.SyncStatus, o.UpdatedAt, o)
}

// ApplyRemote implements EntityHandler. Remote order records carry their
// line items; the local item set is replaced wholesale so a re-applied
// record cannot duplicate lines.
func (h *OrderHandler) ApplyRemote(tenantID string, rec remote.Record) error {
	if rec.Deleted {
		return h.store.Delete(&models.Order{}, tenantID, rec.ID)
	}
	var o models.Order
	if err := json.Unmarshal(rec.Data, &o); err != nil {
		return fmt.Errorf("bad remote order %s: %w", rec.ID, err)
	}
	stampRemote(&o.ID, &o.TenantID, &o.SyncStatus, &o.LastSyncedAt, &o.UpdatedAt, rec, tenantID)

	items := o.Items
	o.Items = nil
	o.Payments = nil

	return h.store.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&o).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = o.ID
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// PaymentHandler syncs payments
type PaymentHandler struct {
	baseHandler
}

// NewPaymentHandler creates the payments handler
func NewPaymentHandler(s *store.Store, r remote.Client) *PaymentHandler {
	return &PaymentHandler{baseHandler{EntityTypePayment, models.Payment{}.TableName(), s, r}}
}

// Local implements EntityHandler
func (h *PaymentHandler) Local(tenantID, entityID string) (*LocalVersion, error) {
	var p models.Payment
	if err := h.store.Get(&p, tenantID, entityID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return localVersionOf(p.SyncStatus, p.UpdatedAt, p)
}

// ApplyRemote implements EntityHandler
func (h *PaymentHandler) ApplyRemote(tenantID string, rec remote.Record) error {
	if rec.Deleted {
		return h.store.Delete(&models.Payment{}, tenantID, rec.ID)
	}
	var p models.Payment
	if err := json.Unmarshal(rec.Data, &p); err != nil {
		return fmt.Errorf("bad remote payment %s: %w", rec.ID, err)
	}
	stampRemote(&p.ID, &p.TenantID, &p.SyncStatus, &p.LastSyncedAt, &p.UpdatedAt, rec, tenantID)
	return h.store.Upsert(&p)
}

// stampRemote normalizes a downloaded record before the local write: the
// record's id, tenant and remote timestamp are authoritative, and the row
// lands in synced state.
func stampRemote(id, tenant *string, status *models.SyncStatus, lastSynced **time.Time, updatedAt *time.Time, rec remote.Record, tenantID string) {
	*id = rec.ID
	*tenant = tenantID
	*status = models.SyncStatusSynced
	now := time.Now().UTC()
	*lastSynced = &now
	if !rec.UpdatedAt.IsZero() {
		*updatedAt = rec.UpdatedAt
	}
}

// DefaultRegistry wires the standard POS entity set
func DefaultRegistry(s *store.Store, r remote.Client) *Registry {
	reg := NewRegistry()
	_ = reg.Register(NewProductHandler(s, r))
	_ = reg.Register(NewCustomerHandler(s, r))
	_ = reg.Register(NewOrderHandler(s, r))
	_ = reg.Register(NewPaymentHandler(s, r))
	return reg
}
