// Package store is the durable local data layer for the terminal. All
// mutation, whether from business logic or from the sync engine's apply
// phase, goes through the idempotent Upsert/Delete contract here.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/velstore/posgo/internal/database"
	"github.com/velstore/posgo/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("store: entity not found")

// Store provides tenant-scoped access to the local database
type Store struct {
	db *database.DB
}

// New creates a Store over an open database
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for components that compose their own
// queries (queue, checkpoint, conflict log).
func (s *Store) DB() *database.DB {
	return s.db
}

// Get loads one entity by tenant and id into dest (a model pointer)
func (s *Store) Get(dest interface{}, tenantID, id string) error {
	err := s.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Upsert inserts or fully replaces a row by primary key. Safe to call
// repeatedly with the same data; both upload retries and re-downloaded
// delta windows depend on that.
func (s *Store) Upsert(model interface{}) error {
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
}

// Delete removes an entity by tenant and id. Orders cascade to their items
// and payments; the cascade is issued explicitly so behavior does not
// depend on the dialect honoring FK constraints.
func (s *Store) Delete(model interface{}, tenantID, id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return deleteCascade(tx, model, tenantID, id)
	})
}

// deleteCascade is the single delete path shared by Delete and
// SaveWithOperation
func deleteCascade(tx *gorm.DB, model interface{}, tenantID, id string) error {
	switch model.(type) {
	case *models.Order, models.Order:
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete order items: %w", err)
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return fmt.Errorf("failed to delete order payments: %w", err)
		}
	}
	return tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(model).Error
}

// QueryPending loads all rows whose content is not yet confirmed on the
// remote store (sync_status != synced) into dest (a slice pointer).
func (s *Store) QueryPending(dest interface{}, tenantID string) error {
	return s.db.Where("tenant_id = ? AND sync_status <> ?", tenantID, models.SyncStatusSynced).
		Order("updated_at ASC").
		Find(dest).Error
}

// MarkSynced flags a row as matching the remote store as of now
func (s *Store) MarkSynced(tableName, tenantID, id string, at time.Time) error {
	return s.db.Table(tableName).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]interface{}{
			"sync_status":    models.SyncStatusSynced,
			"last_synced_at": at,
		}).Error
}

// MarkConflict flags a row as awaiting manual conflict resolution
func (s *Store) MarkConflict(tableName, tenantID, id string) error {
	return s.db.Table(tableName).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("sync_status", models.SyncStatusConflict).Error
}

// MarkPending returns a row to the unsynced state
func (s *Store) MarkPending(tableName, tenantID, id string) error {
	return s.db.Table(tableName).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("sync_status", models.SyncStatusPending).Error
}

// SaveWithOperation writes a local mutation and its matching queue entry in
// one transaction, so a crash cannot leave a pending row without an
// operation or an operation without data.
func (s *Store) SaveWithOperation(model models.SyncableEntity, tenantID, deviceID, operation string) error {
	payload, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to serialize %s payload: %w", model.GetEntityType(), err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if operation == "delete" {
			if err := deleteCascade(tx, model, tenantID, model.GetEntityID()); err != nil {
				return err
			}
		} else {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error; err != nil {
				return err
			}
			if named, ok := model.(interface{ TableName() string }); ok {
				if err := tx.Table(named.TableName()).
					Where("tenant_id = ? AND id = ?", tenantID, model.GetEntityID()).
					Update("sync_status", models.SyncStatusPending).Error; err != nil {
					return err
				}
			}
		}

		op := models.SyncOperation{
			DeviceID:   deviceID,
			TenantID:   tenantID,
			Operation:  operation,
			EntityType: model.GetEntityType(),
			EntityID:   model.GetEntityID(),
			Payload:    payload,
			Status:     models.OperationStatusPending,
		}
		return tx.Create(&op).Error
	})
}
