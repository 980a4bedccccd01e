package sync

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/velstore/posgo/internal/database"
	"github.com/velstore/posgo/internal/models"
)

// Queue is the durable, append-only log of pending local mutations. Rows
// are drained oldest-first in bounded batches; a failed upload is retried
// on later cycles until it succeeds or exhausts its retries.
type Queue struct {
	db *database.DB
}

// NewQueue creates a queue over the sync_queue table
func NewQueue(db *database.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue appends a pending operation for one local mutation
func (q *Queue) Enqueue(tenantID, deviceID string, op OperationType, entityType EntityType, entityID string, payload interface{}) (*models.SyncOperation, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	operation := models.SyncOperation{
		DeviceID:   deviceID,
		TenantID:   tenantID,
		Operation:  string(op),
		EntityType: string(entityType),
		EntityID:   entityID,
		Payload:    data,
		Status:     models.OperationStatusPending,
	}
	if err := q.db.Create(&operation).Error; err != nil {
		return nil, fmt.Errorf("failed to enqueue %s %s: %w", op, entityType, err)
	}
	return &operation, nil
}

// NextBatch returns up to limit pending operations in created_at order
func (q *Queue) NextBatch(tenantID string, limit int) ([]models.SyncOperation, error) {
	var ops []models.SyncOperation
	err := q.db.Where("tenant_id = ? AND status = ?", tenantID, models.OperationStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&ops).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read pending operations: %w", err)
	}
	return ops, nil
}

// MarkSynced records confirmed remote application of an operation
func (q *Queue) MarkSynced(operationID string) error {
	now := time.Now().UTC()
	return q.db.Model(&models.SyncOperation{}).
		Where("id = ?", operationID).
		Updates(map[string]interface{}{
			"status":        models.OperationStatusSynced,
			"synced_at":     now,
			"error_message": nil,
		}).Error
}

// MarkRetry increments the retry count after a failed upload. At the retry
// ceiling the operation transitions to failed and is never retried again
// automatically; it stays visible for operator attention.
func (q *Queue) MarkRetry(operationID string, maxRetries int, cause error) error {
	var op models.SyncOperation
	if err := q.db.First(&op, "id = ?", operationID).Error; err != nil {
		return fmt.Errorf("operation %s not found: %w", operationID, err)
	}

	op.RetryCount++
	msg := cause.Error()
	op.ErrorMessage = &msg

	if op.RetryCount >= maxRetries {
		op.Status = models.OperationStatusFailed
		log.Printf("⚠️ Operation %s (%s %s/%s) failed permanently after %d attempts: %v",
			op.ID, op.Operation, op.EntityType, op.EntityID, op.RetryCount, cause)
	}

	return q.db.Model(&models.SyncOperation{}).
		Where("id = ?", operationID).
		Updates(map[string]interface{}{
			"retry_count":   op.RetryCount,
			"status":        op.Status,
			"error_message": op.ErrorMessage,
		}).Error
}

// DiscardPending removes the pending operations for one entity. Used when
// a conflict resolves remote_wins and the local intent is superseded.
func (q *Queue) DiscardPending(tenantID string, entityType EntityType, entityID string) error {
	return q.db.Where("tenant_id = ? AND entity_type = ? AND entity_id = ? AND status = ?",
		tenantID, string(entityType), entityID, models.OperationStatusPending).
		Delete(&models.SyncOperation{}).Error
}

// PendingCount returns the number of operations awaiting upload
func (q *Queue) PendingCount(tenantID string) (int64, error) {
	var count int64
	err := q.db.Model(&models.SyncOperation{}).
		Where("tenant_id = ? AND status = ?", tenantID, models.OperationStatusPending).
		Count(&count).Error
	return count, err
}

// Failed returns operations that exhausted their retries
func (q *Queue) Failed(tenantID string) ([]models.SyncOperation, error) {
	var ops []models.SyncOperation
	err := q.db.Where("tenant_id = ? AND status = ?", tenantID, models.OperationStatusFailed).
		Order("created_at ASC").
		Find(&ops).Error
	return ops, err
}
