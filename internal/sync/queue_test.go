package sync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/velstore/posgo/internal/models"
)

func TestQueueEnqueueAndOrdering(t *testing.T) {
	db := newTestDB(t)
	q := NewQueue(db)

	ids := []string{"p1", "p2", "p3"}
	for _, id := range ids {
		op, err := q.Enqueue(testTenant, testDevice, OperationCreate, EntityTypeProduct, id,
			map[string]interface{}{"id": id})
		if err != nil {
			t.Fatalf("Failed to enqueue %s: %v", id, err)
		}
		if op.Status != models.OperationStatusPending {
			t.Errorf("New operation should be pending, got %s", op.Status)
		}
	}

	batch, err := q.NextBatch(testTenant, 10)
	if err != nil {
		t.Fatalf("Failed to read batch: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("Expected 3 pending operations, got %d", len(batch))
	}
	for i, op := range batch {
		if op.EntityID != ids[i] {
			t.Errorf("Batch position %d: expected %s, got %s (queue must drain oldest-first)", i, ids[i], op.EntityID)
		}
	}
}

func TestQueueBatchLimit(t *testing.T) {
	db := newTestDB(t)
	q := NewQueue(db)

	for i := 0; i < 5; i++ {
		if _, err := q.Enqueue(testTenant, testDevice, OperationUpdate, EntityTypeProduct,
			fmt.Sprintf("p%d", i), map[string]int{"n": i}); err != nil {
			t.Fatalf("Failed to enqueue: %v", err)
		}
	}

	batch, err := q.NextBatch(testTenant, 2)
	if err != nil {
		t.Fatalf("Failed to read batch: %v", err)
	}
	if len(batch) != 2 {
		t.Errorf("Expected batch of 2, got %d", len(batch))
	}
}

func TestQueueMarkSynced(t *testing.T) {
	db := newTestDB(t)
	q := NewQueue(db)

	op, err := q.Enqueue(testTenant, testDevice, OperationCreate, EntityTypeOrder, "o1", map[string]string{"id": "o1"})
	if err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}

	if err := q.MarkSynced(op.ID); err != nil {
		t.Fatalf("Failed to mark synced: %v", err)
	}

	var stored models.SyncOperation
	if err := db.First(&stored, "id = ?", op.ID).Error; err != nil {
		t.Fatalf("Failed to reload operation: %v", err)
	}
	if stored.Status != models.OperationStatusSynced {
		t.Errorf("Expected synced status, got %s", stored.Status)
	}
	if stored.SyncedAt == nil {
		t.Error("SyncedAt should be stamped")
	}

	count, err := q.PendingCount(testTenant)
	if err != nil {
		t.Fatalf("Failed to count pending: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 pending after sync, got %d", count)
	}
}

func TestQueueRetryCeiling(t *testing.T) {
	db := newTestDB(t)
	q := NewQueue(db)

	op, err := q.Enqueue(testTenant, testDevice, OperationUpdate, EntityTypeProduct, "p1", map[string]string{"id": "p1"})
	if err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}

	maxRetries := 3
	cause := errors.New("remote unreachable")

	// Below the ceiling the operation stays pending and retryable
	for i := 1; i < maxRetries; i++ {
		if err := q.MarkRetry(op.ID, maxRetries, cause); err != nil {
			t.Fatalf("Retry %d failed: %v", i, err)
		}
		var stored models.SyncOperation
		if err := db.First(&stored, "id = ?", op.ID).Error; err != nil {
			t.Fatalf("Failed to reload: %v", err)
		}
		if stored.Status != models.OperationStatusPending {
			t.Fatalf("After %d retries expected pending, got %s", i, stored.Status)
		}
		if stored.RetryCount != i {
			t.Errorf("Expected retry count %d, got %d", i, stored.RetryCount)
		}
	}

	// The final retry crosses the ceiling
	if err := q.MarkRetry(op.ID, maxRetries, cause); err != nil {
		t.Fatalf("Final retry failed: %v", err)
	}

	var stored models.SyncOperation
	if err := db.First(&stored, "id = ?", op.ID).Error; err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if stored.Status != models.OperationStatusFailed {
		t.Errorf("Expected failed status at retry ceiling, got %s", stored.Status)
	}
	if stored.ErrorMessage == nil || *stored.ErrorMessage != cause.Error() {
		t.Error("Error message should record the last failure cause")
	}

	// Failed operations leave the drain path but are never deleted
	batch, err := q.NextBatch(testTenant, 10)
	if err != nil {
		t.Fatalf("Failed to read batch: %v", err)
	}
	if len(batch) != 0 {
		t.Errorf("Failed operation must not reappear in batches, got %d", len(batch))
	}

	failed, err := q.Failed(testTenant)
	if err != nil {
		t.Fatalf("Failed to list failed operations: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != op.ID {
		t.Errorf("Failed operation must stay visible for operator attention")
	}
}

func TestQueueDiscardPending(t *testing.T) {
	db := newTestDB(t)
	q := NewQueue(db)

	if _, err := q.Enqueue(testTenant, testDevice, OperationUpdate, EntityTypeProduct, "p1", map[string]string{"id": "p1"}); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	if _, err := q.Enqueue(testTenant, testDevice, OperationUpdate, EntityTypeProduct, "p2", map[string]string{"id": "p2"}); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}

	if err := q.DiscardPending(testTenant, EntityTypeProduct, "p1"); err != nil {
		t.Fatalf("Failed to discard: %v", err)
	}

	batch, err := q.NextBatch(testTenant, 10)
	if err != nil {
		t.Fatalf("Failed to read batch: %v", err)
	}
	if len(batch) != 1 || batch[0].EntityID != "p2" {
		t.Errorf("Only p1's operation should be discarded, remaining batch: %+v", batch)
	}
}

func TestQueueTenantIsolation(t *testing.T) {
	db := newTestDB(t)
	q := NewQueue(db)

	if _, err := q.Enqueue("tenant-a", testDevice, OperationCreate, EntityTypeProduct, "p1", map[string]string{"id": "p1"}); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	if _, err := q.Enqueue("tenant-b", testDevice, OperationCreate, EntityTypeProduct, "p2", map[string]string{"id": "p2"}); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}

	batch, err := q.NextBatch("tenant-a", 10)
	if err != nil {
		t.Fatalf("Failed to read batch: %v", err)
	}
	if len(batch) != 1 || batch[0].TenantID != "tenant-a" {
		t.Errorf("Batch must be scoped to its tenant, got %+v", batch)
	}
}
