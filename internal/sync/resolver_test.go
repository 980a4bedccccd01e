package sync

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/velstore/posgo/internal/models"
)

func newTestResolver(t *testing.T, strategy ConflictStrategy) (*ConflictResolver, *Queue, *fakeRemote, *Registry) {
	t.Helper()
	db := newTestDB(t)
	q := NewQueue(db)
	r := newFakeRemote()
	reg := DefaultRegistry(newTestStore(db), r)
	return NewConflictResolver(db, q, strategy, time.Second), q, r, reg
}

func TestClassifyNoLocalVersion(t *testing.T) {
	cr, _, _, _ := newTestResolver(t, ConflictRemoteWins)

	rec := productRecord("p1", "Coffee", 3.50, time.Now().UTC())
	if _, conflicted := cr.Classify(nil, rec); conflicted {
		t.Error("A record with no local version can never conflict")
	}
}

func TestClassifySyncedLocalIsOverwritten(t *testing.T) {
	cr, _, _, _ := newTestResolver(t, ConflictRemoteWins)

	local := &LocalVersion{
		SyncStatus: models.SyncStatusSynced,
		UpdatedAt:  time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	}
	rec := productRecord("p1", "Coffee", 3.50, time.Now().UTC())
	if _, conflicted := cr.Classify(local, rec); conflicted {
		t.Error("A synced local row is silently overwritten, not a conflict")
	}
}

func TestClassifyWindowSymmetry(t *testing.T) {
	cr, _, _, _ := newTestResolver(t, ConflictRemoteWins)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		local  time.Time
		remote time.Time
		want   ConflictType
	}{
		{"local just before remote", base, base.Add(500 * time.Millisecond), ConflictConcurrentUpdate},
		{"local just after remote", base.Add(500 * time.Millisecond), base, ConflictConcurrentUpdate},
		{"exactly at the window edge", base, base.Add(time.Second), ConflictConcurrentUpdate},
		{"local long before remote", base, base.Add(time.Minute), ConflictUpdateConflict},
		{"local long after remote", base.Add(time.Minute), base, ConflictUpdateConflict},
	}

	for _, tc := range cases {
		local := &LocalVersion{
			SyncStatus: models.SyncStatusPending,
			UpdatedAt:  tc.local,
			Data:       json.RawMessage(`{}`),
		}
		rec := productRecord("p1", "Coffee", 3.50, tc.remote)

		got, conflicted := cr.Classify(local, rec)
		if !conflicted {
			t.Errorf("%s: pending local + remote edit must conflict", tc.name)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestResolveRemoteWins(t *testing.T) {
	cr, q, _, reg := newTestResolver(t, ConflictRemoteWins)
	db := cr.db

	now := time.Now().UTC()
	seedLocalProduct(t, db, "p1", "Coffee Local", 3.00, models.SyncStatusPending, now)
	if _, err := q.Enqueue(testTenant, testDevice, OperationUpdate, EntityTypeProduct, "p1",
		map[string]string{"id": "p1"}); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}

	h, _ := reg.Handler(EntityTypeProduct)
	local, err := h.Local(testTenant, "p1")
	if err != nil {
		t.Fatalf("Failed to load local version: %v", err)
	}

	rec := productRecord("p1", "Coffee Remote", 3.50, now)
	report, err := cr.Resolve(h, testTenant, testDevice, local, rec, ConflictConcurrentUpdate)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if report.Resolution != ConflictRemoteWins {
		t.Errorf("Report should carry the applied policy, got %s", report.Resolution)
	}

	// Remote data overwrote local
	var p models.Product
	if err := db.First(&p, "id = ?", "p1").Error; err != nil {
		t.Fatalf("Failed to reload product: %v", err)
	}
	if p.Name != "Coffee Remote" || p.Price != 3.50 {
		t.Errorf("Remote version should win, got name=%q price=%v", p.Name, p.Price)
	}
	if p.SyncStatus != models.SyncStatusSynced {
		t.Errorf("Applied row should be synced, got %s", p.SyncStatus)
	}

	// The superseded local operation is gone from the queue
	count, err := q.PendingCount(testTenant)
	if err != nil {
		t.Fatalf("Failed to count pending: %v", err)
	}
	if count != 0 {
		t.Errorf("Pending local operation should be discarded, %d remain", count)
	}

	// The collision is on record
	var conflicts []models.SyncConflict
	if err := db.Find(&conflicts).Error; err != nil {
		t.Fatalf("Failed to load conflicts: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].Status != models.ConflictStatusResolved {
		t.Errorf("Auto-resolved conflict should be persisted as resolved, got %+v", conflicts)
	}
}

func TestResolveLocalWins(t *testing.T) {
	cr, q, _, reg := newTestResolver(t, ConflictLocalWins)
	db := cr.db

	now := time.Now().UTC()
	seedLocalProduct(t, db, "p1", "Coffee Local", 3.00, models.SyncStatusPending, now)

	h, _ := reg.Handler(EntityTypeProduct)
	local, err := h.Local(testTenant, "p1")
	if err != nil {
		t.Fatalf("Failed to load local version: %v", err)
	}

	rec := productRecord("p1", "Coffee Remote", 3.50, now)
	if _, err := cr.Resolve(h, testTenant, testDevice, local, rec, ConflictConcurrentUpdate); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Local data untouched
	var p models.Product
	if err := db.First(&p, "id = ?", "p1").Error; err != nil {
		t.Fatalf("Failed to reload product: %v", err)
	}
	if p.Name != "Coffee Local" {
		t.Errorf("Local version should survive, got %q", p.Name)
	}

	// An upload of the local version is queued for the next cycle
	batch, err := q.NextBatch(testTenant, 10)
	if err != nil {
		t.Fatalf("Failed to read batch: %v", err)
	}
	if len(batch) != 1 || batch[0].EntityID != "p1" || batch[0].Operation != string(OperationUpdate) {
		t.Fatalf("Expected one queued update for p1, got %+v", batch)
	}

	var queued models.Product
	if err := json.Unmarshal(batch[0].Payload, &queued); err != nil {
		t.Fatalf("Queued payload should be the local row: %v", err)
	}
	if queued.Name != "Coffee Local" {
		t.Errorf("Queued payload should carry local data, got %q", queued.Name)
	}
}

func TestResolveManualPolicy(t *testing.T) {
	cr, _, _, reg := newTestResolver(t, ConflictManual)
	db := cr.db

	now := time.Now().UTC()
	seedLocalProduct(t, db, "p1", "Coffee Local", 3.00, models.SyncStatusPending, now)

	h, _ := reg.Handler(EntityTypeProduct)
	local, err := h.Local(testTenant, "p1")
	if err != nil {
		t.Fatalf("Failed to load local version: %v", err)
	}

	rec := productRecord("p1", "Coffee Remote", 3.50, now)
	if _, err := cr.Resolve(h, testTenant, testDevice, local, rec, ConflictUpdateConflict); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Neither side applied; the row is flagged
	var p models.Product
	if err := db.First(&p, "id = ?", "p1").Error; err != nil {
		t.Fatalf("Failed to reload product: %v", err)
	}
	if p.Name != "Coffee Local" {
		t.Errorf("Manual policy must not change data, got %q", p.Name)
	}
	if p.SyncStatus != models.SyncStatusConflict {
		t.Errorf("Row should be in conflict state, got %s", p.SyncStatus)
	}

	var row models.SyncConflict
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("Failed to load conflict row: %v", err)
	}
	if row.Status != models.ConflictStatusPending {
		t.Errorf("Manual conflict should stay pending, got %s", row.Status)
	}
}

func TestResolveManualCompletionRemote(t *testing.T) {
	cr, q, _, reg := newTestResolver(t, ConflictManual)
	db := cr.db

	now := time.Now().UTC()
	seedLocalProduct(t, db, "p1", "Coffee Local", 3.00, models.SyncStatusPending, now)
	if _, err := q.Enqueue(testTenant, testDevice, OperationUpdate, EntityTypeProduct, "p1",
		map[string]string{"id": "p1"}); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}

	h, _ := reg.Handler(EntityTypeProduct)
	local, _ := h.Local(testTenant, "p1")
	rec := productRecord("p1", "Coffee Remote", 3.50, now)
	if _, err := cr.Resolve(h, testTenant, testDevice, local, rec, ConflictUpdateConflict); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	var row models.SyncConflict
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("Failed to load conflict row: %v", err)
	}

	if err := cr.ResolveManual(reg, row.ID, testDevice, "remote"); err != nil {
		t.Fatalf("Manual resolution failed: %v", err)
	}

	var p models.Product
	if err := db.First(&p, "id = ?", "p1").Error; err != nil {
		t.Fatalf("Failed to reload product: %v", err)
	}
	if p.Name != "Coffee Remote" {
		t.Errorf("Remote winner should overwrite local, got %q", p.Name)
	}

	count, _ := q.PendingCount(testTenant)
	if count != 0 {
		t.Errorf("Pending operation should be discarded when remote wins, %d remain", count)
	}

	// Resolving twice is rejected
	if err := cr.ResolveManual(reg, row.ID, testDevice, "remote"); err == nil {
		t.Error("Re-resolving a resolved conflict should fail")
	}
}

func TestResolveManualCompletionLocal(t *testing.T) {
	cr, q, _, reg := newTestResolver(t, ConflictManual)
	db := cr.db

	now := time.Now().UTC()
	seedLocalProduct(t, db, "p1", "Coffee Local", 3.00, models.SyncStatusPending, now)

	h, _ := reg.Handler(EntityTypeProduct)
	local, _ := h.Local(testTenant, "p1")
	rec := productRecord("p1", "Coffee Remote", 3.50, now)
	if _, err := cr.Resolve(h, testTenant, testDevice, local, rec, ConflictUpdateConflict); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	var row models.SyncConflict
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("Failed to load conflict row: %v", err)
	}

	if err := cr.ResolveManual(reg, row.ID, testDevice, "local"); err != nil {
		t.Fatalf("Manual resolution failed: %v", err)
	}

	// Local data kept, row back in pending, upload queued
	var p models.Product
	if err := db.First(&p, "id = ?", "p1").Error; err != nil {
		t.Fatalf("Failed to reload product: %v", err)
	}
	if p.Name != "Coffee Local" {
		t.Errorf("Local winner should keep local data, got %q", p.Name)
	}
	if p.SyncStatus != models.SyncStatusPending {
		t.Errorf("Row should return to pending, got %s", p.SyncStatus)
	}

	batch, _ := q.NextBatch(testTenant, 10)
	if len(batch) != 1 {
		t.Fatalf("Expected one queued upload of the local version, got %d", len(batch))
	}
	var queued models.Product
	if err := json.Unmarshal(batch[0].Payload, &queued); err != nil {
		t.Fatalf("Queued payload should be the local row, not a double-encoded blob: %v", err)
	}
	if queued.Name != "Coffee Local" {
		t.Errorf("Queued payload should carry local data, got %q", queued.Name)
	}
}

func TestResolveManualRejectsBadWinner(t *testing.T) {
	cr, _, _, reg := newTestResolver(t, ConflictManual)
	db := cr.db

	now := time.Now().UTC()
	seedLocalProduct(t, db, "p1", "Coffee Local", 3.00, models.SyncStatusPending, now)

	h, _ := reg.Handler(EntityTypeProduct)
	local, _ := h.Local(testTenant, "p1")
	rec := productRecord("p1", "Coffee Remote", 3.50, now)
	if _, err := cr.Resolve(h, testTenant, testDevice, local, rec, ConflictUpdateConflict); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	var row models.SyncConflict
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("Failed to load conflict row: %v", err)
	}

	if err := cr.ResolveManual(reg, row.ID, testDevice, "coin-flip"); err == nil {
		t.Error("Unknown winner value should be rejected")
	}
}

func TestDefaultStrategyIsRemoteWins(t *testing.T) {
	db := newTestDB(t)
	cr := NewConflictResolver(db, NewQueue(db), "", time.Second)
	if cr.Strategy() != ConflictRemoteWins {
		t.Errorf("Empty strategy should default to remote_wins, got %s", cr.Strategy())
	}
}
