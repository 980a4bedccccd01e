package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/velstore/posgo/internal/database"
	"github.com/velstore/posgo/internal/models"
	"github.com/velstore/posgo/internal/remote"
	"github.com/velstore/posgo/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testTenant = "tenant-a"
	testDevice = "device-1"
)

// newTestDB opens a fresh in-memory database with the full schema
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	err = gdb.AutoMigrate(
		&models.Product{},
		&models.Customer{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.SyncOperation{},
		&models.SyncCheckpoint{},
		&models.SyncConflict{},
		&models.OfflineSession{},
		&models.DeviceRecord{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test schema: %v", err)
	}

	db := database.Wrap(gdb)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type pushedOp struct {
	EntityType string
	Operation  string
	EntityID   string
	Payload    json.RawMessage
}

// fakeRemote is an in-memory remote.Client with scriptable failures
type fakeRemote struct {
	mu sync.Mutex

	healthy bool
	pushed  []pushedOp
	records map[string][]remote.Record
	pushErr error
	pullErr error

	// when set, Push blocks until the channel is closed
	pushGate chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		healthy: true,
		records: make(map[string][]remote.Record),
	}
}

func (f *fakeRemote) Push(ctx context.Context, tenantID, entityType, operation, entityID string, payload json.RawMessage) error {
	f.mu.Lock()
	gate := f.pushGate
	pushErr := f.pushErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if pushErr != nil {
		return pushErr
	}

	f.mu.Lock()
	f.pushed = append(f.pushed, pushedOp{entityType, operation, entityID, payload})
	f.mu.Unlock()
	return nil
}

func (f *fakeRemote) PullSince(ctx context.Context, tenantID, entityType string, since time.Time) ([]remote.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	var out []remote.Record
	for _, rec := range f.records[entityType] {
		if rec.UpdatedAt.After(since) || rec.UpdatedAt.Equal(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRemote) Healthy(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy
}

func (f *fakeRemote) addRecord(entityType string, rec remote.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[entityType] = append(f.records[entityType], rec)
}

func (f *fakeRemote) pushedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed)
}

// fakeProbe reports a fixed connectivity state
type fakeProbe struct {
	mu     sync.Mutex
	online bool
}

func (p *fakeProbe) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

func (p *fakeProbe) setOnline(v bool) {
	p.mu.Lock()
	p.online = v
	p.mu.Unlock()
}

// productRecord serializes a product as the remote store would return it
func productRecord(id, name string, price float64, updatedAt time.Time) remote.Record {
	p := models.Product{
		ID:       id,
		TenantID: testTenant,
		Name:     name,
		Price:    price,
	}
	data, _ := json.Marshal(p)
	return remote.Record{
		ID:        id,
		TenantID:  testTenant,
		UpdatedAt: updatedAt,
		Data:      data,
	}
}

// seedLocalProduct writes a product row directly with a given sync status
func seedLocalProduct(t *testing.T, db *database.DB, id, name string, price float64, status models.SyncStatus, updatedAt time.Time) {
	t.Helper()
	p := models.Product{
		ID:         id,
		TenantID:   testTenant,
		Name:       name,
		Price:      price,
		SyncStatus: status,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	// Create stamps updated_at itself; force the timestamp we want
	if err := db.Model(&models.Product{}).Where("id = ?", id).
		UpdateColumn("updated_at", updatedAt).Error; err != nil {
		t.Fatalf("Failed to backdate product: %v", err)
	}
}

func newTestStore(db *database.DB) *store.Store {
	return store.New(db)
}
