package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/velstore/posgo/internal/config"
	"github.com/velstore/posgo/internal/database"
	"github.com/velstore/posgo/internal/models"
	"gorm.io/gorm"
)

// ConnectivityProbe reports whether the device currently has a usable link
// to the remote store. Injected so the engine never reads host environment
// state directly.
type ConnectivityProbe interface {
	IsOnline() bool
}

// Engine orchestrates sync cycles: drain the operation queue upward, pull
// the remote delta window downward, resolve collisions, advance the
// checkpoint. At most one cycle runs at a time.
type Engine struct {
	db       *database.DB
	cfg      *config.SyncConfig
	queue    *Queue
	registry *Registry
	resolver *ConflictResolver
	probe    ConnectivityProbe
	deviceID string

	// Single-flight guard; checked-and-set atomically so a scheduler tick
	// and a manual trigger cannot race into two concurrent cycles.
	syncing atomic.Bool

	mu       sync.RWMutex
	lastSync time.Time
	notify   func(*CycleResult)
}

// NewEngine creates a sync engine
func NewEngine(db *database.DB, cfg *config.SyncConfig, queue *Queue, registry *Registry, resolver *ConflictResolver, probe ConnectivityProbe, deviceID string) *Engine {
	return &Engine{
		db:       db,
		cfg:      cfg,
		queue:    queue,
		registry: registry,
		resolver: resolver,
		probe:    probe,
		deviceID: deviceID,
	}
}

// SetNotifier installs a callback invoked after every completed cycle
func (e *Engine) SetNotifier(fn func(*CycleResult)) {
	e.mu.Lock()
	e.notify = fn
	e.mu.Unlock()
}

// InProgress reports whether a cycle currently holds the guard
func (e *Engine) InProgress() bool {
	return e.syncing.Load()
}

// LastSync returns the completion time of the most recent cycle
func (e *Engine) LastSync() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSync
}

// Registry exposes the handler registry (manual conflict resolution)
func (e *Engine) Registry() *Registry { return e.registry }

// Resolver exposes the conflict resolver (manual conflict resolution)
func (e *Engine) Resolver() *ConflictResolver { return e.resolver }

// DB exposes the underlying database handle
func (e *Engine) DB() *database.DB { return e.db }

// SyncCycle runs one full cycle for the tenant. Precondition violations
// (offline, cycle already running) fail fast with an error; anything that
// goes wrong inside the cycle is collected into the result instead.
func (e *Engine) SyncCycle(ctx context.Context, tenantID string) (*CycleResult, error) {
	if !e.probe.IsOnline() {
		e.recordOfflineSession(tenantID)
		return nil, ErrDeviceOffline
	}
	if !e.syncing.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer e.syncing.Store(false)

	start := time.Now().UTC()
	result := &CycleResult{
		Conflicts: []ConflictReport{},
		Errors:    []string{},
		Timestamp: start,
	}

	log.Printf("🔄 Sync cycle starting (tenant=%s device=%s)", tenantID, e.deviceID)

	checkpoint, err := e.loadCheckpoint(tenantID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("checkpoint load: %v", err))
		result.Duration = time.Since(start)
		return result, nil
	}

	e.uploadPhase(ctx, tenantID, result)
	downloadOK := e.downloadPhase(ctx, tenantID, checkpoint, result)

	// The checkpoint anchors the next delta pull; it moves to this cycle's
	// start time only when every downloaded record was applied or resolved,
	// so a partial failure re-downloads the same window (apply is
	// idempotent, so that is safe).
	if downloadOK {
		if err := e.advanceCheckpoint(tenantID, start); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("checkpoint advance: %v", err))
		}
	}

	// Total failure (e.g. the link died mid-cycle) is a clean download
	// that never happened and zero movement in either direction.
	result.Success = downloadOK || result.SyncedOperations > 0 || result.AppliedRecords > 0

	e.mu.Lock()
	e.lastSync = time.Now().UTC()
	notify := e.notify
	e.mu.Unlock()

	e.touchDevice(tenantID)
	if result.Success {
		e.closeOfflineSession(tenantID)
	}

	result.Duration = time.Since(start)
	log.Printf("✅ Sync cycle finished in %v: %d uploaded, %d applied, %d conflicts, %d errors",
		result.Duration, result.SyncedOperations, result.AppliedRecords, len(result.Conflicts), len(result.Errors))

	if notify != nil {
		notify(result)
	}
	return result, nil
}

// uploadPhase drains one batch of the operation queue. A single failed
// operation never aborts the batch; it is marked for retry and reported.
func (e *Engine) uploadPhase(ctx context.Context, tenantID string, result *CycleResult) {
	batch, err := e.queue.NextBatch(tenantID, e.cfg.BatchSize)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("queue read: %v", err))
		return
	}

	for _, op := range batch {
		h, err := e.registry.Handler(EntityType(op.EntityType))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("operation %s: %v", op.ID, err))
			if retryErr := e.queue.MarkRetry(op.ID, e.cfg.MaxRetries, err); retryErr != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("operation %s retry bookkeeping: %v", op.ID, retryErr))
			}
			continue
		}

		if err := h.Upload(ctx, op); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("upload %s %s/%s: %v", op.Operation, op.EntityType, op.EntityID, err))
			if retryErr := e.queue.MarkRetry(op.ID, e.cfg.MaxRetries, err); retryErr != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("operation %s retry bookkeeping: %v", op.ID, retryErr))
			}
			if e.cfg.RetryDelayMs > 0 {
				select {
				case <-time.After(e.cfg.RetryDelay()):
				case <-ctx.Done():
					return
				}
			}
			continue
		}

		if err := e.queue.MarkSynced(op.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("operation %s mark synced: %v", op.ID, err))
			continue
		}
		if OperationType(op.Operation) != OperationDelete {
			if err := h.MarkSynced(tenantID, op.EntityID, time.Now().UTC()); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("entity %s/%s mark synced: %v", op.EntityType, op.EntityID, err))
			}
		}
		result.SyncedOperations++
	}
}

// downloadPhase pulls the delta window for every registered entity type
// and applies or resolves each record. Returns true only when the whole
// window was handled, which gates the checkpoint advance.
func (e *Engine) downloadPhase(ctx context.Context, tenantID string, since time.Time, result *CycleResult) bool {
	clean := true
	for _, h := range e.registry.All() {
		records, err := h.PullSince(ctx, tenantID, since)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("pull %s: %v", h.EntityType(), err))
			clean = false
			continue
		}

		for _, rec := range records {
			local, err := h.Local(tenantID, rec.ID)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("lookup %s/%s: %v", h.EntityType(), rec.ID, err))
				clean = false
				continue
			}

			conflictType, conflicted := e.resolver.Classify(local, rec)
			if !conflicted {
				// No unsynced local edit: remote is authoritative
				if err := h.ApplyRemote(tenantID, rec); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("apply %s/%s: %v", h.EntityType(), rec.ID, err))
					clean = false
					continue
				}
				result.AppliedRecords++
				continue
			}

			report, err := e.resolver.Resolve(h, tenantID, e.deviceID, local, rec, conflictType)
			result.Conflicts = append(result.Conflicts, report)
			if err != nil {
				result.Errors = append(result.Errors, err.Error())
				clean = false
			}
		}
	}
	return clean
}

// loadCheckpoint returns the lower bound for this cycle's delta pull.
// A missing row means first sync: pull everything.
func (e *Engine) loadCheckpoint(tenantID string) (time.Time, error) {
	var cp models.SyncCheckpoint
	err := e.db.Where("device_id = ? AND tenant_id = ?", e.deviceID, tenantID).First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return cp.LastSyncAt, nil
}

// advanceCheckpoint moves the checkpoint forward, never backward
func (e *Engine) advanceCheckpoint(tenantID string, to time.Time) error {
	var cp models.SyncCheckpoint
	err := e.db.Where("device_id = ? AND tenant_id = ?", e.deviceID, tenantID).First(&cp).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		cp = models.SyncCheckpoint{DeviceID: e.deviceID, TenantID: tenantID, LastSyncAt: to}
		return e.db.Create(&cp).Error
	case err != nil:
		return err
	}
	if to.Before(cp.LastSyncAt) {
		return nil
	}
	return e.db.Model(&models.SyncCheckpoint{}).
		Where("id = ?", cp.ID).
		Update("last_sync_at", to).Error
}

// touchDevice updates the device registry row for this installation
func (e *Engine) touchDevice(tenantID string) {
	now := time.Now().UTC()
	err := e.db.Model(&models.DeviceRecord{}).
		Where("device_id = ? AND tenant_id = ?", e.deviceID, tenantID).
		Updates(map[string]interface{}{
			"is_online":      true,
			"last_active_at": now,
		}).Error
	if err != nil {
		log.Printf("⚠️ Device activity update failed: %v", err)
	}
}

// recordOfflineSession opens an offline session row the first time a cycle
// is refused for lack of connectivity.
func (e *Engine) recordOfflineSession(tenantID string) {
	var open models.OfflineSession
	err := e.db.Where("device_id = ? AND tenant_id = ? AND ended_at IS NULL", e.deviceID, tenantID).
		First(&open).Error
	if err == nil {
		return // already tracking this stretch
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	session := models.OfflineSession{
		DeviceID:  e.deviceID,
		TenantID:  tenantID,
		StartedAt: time.Now().UTC(),
	}
	if err := e.db.Create(&session).Error; err != nil {
		log.Printf("⚠️ Could not open offline session: %v", err)
	}
	_ = e.db.Model(&models.DeviceRecord{}).
		Where("device_id = ?", e.deviceID).
		Update("is_online", false).Error
}

// closeOfflineSession ends the open offline session, if any, stamping how
// many operations accumulated while disconnected. Called only after a
// successful cycle; a total failure means the stretch is not over yet.
func (e *Engine) closeOfflineSession(tenantID string) {
	var open models.OfflineSession
	err := e.db.Where("device_id = ? AND tenant_id = ? AND ended_at IS NULL", e.deviceID, tenantID).
		First(&open).Error
	if err != nil {
		return
	}
	var count int64
	_ = e.db.Model(&models.SyncOperation{}).
		Where("device_id = ? AND tenant_id = ? AND created_at >= ?", e.deviceID, tenantID, open.StartedAt).
		Count(&count).Error

	now := time.Now().UTC()
	_ = e.db.Model(&models.OfflineSession{}).
		Where("id = ?", open.ID).
		Updates(map[string]interface{}{
			"ended_at":        now,
			"operation_count": count,
		}).Error
}
