package sync

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/velstore/posgo/internal/database"
	"github.com/velstore/posgo/internal/models"
	"github.com/velstore/posgo/internal/remote"
)

// ConflictResolver applies the configured policy when a downloaded change
// collides with an unsynced local edit of the same entity.
type ConflictResolver struct {
	strategy ConflictStrategy
	window   time.Duration
	db       *database.DB
	queue    *Queue
}

// NewConflictResolver creates a resolver; an empty strategy defaults to
// remote_wins.
func NewConflictResolver(db *database.DB, queue *Queue, strategy ConflictStrategy, window time.Duration) *ConflictResolver {
	if strategy == "" {
		strategy = ConflictRemoteWins
	}
	return &ConflictResolver{
		strategy: strategy,
		window:   window,
		db:       db,
		queue:    queue,
	}
}

// Strategy returns the configured policy
func (cr *ConflictResolver) Strategy() ConflictStrategy { return cr.strategy }

// Classify decides whether a local/remote pair is in conflict and of what
// kind. Only an unsynced local edit can conflict; a synced local row is
// silently overwritten by remote.
func (cr *ConflictResolver) Classify(local *LocalVersion, rec remote.Record) (ConflictType, bool) {
	if local == nil || local.SyncStatus == models.SyncStatusSynced {
		return "", false
	}
	diff := local.UpdatedAt.Sub(rec.UpdatedAt)
	if diff < 0 {
		diff = -diff
	}
	if diff <= cr.window {
		return ConflictConcurrentUpdate, true
	}
	return ConflictUpdateConflict, true
}

// Resolve applies the policy to one detected conflict and records it. The
// returned report is surfaced in the cycle result regardless of policy so
// the caller sees every collision that occurred.
func (cr *ConflictResolver) Resolve(h EntityHandler, tenantID, deviceID string, local *LocalVersion, rec remote.Record, conflictType ConflictType) (ConflictReport, error) {
	report := ConflictReport{
		EntityType:   h.EntityType(),
		EntityID:     rec.ID,
		ConflictType: conflictType,
		LocalData:    local.Data,
		RemoteData:   rec.Data,
		Resolution:   cr.strategy,
	}

	var err error
	switch cr.strategy {
	case ConflictRemoteWins:
		// Remote overwrites local; the queued local intent is superseded
		if err = h.ApplyRemote(tenantID, rec); err == nil {
			err = cr.queue.DiscardPending(tenantID, h.EntityType(), rec.ID)
		}

	case ConflictLocalWins:
		// Keep local data and push it back out next cycle
		_, err = cr.queue.Enqueue(tenantID, deviceID, OperationUpdate, h.EntityType(), rec.ID, local.Data)

	case ConflictManual:
		// Apply neither side; the entity waits for an operator
		err = h.MarkConflict(tenantID, rec.ID)

	default:
		err = fmt.Errorf("unknown conflict strategy %q", cr.strategy)
	}
	if err != nil {
		return report, fmt.Errorf("failed to resolve %s/%s conflict: %w", h.EntityType(), rec.ID, err)
	}

	if persistErr := cr.persist(tenantID, deviceID, report); persistErr != nil {
		log.Printf("⚠️ Could not record conflict for %s/%s: %v", h.EntityType(), rec.ID, persistErr)
	}

	return report, nil
}

// persist writes the conflict row. Auto-resolved conflicts land resolved;
// manual ones stay pending until ResolveManual.
func (cr *ConflictResolver) persist(tenantID, deviceID string, report ConflictReport) error {
	row := models.SyncConflict{
		TenantID:     tenantID,
		DeviceID:     deviceID,
		EntityType:   string(report.EntityType),
		EntityID:     report.EntityID,
		ConflictType: string(report.ConflictType),
		LocalData:    []byte(report.LocalData),
		RemoteData:   []byte(report.RemoteData),
		Resolution:   string(report.Resolution),
		Status:       models.ConflictStatusResolved,
	}
	if report.Resolution == ConflictManual {
		row.Status = models.ConflictStatusPending
	} else {
		now := time.Now().UTC()
		row.ResolvedAt = &now
	}
	return cr.db.Create(&row).Error
}

// ResolveManual completes a conflict left pending by the manual policy.
// winner is "local" or "remote".
func (cr *ConflictResolver) ResolveManual(registry *Registry, conflictID, deviceID, winner string) error {
	var row models.SyncConflict
	if err := cr.db.First(&row, "id = ?", conflictID).Error; err != nil {
		return fmt.Errorf("conflict %s not found: %w", conflictID, err)
	}
	if row.Status == models.ConflictStatusResolved {
		return fmt.Errorf("conflict %s already resolved", conflictID)
	}

	h, err := registry.Handler(EntityType(row.EntityType))
	if err != nil {
		return err
	}

	switch winner {
	case "remote":
		rec := remote.Record{
			ID:        row.EntityID,
			TenantID:  row.TenantID,
			UpdatedAt: row.CreatedAt,
			Data:      []byte(row.RemoteData),
		}
		if err := h.ApplyRemote(row.TenantID, rec); err != nil {
			return err
		}
		if err := cr.queue.DiscardPending(row.TenantID, h.EntityType(), row.EntityID); err != nil {
			return err
		}
	case "local":
		if _, err := cr.queue.Enqueue(row.TenantID, deviceID, OperationUpdate, h.EntityType(), row.EntityID, json.RawMessage(row.LocalData)); err != nil {
			return err
		}
		// The row leaves conflict state and waits for the next upload
		if err := h.MarkPending(row.TenantID, row.EntityID); err != nil {
			return err
		}
	default:
		return fmt.Errorf("winner must be \"local\" or \"remote\", got %q", winner)
	}

	now := time.Now().UTC()
	return cr.db.Model(&models.SyncConflict{}).
		Where("id = ?", conflictID).
		Updates(map[string]interface{}{
			"status":      models.ConflictStatusResolved,
			"resolution":  fmt.Sprintf("manual_%s", winner),
			"resolved_at": now,
		}).Error
}
