package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/velstore/posgo/internal/models"
	"github.com/velstore/posgo/internal/remote"
)

// LocalVersion is what conflict detection needs to know about a local row
type LocalVersion struct {
	SyncStatus models.SyncStatus
	UpdatedAt  time.Time
	Data       json.RawMessage
}

// EntityHandler binds one entity type into the sync engine. The engine
// itself stays closed over concrete entity types; adding a new type means
// registering another handler.
type EntityHandler interface {
	EntityType() EntityType

	// Upload pushes one queued operation to the remote store
	Upload(ctx context.Context, op models.SyncOperation) error

	// PullSince fetches the remote delta window for this entity type
	PullSince(ctx context.Context, tenantID string, since time.Time) ([]remote.Record, error)

	// Local returns the local version of an entity, or nil when absent
	Local(tenantID, entityID string) (*LocalVersion, error)

	// ApplyRemote writes a downloaded record into the local store,
	// marking it synced. Must be idempotent.
	ApplyRemote(tenantID string, rec remote.Record) error

	// MarkSynced flags the local row as confirmed on the remote store
	MarkSynced(tenantID, entityID string, at time.Time) error

	// MarkConflict flags the local row as awaiting manual resolution
	MarkConflict(tenantID, entityID string) error

	// MarkPending returns the local row to the unsynced state, e.g. after
	// a manual resolution in the local edit's favor
	MarkPending(tenantID, entityID string) error
}

// Registry maps entity type tags to their handlers
type Registry struct {
	handlers map[EntityType]EntityHandler
	order    []EntityType
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[EntityType]EntityHandler)}
}

// Register adds a handler; registering the same type twice is a bug
func (r *Registry) Register(h EntityHandler) error {
	t := h.EntityType()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler for %q already registered", t)
	}
	r.handlers[t] = h
	r.order = append(r.order, t)
	return nil
}

// Handler looks up the handler for an entity type tag
func (r *Registry) Handler(entityType EntityType) (EntityHandler, error) {
	h, ok := r.handlers[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
	}
	return h, nil
}

// All returns handlers in registration order, which fixes the download
// order of entity types within a cycle.
func (r *Registry) All() []EntityHandler {
	out := make([]EntityHandler, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.handlers[t])
	}
	return out
}
