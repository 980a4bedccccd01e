// Package remote talks to the shared remote store. The backend exposes, per
// entity type, an upsert-or-delete by id scoped to tenant and a read of all
// records updated since a timestamp; nothing else is assumed about it.
package remote

import (
	"context"
	"encoding/json"
	"time"
)

// Record is one remote row as returned by a delta pull
type Record struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	UpdatedAt time.Time       `json:"updated_at"`
	Deleted   bool            `json:"deleted,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// Client is the remote store contract consumed by the sync engine
type Client interface {
	// Push applies one local mutation (create/update/delete) remotely.
	// Create and update carry the full entity payload; delete carries none.
	Push(ctx context.Context, tenantID, entityType, operation, entityID string, payload json.RawMessage) error

	// PullSince returns every record of entityType for the tenant whose
	// updated_at is at or after since.
	PullSince(ctx context.Context, tenantID, entityType string, since time.Time) ([]Record, error)

	// Healthy reports whether the remote store is currently reachable
	Healthy(ctx context.Context) bool
}
