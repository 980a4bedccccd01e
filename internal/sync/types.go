// Package sync implements the offline-first synchronization engine: a
// durable operation queue drained to the remote store, checkpoint-bounded
// delta downloads, conflict detection and policy-driven resolution.
package sync

import (
	"encoding/json"
	"errors"
	"time"
)

// OperationType is the kind of queued local mutation
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
)

// EntityType tags the business entity a record or operation belongs to
type EntityType string

const (
	EntityTypeProduct  EntityType = "products"
	EntityTypeCustomer EntityType = "customers"
	EntityTypeOrder    EntityType = "orders"
	EntityTypePayment  EntityType = "payments"
)

// ConflictStrategy defines how a detected collision is resolved
type ConflictStrategy string

const (
	// ConflictRemoteWins overwrites local data and discards the pending
	// local operation; its intent is superseded.
	ConflictRemoteWins ConflictStrategy = "remote_wins"
	// ConflictLocalWins keeps local data and enqueues a fresh upload that
	// will overwrite the remote version next cycle.
	ConflictLocalWins ConflictStrategy = "local_wins"
	// ConflictManual applies neither side; the entity stays in conflict
	// state until an operator resolves it.
	ConflictManual ConflictStrategy = "manual"
)

// ConflictType classifies how the collision was detected
type ConflictType string

const (
	// ConflictConcurrentUpdate means the two edits landed within the
	// configured tolerance window of each other.
	ConflictConcurrentUpdate ConflictType = "concurrent_update"
	// ConflictUpdateConflict means a remote edit arrived while a local
	// edit was still unsynced, outside the concurrency window.
	ConflictUpdateConflict ConflictType = "update_conflict"
)

// ConflictReport describes one collision surfaced by a sync cycle.
// Reported regardless of policy, even when auto-resolved.
type ConflictReport struct {
	EntityType   EntityType       `json:"entity_type"`
	EntityID     string           `json:"entity_id"`
	ConflictType ConflictType     `json:"conflict_type"`
	LocalData    json.RawMessage  `json:"local_data"`
	RemoteData   json.RawMessage  `json:"remote_data"`
	Resolution   ConflictStrategy `json:"resolution"`
}

// CycleResult is the structured outcome of one sync cycle. Individual
// operation failures land in Errors without failing the cycle; Success is
// false only for total failure.
type CycleResult struct {
	Success          bool             `json:"success"`
	SyncedOperations int              `json:"synced_operations"`
	AppliedRecords   int              `json:"applied_records"`
	Conflicts        []ConflictReport `json:"conflicts"`
	Errors           []string         `json:"errors"`
	Timestamp        time.Time        `json:"timestamp"`
	Duration         time.Duration    `json:"duration"`
}

// Engine-level precondition errors, returned synchronously to the caller
var (
	// ErrSyncInProgress means another cycle holds the single-flight guard
	ErrSyncInProgress = errors.New("sync: cycle already in progress")
	// ErrDeviceOffline means the connectivity probe reports no link
	ErrDeviceOffline = errors.New("sync: device is offline")
	// ErrUnknownEntityType means no handler is registered for the tag
	ErrUnknownEntityType = errors.New("sync: unknown entity type")
)
