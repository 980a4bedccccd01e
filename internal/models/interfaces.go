package models

// SyncStatus tracks whether a local row matches the remote store
type SyncStatus string

const (
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusConflict SyncStatus = "conflict"
)

// SyncableEntity is implemented by every business entity that participates
// in bidirectional sync.
type SyncableEntity interface {
	GetEntityID() string
	GetEntityType() string
}
