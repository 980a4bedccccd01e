package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OperationStatus tracks the lifecycle of a queued mutation
type OperationStatus string

const (
	OperationStatusPending OperationStatus = "pending"
	OperationStatusSynced  OperationStatus = "synced"
	OperationStatusFailed  OperationStatus = "failed"
)

// SyncOperation is one queued local mutation awaiting upload to the remote
// store. Failed operations are kept for operator attention, never deleted.
type SyncOperation struct {
	ID       string `gorm:"primaryKey" json:"id"`
	DeviceID string `gorm:"not null;index" json:"device_id"`
	TenantID string `gorm:"not null;index:idx_sync_queue_tenant_status" json:"tenant_id"`

	Operation  string         `gorm:"type:varchar(20);not null" json:"operation"` // create, update, delete
	EntityType string         `gorm:"type:varchar(50);not null;index:idx_sync_queue_entity" json:"entity_type"`
	EntityID   string         `gorm:"not null;index:idx_sync_queue_entity" json:"entity_id"`
	Payload    datatypes.JSON `json:"payload"`

	Status       OperationStatus `gorm:"type:varchar(20);default:'pending';index:idx_sync_queue_tenant_status" json:"status"`
	RetryCount   int             `gorm:"default:0" json:"retry_count"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`
}

func (SyncOperation) TableName() string { return "sync_queue" }

// BeforeCreate assigns an id when the caller did not provide one
func (op *SyncOperation) BeforeCreate(tx *gorm.DB) error {
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	return nil
}

// SyncCheckpoint stores the lower bound of the next delta pull, one row per
// device+tenant. LastSyncAt only advances after a fully successful cycle.
type SyncCheckpoint struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	DeviceID string `gorm:"not null;uniqueIndex:idx_sync_metadata_device_tenant" json:"device_id"`
	TenantID string `gorm:"not null;uniqueIndex:idx_sync_metadata_device_tenant" json:"tenant_id"`

	LastSyncAt time.Time `json:"last_sync_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (SyncCheckpoint) TableName() string { return "sync_metadata" }

// ConflictStatus tracks whether a recorded conflict still needs attention
type ConflictStatus string

const (
	ConflictStatusPending  ConflictStatus = "pending"
	ConflictStatusResolved ConflictStatus = "resolved"
)

// SyncConflict persists a detected collision between an unsynced local edit
// and a remote edit to the same entity.
type SyncConflict struct {
	ID       string `gorm:"primaryKey" json:"id"`
	TenantID string `gorm:"not null;index" json:"tenant_id"`
	DeviceID string `gorm:"not null" json:"device_id"`

	EntityType   string         `gorm:"type:varchar(50);not null;index:idx_sync_conflicts_entity" json:"entity_type"`
	EntityID     string         `gorm:"not null;index:idx_sync_conflicts_entity" json:"entity_id"`
	ConflictType string         `gorm:"type:varchar(50)" json:"conflict_type"`
	LocalData    datatypes.JSON `json:"local_data"`
	RemoteData   datatypes.JSON `json:"remote_data"`

	Resolution string         `gorm:"type:varchar(30)" json:"resolution"` // remote_wins, local_wins, manual
	Status     ConflictStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (SyncConflict) TableName() string { return "sync_conflicts" }

// BeforeCreate assigns an id when the caller did not provide one
func (sc *SyncConflict) BeforeCreate(tx *gorm.DB) error {
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	return nil
}

// OfflineSession records one disconnected stretch of terminal operation
type OfflineSession struct {
	ID       string `gorm:"primaryKey" json:"id"`
	DeviceID string `gorm:"not null;index" json:"device_id"`
	TenantID string `gorm:"not null;index" json:"tenant_id"`

	StartedAt      time.Time  `gorm:"not null" json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	OperationCount int        `gorm:"default:0" json:"operation_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OfflineSession) TableName() string { return "offline_sessions" }

// BeforeCreate assigns an id when the caller did not provide one
func (s *OfflineSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
