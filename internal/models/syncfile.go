package models

import "time"

// SyncStatus is the derived state of a local file relative to its remote
// counterpart. It is always recomputed from fingerprints, never stored.
type SyncStatus string

const (
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusModified SyncStatus = "modified"
	SyncStatusOutdated SyncStatus = "outdated"
	SyncStatusConflict SyncStatus = "conflict"
)

// DeriveSyncStatus computes the sync status from whether the local content
// and the remote entity changed since the last successful sync.
func DeriveSyncStatus(localChanged, remoteChanged bool) SyncStatus {
	switch {
	case localChanged && remoteChanged:
		return SyncStatusConflict
	case localChanged:
		return SyncStatusModified
	case remoteChanged:
		return SyncStatusOutdated
	default:
		return SyncStatusSynced
	}
}

// SyncFileRecord maps a local editable file to a remote entity.
// SyncedHash is the sha256 of the file content at the last successful sync;
// RemoteUpdated is the remote update timestamp observed at that sync.
type SyncFileRecord struct {
	ID            string
	ServerURL     string
	FilePath      string
	EntityID      string
	IDReadable    string
	EntityType    EntityType
	ProjectKey    string
	SyncedHash    string
	RemoteUpdated time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
