package store

import (
	"context"
	"errors"

	"github.com/joescharf/ytsync/internal/models"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence interface for ytsync: server-scoped cache
// entries and sync-file records.
type Store interface {
	// Cache entries
	GetCacheEntry(ctx context.Context, serverURL, key string) ([]byte, bool, error)
	SetCacheEntry(ctx context.Context, serverURL, key string, value []byte) error
	DeleteCacheEntries(ctx context.Context, serverURL string) error

	// Sync files
	CreateSyncFile(ctx context.Context, rec *models.SyncFileRecord) error
	GetSyncFileByEntityID(ctx context.Context, serverURL, entityID string) (*models.SyncFileRecord, error)
	GetSyncFileByPath(ctx context.Context, filePath string) (*models.SyncFileRecord, error)
	ListSyncFiles(ctx context.Context, serverURL string) ([]*models.SyncFileRecord, error)
	UpdateSyncFile(ctx context.Context, rec *models.SyncFileRecord) error
	DeleteSyncFile(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
