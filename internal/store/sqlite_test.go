package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/ytsync/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func newTestRecord(server, idReadable string) *models.SyncFileRecord {
	return &models.SyncFileRecord{
		ServerURL:     server,
		FilePath:      "/tmp/edited/" + idReadable + ".md",
		EntityID:      "2-" + idReadable,
		IDReadable:    idReadable,
		EntityType:    models.EntityTypeFor(idReadable),
		ProjectKey:    models.ProjectKeyOf(idReadable),
		SyncedHash:    "abc123",
		RemoteUpdated: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)

	err := s.Migrate(context.Background())
	assert.NoError(t, err)
}

// --- Cache entries ---

func TestCacheEntry_SetGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetCacheEntry(ctx, "https://a.example.com", "selected_projects")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetCacheEntry(ctx, "https://a.example.com", "selected_projects", []byte(`["P1"]`)))

	val, ok, err := s.GetCacheEntry(ctx, "https://a.example.com", "selected_projects")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["P1"]`, string(val))

	// Overwrite
	require.NoError(t, s.SetCacheEntry(ctx, "https://a.example.com", "selected_projects", []byte(`["P2"]`)))
	val, _, err = s.GetCacheEntry(ctx, "https://a.example.com", "selected_projects")
	require.NoError(t, err)
	assert.Equal(t, `["P2"]`, string(val))
}

func TestCacheEntry_ServerScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetCacheEntry(ctx, "https://a.example.com", "k", []byte("a-value")))

	_, ok, err := s.GetCacheEntry(ctx, "https://b.example.com", "k")
	require.NoError(t, err)
	assert.False(t, ok, "server B must not see server A's entries")
}

func TestDeleteCacheEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetCacheEntry(ctx, "https://a.example.com", "k1", []byte("v")))
	require.NoError(t, s.SetCacheEntry(ctx, "https://a.example.com", "k2", []byte("v")))
	require.NoError(t, s.SetCacheEntry(ctx, "https://b.example.com", "k1", []byte("v")))

	require.NoError(t, s.DeleteCacheEntries(ctx, "https://a.example.com"))

	_, ok, _ := s.GetCacheEntry(ctx, "https://a.example.com", "k1")
	assert.False(t, ok)
	_, ok, _ = s.GetCacheEntry(ctx, "https://b.example.com", "k1")
	assert.True(t, ok)
}

// --- Sync files ---

func TestSyncFileCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := newTestRecord("https://a.example.com", "DEMO-42")
	require.NoError(t, s.CreateSyncFile(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := s.GetSyncFileByEntityID(ctx, "https://a.example.com", rec.EntityID)
	require.NoError(t, err)
	assert.Equal(t, rec.IDReadable, got.IDReadable)
	assert.Equal(t, models.EntityTypeIssue, got.EntityType)
	assert.True(t, got.RemoteUpdated.Equal(rec.RemoteUpdated))

	byPath, err := s.GetSyncFileByPath(ctx, rec.FilePath)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byPath.ID)

	got.SyncedHash = "def456"
	got.RemoteUpdated = got.RemoteUpdated.Add(time.Hour)
	require.NoError(t, s.UpdateSyncFile(ctx, got))

	again, err := s.GetSyncFileByEntityID(ctx, "https://a.example.com", rec.EntityID)
	require.NoError(t, err)
	assert.Equal(t, "def456", again.SyncedHash)

	require.NoError(t, s.DeleteSyncFile(ctx, rec.ID))
	_, err = s.GetSyncFileByEntityID(ctx, "https://a.example.com", rec.EntityID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSyncFile_UniquePerEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := newTestRecord("https://a.example.com", "DEMO-42")
	require.NoError(t, s.CreateSyncFile(ctx, rec))

	dup := newTestRecord("https://a.example.com", "DEMO-42")
	dup.FilePath = "/tmp/other/DEMO-42.md"
	assert.Error(t, s.CreateSyncFile(ctx, dup), "one record per entity per server")

	// Same entity on a different server is fine.
	other := newTestRecord("https://b.example.com", "DEMO-42")
	other.FilePath = "/tmp/b/DEMO-42.md"
	assert.NoError(t, s.CreateSyncFile(ctx, other))
}

func TestListSyncFiles_ScopedByServer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSyncFile(ctx, newTestRecord("https://a.example.com", "DEMO-1")))
	require.NoError(t, s.CreateSyncFile(ctx, newTestRecord("https://a.example.com", "DEMO-2")))
	require.NoError(t, s.CreateSyncFile(ctx, newTestRecord("https://b.example.com", "DEMO-3")))

	recs, err := s.ListSyncFiles(ctx, "https://a.example.com")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestUpdateSyncFile_NotFound(t *testing.T) {
	s := newTestStore(t)

	rec := newTestRecord("https://a.example.com", "DEMO-42")
	rec.ID = "01HDOESNOTEXIST0000000000"
	assert.ErrorIs(t, s.UpdateSyncFile(context.Background(), rec), ErrNotFound)
}
