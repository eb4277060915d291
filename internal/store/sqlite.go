package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/ytsync/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- cache entries ---------------------------------------------------------

// GetCacheEntry returns the value for (serverURL, key) and whether it exists.
func (s *SQLiteStore) GetCacheEntry(ctx context.Context, serverURL, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM cache_entries WHERE server_url = ? AND key = ?",
		serverURL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry %s/%s: %w", serverURL, key, err)
	}
	return value, true, nil
}

// SetCacheEntry writes the value for (serverURL, key), replacing any
// previous value.
func (s *SQLiteStore) SetCacheEntry(ctx context.Context, serverURL, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO cache_entries (server_url, key, value, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (server_url, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		serverURL, key, value)
	if err != nil {
		return fmt.Errorf("set cache entry %s/%s: %w", serverURL, key, err)
	}
	return nil
}

// DeleteCacheEntries removes all cache entries for a server.
func (s *SQLiteStore) DeleteCacheEntries(ctx context.Context, serverURL string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE server_url = ?", serverURL)
	if err != nil {
		return fmt.Errorf("delete cache entries for %s: %w", serverURL, err)
	}
	return nil
}

// --- sync files ------------------------------------------------------------

const syncFileColumns = "id, server_url, file_path, entity_id, id_readable, entity_type, project_key, synced_hash, remote_updated, created_at, updated_at"

// CreateSyncFile inserts a new record, assigning ID and timestamps.
func (s *SQLiteStore) CreateSyncFile(ctx context.Context, rec *models.SyncFileRecord) error {
	if rec.ID == "" {
		rec.ID = newULID()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `INSERT INTO sync_files (`+syncFileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ServerURL, rec.FilePath, rec.EntityID, rec.IDReadable,
		string(rec.EntityType), rec.ProjectKey, rec.SyncedHash,
		rec.RemoteUpdated.UTC().Format(time.RFC3339Nano),
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("create sync file %s: %w", rec.IDReadable, err)
	}
	return nil
}

// GetSyncFileByEntityID returns the record for a remote entity on a server.
func (s *SQLiteStore) GetSyncFileByEntityID(ctx context.Context, serverURL, entityID string) (*models.SyncFileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+syncFileColumns+" FROM sync_files WHERE server_url = ? AND entity_id = ?",
		serverURL, entityID)
	return scanSyncFile(row)
}

// GetSyncFileByPath returns the record owning a local file path.
func (s *SQLiteStore) GetSyncFileByPath(ctx context.Context, filePath string) (*models.SyncFileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+syncFileColumns+" FROM sync_files WHERE file_path = ?", filePath)
	return scanSyncFile(row)
}

// ListSyncFiles returns all records for a server, oldest first.
func (s *SQLiteStore) ListSyncFiles(ctx context.Context, serverURL string) ([]*models.SyncFileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+syncFileColumns+" FROM sync_files WHERE server_url = ? ORDER BY created_at", serverURL)
	if err != nil {
		return nil, fmt.Errorf("list sync files for %s: %w", serverURL, err)
	}
	defer rows.Close()

	var recs []*models.SyncFileRecord
	for rows.Next() {
		rec, err := scanSyncFile(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// UpdateSyncFile rewrites the mutable fields of a record.
func (s *SQLiteStore) UpdateSyncFile(ctx context.Context, rec *models.SyncFileRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE sync_files
		SET file_path = ?, synced_hash = ?, remote_updated = ?, updated_at = ?
		WHERE id = ?`,
		rec.FilePath, rec.SyncedHash,
		rec.RemoteUpdated.UTC().Format(time.RFC3339Nano),
		rec.UpdatedAt.Format(time.RFC3339Nano), rec.ID)
	if err != nil {
		return fmt.Errorf("update sync file %s: %w", rec.IDReadable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSyncFile removes a record. The local file is never touched here.
func (s *SQLiteStore) DeleteSyncFile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sync_files WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete sync file %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncFile(row rowScanner) (*models.SyncFileRecord, error) {
	var rec models.SyncFileRecord
	var entityType, remoteUpdated, createdAt, updatedAt string

	err := row.Scan(&rec.ID, &rec.ServerURL, &rec.FilePath, &rec.EntityID,
		&rec.IDReadable, &entityType, &rec.ProjectKey, &rec.SyncedHash,
		&remoteUpdated, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan sync file: %w", err)
	}

	rec.EntityType = models.EntityType(entityType)
	if rec.RemoteUpdated, err = time.Parse(time.RFC3339Nano, remoteUpdated); err != nil {
		return nil, fmt.Errorf("parse remote_updated: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &rec, nil
}
