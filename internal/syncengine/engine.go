// Package syncengine maintains the mapping between local editable files
// and remote YouTrack entities. It owns the SyncFileRecord lifecycle and
// derives each file's sync status from the local content fingerprint and
// the remote update timestamp.
package syncengine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joescharf/ytsync/internal/events"
	"github.com/joescharf/ytsync/internal/models"
	"github.com/joescharf/ytsync/internal/store"
)

// ErrBusy is returned when an operation overlaps another operation on the
// same record. Callers retry after the in-flight operation finishes.
var ErrBusy = errors.New("operation already in flight for this entity")

// RemoteClient is the slice of the YouTrack API the engine consumes.
type RemoteClient interface {
	IssueByID(ctx context.Context, id string) (*models.Issue, error)
	ArticleByID(ctx context.Context, id string) (*models.Article, error)
	UpdateIssueDescription(ctx context.Context, id, description string) (*models.Issue, error)
	UpdateArticleContent(ctx context.Context, id, content string) (*models.Article, error)
}

// OpenResult is what Open hands back for presentation.
type OpenResult struct {
	Record  *models.SyncFileRecord
	Summary string
}

// EditedFile pairs a record with its derived status.
type EditedFile struct {
	Record *models.SyncFileRecord
	Status models.SyncStatus
}

// Engine is the file sync-state engine for one server session.
type Engine struct {
	store     store.Store
	client    RemoteClient
	serverURL string
	tempRoot  string

	notifier events.Notifier

	mu       sync.Mutex
	inflight map[string]bool // keyed by readable id
}

// New creates an engine writing local files under tempRoot for the given
// server session.
func New(s store.Store, client RemoteClient, serverURL, tempRoot string) *Engine {
	return &Engine{
		store:     s,
		client:    client,
		serverURL: serverURL,
		tempRoot:  tempRoot,
		inflight:  make(map[string]bool),
	}
}

// OnChange registers a listener fired after any operation that adds,
// updates, or removes a record. The signal carries no payload; listeners
// re-query the edited-file set.
func (e *Engine) OnChange(fn func()) (unsubscribe func()) {
	return e.notifier.Subscribe(fn)
}

// acquire marks idReadable as in flight, or reports ErrBusy.
func (e *Engine) acquire(idReadable string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight[idReadable] {
		return ErrBusy
	}
	e.inflight[idReadable] = true
	return nil
}

func (e *Engine) release(idReadable string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, idReadable)
}

// remoteEntity is the engine's flattened view of an issue or article.
type remoteEntity struct {
	entityID string
	summary  string
	body     string
	updated  time.Time
}

func (e *Engine) fetch(ctx context.Context, entityType models.EntityType, id string) (*remoteEntity, error) {
	switch entityType {
	case models.EntityTypeIssue:
		issue, err := e.client.IssueByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &remoteEntity{entityID: issue.ID, summary: issue.Summary, body: issue.Description, updated: issue.Updated}, nil
	default:
		article, err := e.client.ArticleByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &remoteEntity{entityID: article.ID, summary: article.Summary, body: article.Content, updated: article.Updated}, nil
	}
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// serverSlug folds a server URL into a single path segment.
func serverSlug(serverURL string) string {
	s := strings.TrimPrefix(serverURL, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimSuffix(s, "/")
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// Open fetches the entity behind idReadable, writes its body to a local
// file under the temp root, and creates or refreshes the sync record with
// status Synced. Opening an already-open entity reuses its record.
func (e *Engine) Open(ctx context.Context, idReadable string) (*OpenResult, error) {
	if err := e.acquire(idReadable); err != nil {
		return nil, fmt.Errorf("open %s: %w", idReadable, err)
	}
	defer e.release(idReadable)

	entityType := models.EntityTypeFor(idReadable)
	remote, err := e.fetch(ctx, entityType, idReadable)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", idReadable, err)
	}

	// Files live under a per-server directory so the same readable id on
	// two servers never maps to one path.
	dir := filepath.Join(e.tempRoot, serverSlug(e.serverURL))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("open %s: create temp dir: %w", idReadable, err)
	}

	filePath := filepath.Join(dir, idReadable+".md")
	body := []byte(remote.body)
	if err := os.WriteFile(filePath, body, 0644); err != nil {
		return nil, fmt.Errorf("open %s: write local file: %w", idReadable, err)
	}

	rec, err := e.store.GetSyncFileByEntityID(ctx, e.serverURL, remote.entityID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		rec = &models.SyncFileRecord{
			ServerURL:     e.serverURL,
			FilePath:      filePath,
			EntityID:      remote.entityID,
			IDReadable:    idReadable,
			EntityType:    entityType,
			ProjectKey:    models.ProjectKeyOf(idReadable),
			SyncedHash:    contentHash(body),
			RemoteUpdated: remote.updated,
		}
		if err := e.store.CreateSyncFile(ctx, rec); err != nil {
			return nil, fmt.Errorf("open %s: record sync file: %w", idReadable, err)
		}
	case err != nil:
		return nil, fmt.Errorf("open %s: load sync record: %w", idReadable, err)
	default:
		rec.FilePath = filePath
		rec.SyncedHash = contentHash(body)
		rec.RemoteUpdated = remote.updated
		if err := e.store.UpdateSyncFile(ctx, rec); err != nil {
			return nil, fmt.Errorf("open %s: update sync record: %w", idReadable, err)
		}
	}

	e.notifier.Notify()
	return &OpenResult{Record: rec, Summary: remote.summary}, nil
}

// Status derives the record's sync status. A transient remote failure is
// treated as "remote unchanged" and a missing local file as "local
// unchanged": absence of information never manufactures a conflict.
func (e *Engine) Status(ctx context.Context, rec *models.SyncFileRecord) models.SyncStatus {
	localChanged := false
	if content, err := os.ReadFile(rec.FilePath); err == nil {
		localChanged = contentHash(content) != rec.SyncedHash
	}

	remoteChanged := false
	if remote, err := e.fetch(ctx, rec.EntityType, rec.IDReadable); err == nil {
		remoteChanged = !remote.updated.Equal(rec.RemoteUpdated)
	}

	return models.DeriveSyncStatus(localChanged, remoteChanged)
}

// List returns the edited files of this session with derived statuses.
func (e *Engine) List(ctx context.Context) ([]*EditedFile, error) {
	recs, err := e.store.ListSyncFiles(ctx, e.serverURL)
	if err != nil {
		return nil, fmt.Errorf("list edited files: %w", err)
	}
	files := make([]*EditedFile, len(recs))
	for i, rec := range recs {
		files[i] = &EditedFile{Record: rec, Status: e.Status(ctx, rec)}
	}
	return files, nil
}

// Get returns the record for a readable id, or store.ErrNotFound.
func (e *Engine) Get(ctx context.Context, idReadable string) (*models.SyncFileRecord, error) {
	recs, err := e.store.ListSyncFiles(ctx, e.serverURL)
	if err != nil {
		return nil, fmt.Errorf("load sync record %s: %w", idReadable, err)
	}
	for _, rec := range recs {
		if rec.IDReadable == idReadable {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("sync record %s: %w", idReadable, store.ErrNotFound)
}

// Pull re-fetches the remote entity and overwrites the local file,
// resetting the record to Synced. Valid from any status; when local edits
// exist this is destructive and the caller confirms with the user first.
func (e *Engine) Pull(ctx context.Context, rec *models.SyncFileRecord) error {
	if err := e.acquire(rec.IDReadable); err != nil {
		return fmt.Errorf("pull %s: %w", rec.IDReadable, err)
	}
	defer e.release(rec.IDReadable)

	remote, err := e.fetch(ctx, rec.EntityType, rec.IDReadable)
	if err != nil {
		return fmt.Errorf("pull %s: %w", rec.IDReadable, err)
	}

	body := []byte(remote.body)
	if err := os.WriteFile(rec.FilePath, body, 0644); err != nil {
		return fmt.Errorf("pull %s: write local file: %w", rec.IDReadable, err)
	}

	rec.SyncedHash = contentHash(body)
	rec.RemoteUpdated = remote.updated
	if err := e.store.UpdateSyncFile(ctx, rec); err != nil {
		return fmt.Errorf("pull %s: update sync record: %w", rec.IDReadable, err)
	}

	e.notifier.Notify()
	return nil
}

// Push sends the local file content to the remote entity. On success the
// record is refreshed with the server's update timestamp and reset to
// Synced; on remote failure the record is left untouched so the user can
// retry or pull.
func (e *Engine) Push(ctx context.Context, rec *models.SyncFileRecord) error {
	if err := e.acquire(rec.IDReadable); err != nil {
		return fmt.Errorf("push %s: %w", rec.IDReadable, err)
	}
	defer e.release(rec.IDReadable)

	content, err := os.ReadFile(rec.FilePath)
	if err != nil {
		return fmt.Errorf("push %s: read local file: %w", rec.IDReadable, err)
	}

	var updated time.Time
	switch rec.EntityType {
	case models.EntityTypeIssue:
		issue, err := e.client.UpdateIssueDescription(ctx, rec.IDReadable, string(content))
		if err != nil {
			return fmt.Errorf("push %s: %w", rec.IDReadable, err)
		}
		updated = issue.Updated
	default:
		article, err := e.client.UpdateArticleContent(ctx, rec.IDReadable, string(content))
		if err != nil {
			return fmt.Errorf("push %s: %w", rec.IDReadable, err)
		}
		updated = article.Updated
	}

	rec.SyncedHash = contentHash(content)
	rec.RemoteUpdated = updated
	if err := e.store.UpdateSyncFile(ctx, rec); err != nil {
		return fmt.Errorf("push %s: update sync record: %w", rec.IDReadable, err)
	}

	e.notifier.Notify()
	return nil
}

// Unlink removes the sync record. The local file is left in place;
// deleting it is a separate, explicit user action.
func (e *Engine) Unlink(ctx context.Context, rec *models.SyncFileRecord) error {
	if err := e.acquire(rec.IDReadable); err != nil {
		return fmt.Errorf("unlink %s: %w", rec.IDReadable, err)
	}
	defer e.release(rec.IDReadable)

	if err := e.store.DeleteSyncFile(ctx, rec.ID); err != nil {
		return fmt.Errorf("unlink %s: %w", rec.IDReadable, err)
	}

	e.notifier.Notify()
	return nil
}
