// Package cache is the server-scoped workspace cache: selected projects,
// recency lists, view modes, and search state, keyed by the currently
// bound server URL so switching servers never leaks state.
package cache

import (
	"context"
	"encoding/json"

	"github.com/joescharf/ytsync/internal/models"
	"github.com/joescharf/ytsync/internal/store"
)

// Logical cache keys within a server namespace.
const (
	keySelectedProjects = "selected_projects"
	keyRecentIssues     = "recent_issues"
	keyRecentArticles   = "recent_articles"
	keyViewModes        = "view_modes"
	keySavedSearches    = "saved_searches"
	keyAgileBoards      = "agile_boards"
	keyIssuesSource     = "issues_source"
	keyIssuesFilter     = "issues_filter"
)

// DefaultRecentCap bounds the recency lists unless overridden.
const DefaultRecentCap = 15

// Workspace is the cache bound to at most one server at a time.
// All reads and writes while unbound are logged no-ops, not errors.
type Workspace struct {
	store     store.Store
	serverURL string

	// RecentCap bounds the recent-issues/articles lists.
	RecentCap int

	// Logf receives diagnostics for skipped or failed operations.
	// Nil disables logging.
	Logf func(format string, a ...any)
}

// NewWorkspace creates an unbound workspace cache over the given store.
func NewWorkspace(s store.Store) *Workspace {
	return &Workspace{store: s, RecentCap: DefaultRecentCap}
}

// Rebind switches the cache to a new server namespace. It is synchronous:
// no read issued after Rebind returns can observe the previous namespace.
// Rebinding to "" unbinds the cache.
func (w *Workspace) Rebind(serverURL string) {
	w.serverURL = serverURL
}

// ServerURL returns the currently bound server, or "".
func (w *Workspace) ServerURL() string {
	return w.serverURL
}

// Bound reports whether a server namespace is active.
func (w *Workspace) Bound() bool {
	return w.serverURL != ""
}

func (w *Workspace) logf(format string, a ...any) {
	if w.Logf != nil {
		w.Logf(format, a...)
	}
}

// get unmarshals the entry for key into out, reporting whether a value
// was loaded. Unbound and failed reads both report false.
func (w *Workspace) get(ctx context.Context, key string, out any) bool {
	if !w.Bound() {
		w.logf("cache read %q skipped: no server bound", key)
		return false
	}
	raw, ok, err := w.store.GetCacheEntry(ctx, w.serverURL, key)
	if err != nil {
		w.logf("cache read %q failed: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		w.logf("cache entry %q corrupt: %v", key, err)
		return false
	}
	return true
}

// set marshals value and writes it under key. Unbound writes are skipped.
func (w *Workspace) set(ctx context.Context, key string, value any) {
	if !w.Bound() {
		w.logf("cache write %q skipped: no server bound", key)
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		w.logf("cache write %q failed to encode: %v", key, err)
		return
	}
	if err := w.store.SetCacheEntry(ctx, w.serverURL, key, raw); err != nil {
		w.logf("cache write %q failed: %v", key, err)
	}
}

// --- selected projects -----------------------------------------------------

// SelectedProjects returns the short names of the projects the user works
// with, or nil when unbound or unset.
func (w *Workspace) SelectedProjects(ctx context.Context) []string {
	var projects []string
	w.get(ctx, keySelectedProjects, &projects)
	return projects
}

// SetSelectedProjects replaces the selected project list.
func (w *Workspace) SetSelectedProjects(ctx context.Context, shortNames []string) {
	w.set(ctx, keySelectedProjects, shortNames)
}

// --- recency lists ---------------------------------------------------------

// RecentIssues returns the most-recently-opened issues, newest first.
func (w *Workspace) RecentIssues(ctx context.Context) []models.EntityRef {
	var refs []models.EntityRef
	w.get(ctx, keyRecentIssues, &refs)
	return refs
}

// AddRecentIssue inserts ref at the front of the recent-issues list.
// Re-adding a present id moves it to the front without growing the list.
func (w *Workspace) AddRecentIssue(ctx context.Context, ref models.EntityRef) {
	w.set(ctx, keyRecentIssues, w.pushRecent(w.RecentIssues(ctx), ref))
}

// RecentArticles returns the most-recently-opened articles, newest first.
func (w *Workspace) RecentArticles(ctx context.Context) []models.EntityRef {
	var refs []models.EntityRef
	w.get(ctx, keyRecentArticles, &refs)
	return refs
}

// AddRecentArticle inserts ref at the front of the recent-articles list.
func (w *Workspace) AddRecentArticle(ctx context.Context, ref models.EntityRef) {
	w.set(ctx, keyRecentArticles, w.pushRecent(w.RecentArticles(ctx), ref))
}

func (w *Workspace) pushRecent(refs []models.EntityRef, ref models.EntityRef) []models.EntityRef {
	limit := w.RecentCap
	if limit <= 0 {
		limit = DefaultRecentCap
	}

	out := make([]models.EntityRef, 0, len(refs)+1)
	out = append(out, ref)
	for _, r := range refs {
		if r.ID == ref.ID {
			continue
		}
		out = append(out, r)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// --- view modes ------------------------------------------------------------

// ViewMode returns the stored mode for a named view, or "".
func (w *Workspace) ViewMode(ctx context.Context, view string) string {
	modes := map[string]string{}
	w.get(ctx, keyViewModes, &modes)
	return modes[view]
}

// SetViewMode stores the mode for a named view.
func (w *Workspace) SetViewMode(ctx context.Context, view, mode string) {
	modes := map[string]string{}
	w.get(ctx, keyViewModes, &modes)
	modes[view] = mode
	w.set(ctx, keyViewModes, modes)
}

// --- server snapshots ------------------------------------------------------

// SavedSearches returns the cached saved-search snapshot.
func (w *Workspace) SavedSearches(ctx context.Context) []*models.SavedSearch {
	var searches []*models.SavedSearch
	w.get(ctx, keySavedSearches, &searches)
	return searches
}

// SetSavedSearches replaces the cached saved-search snapshot.
func (w *Workspace) SetSavedSearches(ctx context.Context, searches []*models.SavedSearch) {
	w.set(ctx, keySavedSearches, searches)
}

// AgileBoards returns the cached agile-board snapshot.
func (w *Workspace) AgileBoards(ctx context.Context) []*models.AgileBoard {
	var boards []*models.AgileBoard
	w.get(ctx, keyAgileBoards, &boards)
	return boards
}

// SetAgileBoards replaces the cached agile-board snapshot.
func (w *Workspace) SetAgileBoards(ctx context.Context, boards []*models.AgileBoard) {
	w.set(ctx, keyAgileBoards, boards)
}

// --- issue listing state ---------------------------------------------------

// IssuesSource returns the active issue listing source
// ("search", "project", or "board"), or "".
func (w *Workspace) IssuesSource(ctx context.Context) string {
	var source string
	w.get(ctx, keyIssuesSource, &source)
	return source
}

// SetIssuesSource stores the active issue listing source.
func (w *Workspace) SetIssuesSource(ctx context.Context, source string) {
	w.set(ctx, keyIssuesSource, source)
}

// IssuesFilter returns the stored issues filter string, or "".
func (w *Workspace) IssuesFilter(ctx context.Context) string {
	var filter string
	w.get(ctx, keyIssuesFilter, &filter)
	return filter
}

// SetIssuesFilter stores the issues filter string.
func (w *Workspace) SetIssuesFilter(ctx context.Context, filter string) {
	w.set(ctx, keyIssuesFilter, filter)
}
