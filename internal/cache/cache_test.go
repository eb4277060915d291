package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/ytsync/internal/models"
	"github.com/joescharf/ytsync/internal/store"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return NewWorkspace(s)
}

func TestUnbound_ReadsReturnEmpty_WritesAreNoOps(t *testing.T) {
	w := newTestWorkspace(t)
	ctx := context.Background()

	var logged []string
	w.Logf = func(format string, a ...any) { logged = append(logged, fmt.Sprintf(format, a...)) }

	assert.NotPanics(t, func() {
		w.SetSelectedProjects(ctx, []string{"P1"})
		w.AddRecentIssue(ctx, models.EntityRef{ID: "1"})
		w.SetIssuesFilter(ctx, "#Unresolved")
	})

	assert.Empty(t, w.SelectedProjects(ctx))
	assert.Empty(t, w.RecentIssues(ctx))
	assert.Empty(t, w.IssuesFilter(ctx))
	assert.NotEmpty(t, logged, "skipped operations should be logged")
}

func TestSelectedProjects_RoundTrip(t *testing.T) {
	w := newTestWorkspace(t)
	ctx := context.Background()

	w.Rebind("https://a.example.com")
	w.SetSelectedProjects(ctx, []string{"DEMO", "OPS"})

	assert.Equal(t, []string{"DEMO", "OPS"}, w.SelectedProjects(ctx))
}

func TestRebind_IsolatesServers(t *testing.T) {
	w := newTestWorkspace(t)
	ctx := context.Background()

	w.Rebind("https://a.example.com")
	w.SetSelectedProjects(ctx, []string{"P1"})

	w.Rebind("https://b.example.com")
	assert.Empty(t, w.SelectedProjects(ctx), "server B must not see server A's selection")

	// Server A's state survives the round trip.
	w.Rebind("https://a.example.com")
	assert.Equal(t, []string{"P1"}, w.SelectedProjects(ctx))
}

func TestRecentIssues_CapAndDeduplication(t *testing.T) {
	w := newTestWorkspace(t)
	ctx := context.Background()

	w.Rebind("https://a.example.com")
	w.RecentCap = 3

	for i := 1; i <= 5; i++ {
		w.AddRecentIssue(ctx, models.EntityRef{
			ID:         fmt.Sprintf("2-%d", i),
			IDReadable: fmt.Sprintf("DEMO-%d", i),
		})
	}

	refs := w.RecentIssues(ctx)
	require.Len(t, refs, 3, "list never exceeds the cap")
	assert.Equal(t, "DEMO-5", refs[0].IDReadable)
	assert.Equal(t, "DEMO-4", refs[1].IDReadable)
	assert.Equal(t, "DEMO-3", refs[2].IDReadable)
}

func TestRecentIssues_ReAddMovesToFront(t *testing.T) {
	w := newTestWorkspace(t)
	ctx := context.Background()

	w.Rebind("https://a.example.com")
	w.AddRecentIssue(ctx, models.EntityRef{ID: "2-1", IDReadable: "DEMO-1"})
	w.AddRecentIssue(ctx, models.EntityRef{ID: "2-2", IDReadable: "DEMO-2"})
	w.AddRecentIssue(ctx, models.EntityRef{ID: "2-1", IDReadable: "DEMO-1"})

	refs := w.RecentIssues(ctx)
	require.Len(t, refs, 2, "re-adding must not grow the list")
	assert.Equal(t, "DEMO-1", refs[0].IDReadable)
	assert.Equal(t, "DEMO-2", refs[1].IDReadable)
}

func TestViewModes(t *testing.T) {
	w := newTestWorkspace(t)
	ctx := context.Background()

	w.Rebind("https://a.example.com")
	assert.Empty(t, w.ViewMode(ctx, "issues"))

	w.SetViewMode(ctx, "issues", "tree")
	w.SetViewMode(ctx, "articles", "flat")

	assert.Equal(t, "tree", w.ViewMode(ctx, "issues"))
	assert.Equal(t, "flat", w.ViewMode(ctx, "articles"))
}

func TestSnapshotsAndIssueState(t *testing.T) {
	w := newTestWorkspace(t)
	ctx := context.Background()

	w.Rebind("https://a.example.com")

	w.SetSavedSearches(ctx, []*models.SavedSearch{{ID: "q1", Name: "Mine", Query: "for: me"}})
	searches := w.SavedSearches(ctx)
	require.Len(t, searches, 1)
	assert.Equal(t, "for: me", searches[0].Query)

	w.SetAgileBoards(ctx, []*models.AgileBoard{{ID: "b1", Name: "Demo Board"}})
	boards := w.AgileBoards(ctx)
	require.Len(t, boards, 1)
	assert.Equal(t, "Demo Board", boards[0].Name)

	w.SetIssuesSource(ctx, "board")
	assert.Equal(t, "board", w.IssuesSource(ctx))

	w.SetIssuesFilter(ctx, "#Unresolved order by: updated")
	assert.Equal(t, "#Unresolved order by: updated", w.IssuesFilter(ctx))
}
