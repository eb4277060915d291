package youtrack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, New(srv.URL, "perm:test-token")
}

func TestCurrentUser(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/me", r.URL.Path)
		assert.Equal(t, "Bearer perm:test-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id": "1-1", "login": "jane", "fullName": "Jane Doe", "email": "jane@example.com",
		})
	})

	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jane", user.Login)
	assert.Equal(t, "Jane Doe", user.FullName)
}

func TestIssueByID(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/issues/DEMO-42", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("fields"), "idReadable")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "2-42",
			"idReadable":  "DEMO-42",
			"summary":     "Fix login flow",
			"description": "Steps to reproduce",
			"created":     int64(1700000000000),
			"updated":     int64(1700000100000),
			"project":     map[string]string{"id": "0-1", "shortName": "DEMO"},
			"subtasks": map[string]any{
				"issues": []map[string]string{{"id": "2-43", "idReadable": "DEMO-43"}},
			},
		})
	})

	issue, err := c.IssueByID(context.Background(), "DEMO-42")
	require.NoError(t, err)
	assert.Equal(t, "DEMO-42", issue.IDReadable)
	assert.Equal(t, "Fix login flow", issue.Summary)
	assert.Equal(t, "DEMO", issue.ProjectShortName)
	assert.Equal(t, time.UnixMilli(1700000100000).UTC(), issue.Updated)
	assert.Equal(t, []string{"DEMO-43"}, issue.SubtaskIDs)
	assert.Nil(t, issue.Resolved)
}

func TestIssues_BuildsQuery(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/issues", r.URL.Path)
		assert.Equal(t, "project: DEMO #Unresolved", r.URL.Query().Get("query"))
		_ = json.NewEncoder(w).Encode([]map[string]any{})
	})

	issues, err := c.Issues(context.Background(), "DEMO", "#Unresolved")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestArticleByID(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/articles/DEMO-A-7", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "3-7",
			"idReadable":    "DEMO-A-7",
			"summary":       "Onboarding guide",
			"content":       "# Welcome",
			"created":       int64(1700000000000),
			"updated":       int64(1700000200000),
			"project":       map[string]string{"id": "0-1", "shortName": "DEMO"},
			"childArticles": []map[string]string{{"id": "3-8"}},
		})
	})

	article, err := c.ArticleByID(context.Background(), "DEMO-A-7")
	require.NoError(t, err)
	assert.Equal(t, "DEMO-A-7", article.IDReadable)
	assert.Equal(t, "# Welcome", article.Content)
	assert.Equal(t, []string{"3-8"}, article.ChildIDs)
}

func TestUpdateIssueDescription_PostsBody(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "new text", body["description"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "2-42", "idReadable": "DEMO-42", "updated": int64(1700000300000),
			"project": map[string]string{"id": "0-1", "shortName": "DEMO"},
		})
	})

	issue, err := c.UpdateIssueDescription(context.Background(), "DEMO-42", "new text")
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1700000300000).UTC(), issue.Updated)
}

func TestCreateIssue_PostsProjectAndSummary(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/issues", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"id": "0-1"}, body["project"])
		assert.Equal(t, "New bug", body["summary"])
		assert.Equal(t, "Details", body["description"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "2-99", "idReadable": "DEMO-99", "summary": "New bug",
			"created": int64(1700000400000), "updated": int64(1700000400000),
			"project": map[string]string{"id": "0-1", "shortName": "DEMO"},
		})
	})

	issue, err := c.CreateIssue(context.Background(), "0-1", "New bug", "Details")
	require.NoError(t, err)
	assert.Equal(t, "DEMO-99", issue.IDReadable)
	assert.Equal(t, "DEMO", issue.ProjectShortName)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"server error", http.StatusInternalServerError, ErrRemoteRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})
			_, err := c.IssueByID(context.Background(), "DEMO-1")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSavedSearchesAndBoards(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/savedQueries":
			_ = json.NewEncoder(w).Encode([]map[string]string{
				{"id": "q1", "name": "Mine", "query": "for: me"},
			})
		case "/api/agiles":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"id": "b1", "name": "Demo Board", "projects": []map[string]string{{"id": "0-1"}}},
			})
		default:
			http.NotFound(w, r)
		}
	})

	searches, err := c.SavedSearches(context.Background())
	require.NoError(t, err)
	require.Len(t, searches, 1)
	assert.Equal(t, "for: me", searches[0].Query)

	boards, err := c.AgileBoards(context.Background())
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, []string{"0-1"}, boards[0].ProjectIDs)
}
