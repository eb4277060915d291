package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/ytsync/internal/models"
	"github.com/joescharf/ytsync/internal/youtrack"
)

// ---------------------------------------------------------------------------
// Mock client
// ---------------------------------------------------------------------------

type mockClient struct {
	projects []*models.Project
	issues   map[string]*models.Issue
	articles map[string]*models.Article

	projectsErr error
}

func (m *mockClient) Projects(context.Context) ([]*models.Project, error) {
	if m.projectsErr != nil {
		return nil, m.projectsErr
	}
	return m.projects, nil
}

func (m *mockClient) IssueByID(_ context.Context, id string) (*models.Issue, error) {
	if issue, ok := m.issues[id]; ok {
		return issue, nil
	}
	return nil, youtrack.ErrNotFound
}

func (m *mockClient) ArticleByID(_ context.Context, id string) (*models.Article, error) {
	if article, ok := m.articles[id]; ok {
		return article, nil
	}
	return nil, youtrack.ErrNotFound
}

func newTestServer(t *testing.T) (*Server, *mockClient) {
	t.Helper()
	mc := &mockClient{
		issues:   make(map[string]*models.Issue),
		articles: make(map[string]*models.Article),
	}
	return NewServer(mc), mc
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// yt_list_projects
// ---------------------------------------------------------------------------

func TestHandleListProjects(t *testing.T) {
	srv, mc := newTestServer(t)
	mc.projects = []*models.Project{
		{ID: "0-1", Name: "Demo Project", ShortName: "DEMO"},
		{ID: "0-2", Name: "Operations", ShortName: "OPS", Description: "infra work"},
	}

	result, err := srv.handleListProjects(context.Background(), callToolReq("yt_list_projects", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "DEMO", out[0]["short_name"])
	assert.Equal(t, "infra work", out[1]["description"])
}

func TestHandleListProjects_ClientError(t *testing.T) {
	srv, mc := newTestServer(t)
	mc.projectsErr = youtrack.ErrUnauthorized

	result, err := srv.handleListProjects(context.Background(), callToolReq("yt_list_projects", nil))
	require.NoError(t, err, "handler should not return Go error; should wrap in result")
	assert.True(t, result.IsError)
}

// ---------------------------------------------------------------------------
// yt_get_entities
// ---------------------------------------------------------------------------

func seedIssue(mc *mockClient, idReadable string) {
	mc.issues[idReadable] = &models.Issue{
		ID:               "2-" + idReadable,
		IDReadable:       idReadable,
		Summary:          "Summary of " + idReadable,
		Description:      "Body of " + idReadable,
		ProjectShortName: models.ProjectKeyOf(idReadable),
		Created:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Updated:          time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestHandleGetEntities_MixedTypes(t *testing.T) {
	srv, mc := newTestServer(t)
	seedIssue(mc, "DEMO-42")
	mc.articles["DEMO-A-7"] = &models.Article{
		ID:               "3-7",
		IDReadable:       "DEMO-A-7",
		Summary:          "Onboarding guide",
		Content:          "# Welcome",
		ProjectShortName: "DEMO",
		Created:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Updated:          time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	req := callToolReq("yt_get_entities", map[string]any{"ids": "DEMO-42, DEMO-A-7"})
	result, err := srv.handleGetEntities(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "issue", out[0]["type"])
	assert.Equal(t, "DEMO-42", out[0]["id_readable"])
	assert.Equal(t, "article", out[1]["type"])
	assert.Equal(t, "# Welcome", out[1]["content"])
}

func TestHandleGetEntities_PerIDErrors(t *testing.T) {
	srv, mc := newTestServer(t)
	seedIssue(mc, "DEMO-1")

	req := callToolReq("yt_get_entities", map[string]any{"ids": "DEMO-1 DEMO-999"})
	result, err := srv.handleGetEntities(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError, "per-id misses are data, not tool failures")

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "issue", out[0]["type"])
	assert.Equal(t, "DEMO-999", out[1]["id"])
	assert.Contains(t, out[1]["error"], "not found")
}

func TestHandleGetEntities_MissingParameter(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleGetEntities(context.Background(), callToolReq("yt_get_entities", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"A-1", "B-2", "C-3"}, splitIDs("A-1, B-2  C-3"))
	assert.Equal(t, []string{"A-1"}, splitIDs("A-1"))
	assert.Empty(t, splitIDs("  , "))
}
