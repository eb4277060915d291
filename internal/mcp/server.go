// Package mcp exposes the YouTrack session as MCP tools so AI tools can
// query projects and fetch entities without going through the CLI.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/ytsync/internal/models"
)

// RemoteClient is the slice of the YouTrack API the tool facade needs.
type RemoteClient interface {
	Projects(ctx context.Context) ([]*models.Project, error)
	IssueByID(ctx context.Context, id string) (*models.Issue, error)
	ArticleByID(ctx context.Context, id string) (*models.Article, error)
}

// Server wraps the remote client and exposes it as MCP tools.
type Server struct {
	client RemoteClient
}

// NewServer creates the MCP server wrapper over an authenticated client.
func NewServer(client RemoteClient) *Server {
	return &Server{client: client}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("ytsync", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listProjectsTool())
	srv.AddTool(s.getEntitiesTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// yt_list_projects
func (s *Server) listProjectsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("yt_list_projects",
		mcp.WithDescription("List all YouTrack projects visible to the current session. Returns a JSON array of projects with id, name, short_name, and description."),
	)
	return tool, s.handleListProjects
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.client.Projects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}

	type projectOut struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		ShortName   string `json:"short_name"`
		Description string `json:"description,omitempty"`
	}

	out := make([]projectOut, len(projects))
	for i, p := range projects {
		out[i] = projectOut{
			ID:          p.ID,
			Name:        p.Name,
			ShortName:   p.ShortName,
			Description: p.Description,
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal projects: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// yt_get_entities
func (s *Server) getEntitiesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("yt_get_entities",
		mcp.WithDescription("Fetch YouTrack issues and knowledge-base articles by their human-readable ids (e.g. DEMO-42, DEMO-A-7). Ids matching PROJECT-NUMBER resolve as issues; everything else as articles. Returns a JSON array; per-id failures appear as {id, error} entries."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Entity ids, separated by commas or whitespace")),
	)
	return tool, s.handleGetEntities
}

type issueOut struct {
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	IDReadable  string   `json:"id_readable"`
	Summary     string   `json:"summary"`
	Description string   `json:"description,omitempty"`
	Project     string   `json:"project"`
	Created     string   `json:"created"`
	Updated     string   `json:"updated"`
	Resolved    string   `json:"resolved,omitempty"`
	Parent      string   `json:"parent,omitempty"`
	Subtasks    []string `json:"subtasks,omitempty"`
}

type articleOut struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	IDReadable string `json:"id_readable"`
	Summary    string `json:"summary"`
	Content    string `json:"content,omitempty"`
	Project    string `json:"project"`
	Created    string `json:"created"`
	Updated    string `json:"updated"`
}

type errorOut struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

func (s *Server) handleGetEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawIDs, err := request.RequireString("ids")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: ids"), nil
	}

	ids := splitIDs(rawIDs)
	if len(ids) == 0 {
		return mcp.NewToolResultError("no entity ids provided"), nil
	}

	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.fetchEntity(ctx, id))
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal entities: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// fetchEntity resolves one id to an issue or article dump. Lookup failures
// become structured error entries, never tool-level failures, so one bad
// id does not sink the batch.
func (s *Server) fetchEntity(ctx context.Context, id string) any {
	switch models.EntityTypeFor(id) {
	case models.EntityTypeIssue:
		issue, err := s.client.IssueByID(ctx, id)
		if err != nil {
			return errorOut{ID: id, Error: err.Error()}
		}
		out := issueOut{
			Type:        "issue",
			ID:          issue.ID,
			IDReadable:  issue.IDReadable,
			Summary:     issue.Summary,
			Description: issue.Description,
			Project:     issue.ProjectShortName,
			Created:     issue.Created.Format(time.RFC3339),
			Updated:     issue.Updated.Format(time.RFC3339),
			Parent:      issue.ParentID,
			Subtasks:    issue.SubtaskIDs,
		}
		if issue.Resolved != nil {
			out.Resolved = issue.Resolved.Format(time.RFC3339)
		}
		return out
	default:
		article, err := s.client.ArticleByID(ctx, id)
		if err != nil {
			return errorOut{ID: id, Error: err.Error()}
		}
		return articleOut{
			Type:       "article",
			ID:         article.ID,
			IDReadable: article.IDReadable,
			Summary:    article.Summary,
			Content:    article.Content,
			Project:    article.ProjectShortName,
			Created:    article.Created.Format(time.RFC3339),
			Updated:    article.Updated.Format(time.RFC3339),
		}
	}
}

// splitIDs splits a comma- or whitespace-separated id list.
func splitIDs(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	var ids []string
	for _, f := range fields {
		if f != "" {
			ids = append(ids, f)
		}
	}
	return ids
}
