// Package youtrack is a minimal REST client for the YouTrack API,
// covering the entities ytsync synchronizes: projects, issues,
// knowledge-base articles, saved searches, and agile boards.
package youtrack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joescharf/ytsync/internal/models"
)

// Sentinel errors for remote failures, matched with errors.Is.
var (
	ErrNotFound       = errors.New("entity not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrRemoteRejected = errors.New("remote rejected request")
)

const (
	issueFields   = "id,idReadable,summary,description,created,updated,resolved,project(id,shortName),parent(issues(id,idReadable)),subtasks(issues(id,idReadable))"
	articleFields = "id,idReadable,summary,content,created,updated,project(id,shortName),parentArticle(id),childArticles(id)"
	projectFields = "id,name,shortName,description"
)

// Client talks to a single YouTrack server with a permanent token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the given server and token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL returns the server URL this client is bound to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- wire types -----------------------------------------------------------

type userResponse struct {
	ID       string `json:"id"`
	Login    string `json:"login"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type projectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ShortName   string `json:"shortName"`
	Description string `json:"description"`
}

type issueLinkResponse struct {
	Issues []struct {
		ID         string `json:"id"`
		IDReadable string `json:"idReadable"`
	} `json:"issues"`
}

type issueResponse struct {
	ID          string `json:"id"`
	IDReadable  string `json:"idReadable"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Created     int64  `json:"created"`
	Updated     int64  `json:"updated"`
	Resolved    *int64 `json:"resolved"`
	Project     struct {
		ID        string `json:"id"`
		ShortName string `json:"shortName"`
	} `json:"project"`
	Parent   issueLinkResponse `json:"parent"`
	Subtasks issueLinkResponse `json:"subtasks"`
}

type articleResponse struct {
	ID         string `json:"id"`
	IDReadable string `json:"idReadable"`
	Summary    string `json:"summary"`
	Content    string `json:"content"`
	Created    int64  `json:"created"`
	Updated    int64  `json:"updated"`
	Project    struct {
		ID        string `json:"id"`
		ShortName string `json:"shortName"`
	} `json:"project"`
	ParentArticle *struct {
		ID string `json:"id"`
	} `json:"parentArticle"`
	ChildArticles []struct {
		ID string `json:"id"`
	} `json:"childArticles"`
}

type savedQueryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Query string `json:"query"`
}

type agileResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Projects []struct {
		ID string `json:"id"`
	} `json:"projects"`
}

func epochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func (r issueResponse) toModel() *models.Issue {
	issue := &models.Issue{
		ID:               r.ID,
		IDReadable:       r.IDReadable,
		Summary:          r.Summary,
		Description:      r.Description,
		Created:          epochMillis(r.Created),
		Updated:          epochMillis(r.Updated),
		ProjectID:        r.Project.ID,
		ProjectShortName: r.Project.ShortName,
	}
	if r.Resolved != nil {
		t := epochMillis(*r.Resolved)
		issue.Resolved = &t
	}
	if len(r.Parent.Issues) > 0 {
		issue.ParentID = r.Parent.Issues[0].IDReadable
	}
	for _, sub := range r.Subtasks.Issues {
		issue.SubtaskIDs = append(issue.SubtaskIDs, sub.IDReadable)
	}
	return issue
}

func (r articleResponse) toModel() *models.Article {
	article := &models.Article{
		ID:               r.ID,
		IDReadable:       r.IDReadable,
		Summary:          r.Summary,
		Content:          r.Content,
		Created:          epochMillis(r.Created),
		Updated:          epochMillis(r.Updated),
		ProjectID:        r.Project.ID,
		ProjectShortName: r.Project.ShortName,
	}
	if r.ParentArticle != nil {
		article.ParentID = r.ParentArticle.ID
	}
	for _, child := range r.ChildArticles {
		article.ChildIDs = append(article.ChildIDs, child.ID)
	}
	return article
}

// --- operations -----------------------------------------------------------

// CurrentUser fetches the profile of the token's owner. Used as the
// lightweight credential validation call.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var resp userResponse
	if err := c.get(ctx, "/api/users/me", url.Values{"fields": {"id,login,fullName,email"}}, &resp); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &models.User{ID: resp.ID, Login: resp.Login, FullName: resp.FullName, Email: resp.Email}, nil
}

// Projects lists all projects visible to the token.
func (c *Client) Projects(ctx context.Context) ([]*models.Project, error) {
	var resp []projectResponse
	if err := c.get(ctx, "/api/admin/projects", url.Values{"fields": {projectFields}}, &resp); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects := make([]*models.Project, len(resp))
	for i, p := range resp {
		projects[i] = &models.Project{ID: p.ID, Name: p.Name, ShortName: p.ShortName, Description: p.Description}
	}
	return projects, nil
}

// ProjectByID fetches one project by internal id or short name.
func (c *Client) ProjectByID(ctx context.Context, id string) (*models.Project, error) {
	var resp projectResponse
	if err := c.get(ctx, "/api/admin/projects/"+url.PathEscape(id), url.Values{"fields": {projectFields}}, &resp); err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return &models.Project{ID: resp.ID, Name: resp.Name, ShortName: resp.ShortName, Description: resp.Description}, nil
}

// Issues searches issues in a project, optionally narrowed by an extra
// YouTrack query fragment.
func (c *Client) Issues(ctx context.Context, projectShortName, filter string) ([]*models.Issue, error) {
	query := "project: " + projectShortName
	if filter != "" {
		query += " " + filter
	}
	params := url.Values{
		"fields": {issueFields},
		"query":  {query},
	}

	var resp []issueResponse
	if err := c.get(ctx, "/api/issues", params, &resp); err != nil {
		return nil, fmt.Errorf("list issues for %s: %w", projectShortName, err)
	}
	issues := make([]*models.Issue, len(resp))
	for i, r := range resp {
		issues[i] = r.toModel()
	}
	return issues, nil
}

// IssueByID fetches one issue by internal id or readable id.
func (c *Client) IssueByID(ctx context.Context, id string) (*models.Issue, error) {
	var resp issueResponse
	if err := c.get(ctx, "/api/issues/"+url.PathEscape(id), url.Values{"fields": {issueFields}}, &resp); err != nil {
		return nil, fmt.Errorf("get issue %s: %w", id, err)
	}
	return resp.toModel(), nil
}

// CreateIssue creates an issue in the given project and returns the
// server's snapshot of it.
func (c *Client) CreateIssue(ctx context.Context, projectID, summary, description string) (*models.Issue, error) {
	body := map[string]any{
		"project":     map[string]string{"id": projectID},
		"summary":     summary,
		"description": description,
	}
	var resp issueResponse
	if err := c.post(ctx, "/api/issues", url.Values{"fields": {issueFields}}, body, &resp); err != nil {
		return nil, fmt.Errorf("create issue in %s: %w", projectID, err)
	}
	return resp.toModel(), nil
}

// UpdateIssueDescription replaces the issue description and returns the
// updated snapshot, whose Updated field carries the server timestamp.
func (c *Client) UpdateIssueDescription(ctx context.Context, id, description string) (*models.Issue, error) {
	body := map[string]any{"description": description}
	var resp issueResponse
	if err := c.post(ctx, "/api/issues/"+url.PathEscape(id), url.Values{"fields": {issueFields}}, body, &resp); err != nil {
		return nil, fmt.Errorf("update issue %s: %w", id, err)
	}
	return resp.toModel(), nil
}

// ArticleByID fetches one article by internal id or readable id.
func (c *Client) ArticleByID(ctx context.Context, id string) (*models.Article, error) {
	var resp articleResponse
	if err := c.get(ctx, "/api/articles/"+url.PathEscape(id), url.Values{"fields": {articleFields}}, &resp); err != nil {
		return nil, fmt.Errorf("get article %s: %w", id, err)
	}
	return resp.toModel(), nil
}

// UpdateArticleContent replaces the article content and returns the
// updated snapshot.
func (c *Client) UpdateArticleContent(ctx context.Context, id, content string) (*models.Article, error) {
	body := map[string]any{"content": content}
	var resp articleResponse
	if err := c.post(ctx, "/api/articles/"+url.PathEscape(id), url.Values{"fields": {articleFields}}, body, &resp); err != nil {
		return nil, fmt.Errorf("update article %s: %w", id, err)
	}
	return resp.toModel(), nil
}

// SavedSearches lists the user's saved issue queries.
func (c *Client) SavedSearches(ctx context.Context) ([]*models.SavedSearch, error) {
	var resp []savedQueryResponse
	if err := c.get(ctx, "/api/savedQueries", url.Values{"fields": {"id,name,query"}}, &resp); err != nil {
		return nil, fmt.Errorf("list saved searches: %w", err)
	}
	searches := make([]*models.SavedSearch, len(resp))
	for i, r := range resp {
		searches[i] = &models.SavedSearch{ID: r.ID, Name: r.Name, Query: r.Query}
	}
	return searches, nil
}

// AgileBoards lists agile boards visible to the token.
func (c *Client) AgileBoards(ctx context.Context) ([]*models.AgileBoard, error) {
	var resp []agileResponse
	if err := c.get(ctx, "/api/agiles", url.Values{"fields": {"id,name,projects(id)"}}, &resp); err != nil {
		return nil, fmt.Errorf("list agile boards: %w", err)
	}
	boards := make([]*models.AgileBoard, len(resp))
	for i, r := range resp {
		board := &models.AgileBoard{ID: r.ID, Name: r.Name}
		for _, p := range r.Projects {
			board.ProjectIDs = append(board.ProjectIDs, p.ID)
		}
		boards[i] = board
	}
	return boards, nil
}

// --- transport ------------------------------------------------------------

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

func (c *Client) post(ctx context.Context, path string, params url.Values, body, out any) error {
	return c.do(ctx, http.MethodPost, path, params, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRemoteRejected, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
