package models

import (
	"strings"
	"time"
)

// EntityType distinguishes the two kinds of editable remote entities.
type EntityType string

const (
	EntityTypeIssue   EntityType = "issue"
	EntityTypeArticle EntityType = "article"
)

// EntityTypeFor resolves the entity type from a human-readable id.
// Issue ids follow the PROJECT-NUMBER convention (e.g. "DEMO-42");
// article ids carry an extra segment (e.g. "DEMO-A-7") and anything
// else is treated as an article too.
func EntityTypeFor(idReadable string) EntityType {
	parts := strings.Split(idReadable, "-")
	if len(parts) != 2 {
		return EntityTypeArticle
	}
	if parts[0] == "" || parts[1] == "" {
		return EntityTypeArticle
	}
	for _, r := range parts[0] {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return EntityTypeArticle
		}
	}
	for _, r := range parts[1] {
		if r < '0' || r > '9' {
			return EntityTypeArticle
		}
	}
	return EntityTypeIssue
}

// ProjectKeyOf returns the project short name prefix of a readable id
// ("DEMO-42" -> "DEMO"), or "" if the id has no dash.
func ProjectKeyOf(idReadable string) string {
	i := strings.Index(idReadable, "-")
	if i <= 0 {
		return ""
	}
	return idReadable[:i]
}

// Project is an immutable snapshot of a YouTrack project.
type Project struct {
	ID          string
	Name        string
	ShortName   string
	Description string
}

// User is the profile returned by the "who am I" call.
type User struct {
	ID       string
	Login    string
	FullName string
	Email    string
}

// Issue is an immutable snapshot of a YouTrack issue.
type Issue struct {
	ID               string
	IDReadable       string
	Summary          string
	Description      string
	Created          time.Time
	Updated          time.Time
	Resolved         *time.Time
	ProjectID        string
	ProjectShortName string
	ParentID         string
	SubtaskIDs       []string
}

// Article is an immutable snapshot of a knowledge-base article.
type Article struct {
	ID               string
	IDReadable       string
	Summary          string
	Content          string
	Created          time.Time
	Updated          time.Time
	ProjectID        string
	ProjectShortName string
	ParentID         string
	ChildIDs         []string
}

// SavedSearch is a named issue query stored on the server.
type SavedSearch struct {
	ID    string
	Name  string
	Query string
}

// AgileBoard is a board definition stored on the server.
type AgileBoard struct {
	ID         string
	Name       string
	ProjectIDs []string
}

// EntityRef is a lightweight reference kept in recency lists.
type EntityRef struct {
	ID         string `json:"id"`
	IDReadable string `json:"id_readable"`
	Summary    string `json:"summary"`
}
