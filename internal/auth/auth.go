// Package auth tracks the connection lifecycle against a YouTrack server:
// it validates and persists credentials, owns the API client for the
// current session, and publishes state transitions to subscribers.
package auth

import (
	"context"
	"sync"

	"github.com/joescharf/ytsync/internal/credentials"
	"github.com/joescharf/ytsync/internal/youtrack"
)

// State is the connection lifecycle state. Transitions are the only
// mutation path; exactly one value is live at a time.
type State string

const (
	StateNotAuthenticated     State = "not_authenticated"
	StateAuthenticating       State = "authenticating"
	StateAuthenticated        State = "authenticated"
	StateAuthenticationFailed State = "authentication_failed"
)

// Manager is the authentication state machine.
type Manager struct {
	creds *credentials.Store

	// Logf receives diagnostics for credential persist failures, which
	// never fail the operation itself. Nil disables logging.
	Logf func(format string, a ...any)

	mu        sync.Mutex
	state     State
	client    *youtrack.Client
	baseURL   string
	nextSubID int
	subs      []subscriber

	// validate issues the lightweight "who am I" call. Replaceable in tests.
	validate func(ctx context.Context, baseURL, token string) error
}

type subscriber struct {
	id int
	fn func(State)
}

// NewManager creates a manager in the NotAuthenticated state.
func NewManager(creds *credentials.Store) *Manager {
	return &Manager{
		creds: creds,
		state: StateNotAuthenticated,
		validate: func(ctx context.Context, baseURL, token string) error {
			_, err := youtrack.New(baseURL, token).CurrentUser(ctx)
			return err
		},
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsAuthenticated reports whether a session is active.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// Client returns the API client for the current session, or nil when no
// session is active.
func (m *Manager) Client() *youtrack.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

// BaseURL returns the server URL of the current session, or "" when no
// session is active.
func (m *Manager) BaseURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseURL
}

// Subscribe registers a listener invoked synchronously on every state
// transition, in transition order. The returned handle stops delivery;
// missed transitions are not replayed.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSubID++
	id := m.nextSubID
	m.subs = append(m.subs, subscriber{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// Initialize attempts to restore a session from stored credentials,
// validating them with a "who am I" call. It returns true when a session
// was restored and never returns an error: storage and remote failures
// all map to false with the state left NotAuthenticated.
func (m *Manager) Initialize(ctx context.Context) bool {
	token := m.creds.Token()
	baseURL := m.creds.BaseURL()
	if token == "" || baseURL == "" {
		m.transition(StateNotAuthenticated, nil, "")
		return false
	}

	m.transition(StateAuthenticating, nil, "")
	if err := m.validate(ctx, baseURL, token); err != nil {
		m.transition(StateNotAuthenticated, nil, "")
		return false
	}

	m.transition(StateAuthenticated, youtrack.New(baseURL, token), baseURL)
	return true
}

// Authenticate validates the given credentials and, on success, persists
// them and opens a session. On failure the credentials are not persisted
// and the state becomes AuthenticationFailed.
func (m *Manager) Authenticate(ctx context.Context, baseURL, token string) bool {
	m.transition(StateAuthenticating, nil, "")

	if err := m.validate(ctx, baseURL, token); err != nil {
		m.transition(StateAuthenticationFailed, nil, "")
		return false
	}

	// Persist failures do not invalidate the live session, but the user
	// has to log in again next run; say so.
	if err := m.creds.StoreBaseURL(baseURL); err != nil {
		m.logf("persist server url: %v", err)
	}
	if err := m.creds.StoreToken(token); err != nil {
		m.logf("persist token: %v", err)
	}

	m.transition(StateAuthenticated, youtrack.New(baseURL, token), baseURL)
	return true
}

// Logout clears the in-memory client and persisted credentials and
// returns to NotAuthenticated. Idempotent.
func (m *Manager) Logout() {
	if err := m.creds.Clear(); err != nil {
		m.logf("clear credentials: %v", err)
	}
	m.transition(StateNotAuthenticated, nil, "")
}

func (m *Manager) logf(format string, a ...any) {
	if m.Logf != nil {
		m.Logf(format, a...)
	}
}

// transition swaps the state and notifies subscribers synchronously.
func (m *Manager) transition(state State, client *youtrack.Client, baseURL string) {
	m.mu.Lock()
	m.state = state
	m.client = client
	m.baseURL = baseURL
	current := make([]subscriber, len(m.subs))
	copy(current, m.subs)
	m.mu.Unlock()

	for _, s := range current {
		s.fn(state)
	}
}
