// Package store holds the application state and the actions that change it. Actions talk to
// the journal API and then commit mutations; mutations are the only way state changes.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-prayer-journal/events"
	"github.com/jrsteele09/go-prayer-journal/journal"
	"github.com/rs/zerolog/log"
)

// Authenticator supplies the access token for API calls and the session the initial state
// is read from.
type Authenticator interface {
	GetAccessToken(ctx context.Context) (string, error)
	IsAuthenticated() bool
	Profile() map[string]any
}

// Gateway is the journal API.
type Gateway interface {
	SetBearer(token string)
	RemoveBearer()

	Journal(ctx context.Context) ([]journal.Request, error)
	AddRequest(ctx context.Context, text string, recurType journal.RecurType, recurCount int) (*journal.Request, error)
	AddNote(ctx context.Context, requestID, notes string) error
	UpdateRequest(ctx context.Context, requestID string, status journal.Status, updateText string) error
	UpdateRecurrence(ctx context.Context, requestID string, recurType journal.RecurType, recurCount int) error
	SnoozeRequest(ctx context.Context, requestID string, until time.Time) error
	ShowRequest(ctx context.Context, requestID string, showAfter time.Time) error
	GetRequest(ctx context.Context, requestID string) (*journal.Request, error)
	GetFullRequest(ctx context.Context, requestID string) (*journal.Request, error)
	GetAnsweredRequests(ctx context.Context) ([]journal.Request, error)
	GetNotes(ctx context.Context, requestID string) ([]journal.Note, error)
}

// Store is the process-wide application state.
type Store struct {
	commitMu sync.Mutex // serialises Commit, including change delivery
	mu       sync.RWMutex
	state    State

	auth    Authenticator
	gateway Gateway
	changes *events.Broker[State]
}

// New creates the store. The initial user and authenticated flag are read from auth, so the
// session must already have been restored.
func New(auth Authenticator, gateway Gateway) (*Store, error) {
	if auth == nil {
		return nil, fmt.Errorf("[store.New] authenticator is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("[store.New] gateway is required")
	}

	initial := State{
		User:            auth.Profile(),
		IsAuthenticated: auth.IsAuthenticated(),
	}
	return &Store{
		state:   initial.Clone(),
		auth:    auth,
		gateway: gateway,
		changes: events.NewBroker[State](),
	}, nil
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe delivers a snapshot after every committed mutation. Handlers may read State but
// must not Commit.
func (s *Store) Subscribe(handler events.Handler[State]) *events.Subscription {
	return s.changes.Subscribe(handler)
}

// Commit applies m.
func (s *Store) Commit(m Mutation) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	s.state = Reduce(s.state, m)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	if _, ok := m.(UserLoggedOff); ok {
		s.gateway.RemoveBearer()
	}

	log.Debug().Str("mutation", m.Name()).Msg("committed")
	s.changes.Publish(snapshot)
}

// UserLoggedOn commits UserLoggedOn. The auth service calls it after a successful log on.
func (s *Store) UserLoggedOn(profile map[string]any) {
	s.Commit(UserLoggedOn{User: profile})
}

// UserLoggedOff commits UserLoggedOff. The auth service calls it on log out.
func (s *Store) UserLoggedOff() {
	s.Commit(UserLoggedOff{})
}
