package store

import (
	"maps"
	"slices"

	"github.com/jrsteele09/go-prayer-journal/journal"
)

// State is the application state. Values handed out by the Store are snapshots and may be
// read freely.
type State struct {
	User             map[string]any
	IsAuthenticated  bool
	Journal          []journal.Request // Arrival order
	IsLoadingJournal bool
}

// Clone returns a copy that shares nothing mutable with s at the top level.
func (s State) Clone() State {
	c := s
	c.User = maps.Clone(s.User)
	if c.User == nil {
		c.User = map[string]any{}
	}
	c.Journal = slices.Clone(s.Journal)
	if c.Journal == nil {
		c.Journal = []journal.Request{}
	}
	return c
}

// Find returns the journal entry with the given id.
func (s State) Find(requestID string) (journal.Request, bool) {
	for _, r := range s.Journal {
		if r.RequestID == requestID {
			return r, true
		}
	}
	return journal.Request{}, false
}

// Mutation is a synchronous state transition. Mutations do no I/O and cannot fail.
type Mutation interface {
	Name() string
	apply(*State)
}

// LoadingJournal sets the journal loading flag.
type LoadingJournal struct{ Loading bool }

// LoadedJournal replaces the journal.
type LoadedJournal struct{ Journal []journal.Request }

// RequestAdded appends a request to the journal.
type RequestAdded struct{ Request journal.Request }

// RequestUpdated replaces the entry with the same id, dropping it when it has been answered.
type RequestUpdated struct{ Request journal.Request }

// SetAuthentication sets the authenticated flag.
type SetAuthentication struct{ Authenticated bool }

// UserLoggedOff clears the user. Committing it also drops the gateway's bearer credential.
type UserLoggedOff struct{}

// UserLoggedOn records the logged on user.
type UserLoggedOn struct{ User map[string]any }

func (LoadingJournal) Name() string    { return "LoadingJournal" }
func (LoadedJournal) Name() string     { return "LoadedJournal" }
func (RequestAdded) Name() string      { return "RequestAdded" }
func (RequestUpdated) Name() string    { return "RequestUpdated" }
func (SetAuthentication) Name() string { return "SetAuthentication" }
func (UserLoggedOff) Name() string     { return "UserLoggedOff" }
func (UserLoggedOn) Name() string      { return "UserLoggedOn" }

func (m LoadingJournal) apply(s *State) {
	s.IsLoadingJournal = m.Loading
}

func (m LoadedJournal) apply(s *State) {
	s.Journal = slices.Clone(m.Journal)
	if s.Journal == nil {
		s.Journal = []journal.Request{}
	}
}

func (m RequestAdded) apply(s *State) {
	s.Journal = append(s.Journal, m.Request)
}

func (m RequestUpdated) apply(s *State) {
	jrnl := make([]journal.Request, 0, len(s.Journal)+1)
	for _, r := range s.Journal {
		if r.RequestID != m.Request.RequestID {
			jrnl = append(jrnl, r)
		}
	}
	if !m.Request.IsAnswered() {
		jrnl = append(jrnl, m.Request)
	}
	s.Journal = jrnl
}

func (m SetAuthentication) apply(s *State) {
	s.IsAuthenticated = m.Authenticated
}

func (UserLoggedOff) apply(s *State) {
	s.User = map[string]any{}
	s.IsAuthenticated = false
}

func (m UserLoggedOn) apply(s *State) {
	s.User = maps.Clone(m.User)
	if s.User == nil {
		s.User = map[string]any{}
	}
	s.IsAuthenticated = true
}

// Reduce applies m to a copy of s.
func Reduce(s State, m Mutation) State {
	next := s.Clone()
	m.apply(&next)
	return next
}
