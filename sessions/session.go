package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/jrsteele09/go-prayer-journal/token"
)

// Key is the name of the durable slot holding the serialized session.
const Key = "auth-session"

// Session pairs the identity and access tokens with the user's profile claims.
// The identity token decides whether a user is logged in; the access token authorizes API
// calls and is renewed independently.
type Session struct {
	ID      token.Token    `json:"id"`      // Identity token, expiry from the `exp` claim
	Access  token.Token    `json:"access"`  // Access token, expiry from `expires_in`
	Profile map[string]any `json:"profile"` // Decoded identity token claims
}

// Store is durable persistence of a single Session across process restarts.
// Load returns ErrNoSession (internal/errors) when the slot is empty.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Remove(ctx context.Context) error
}

// Empty returns a logged out session.
func Empty() *Session {
	return &Session{Profile: map[string]any{}}
}

// IsAuthenticated reports whether the identity token is valid at now.
func (s *Session) IsAuthenticated(now time.Time) bool {
	return s != nil && s.ID.IsValid(now)
}

// IsAccessTokenValid reports whether the access token is valid at now.
func (s *Session) IsAccessTokenValid(now time.Time) bool {
	return s != nil && s.Access.IsValid(now)
}

// HasIdentity reports whether an identity token is present, valid or not.
func (s *Session) HasIdentity() bool {
	return s != nil && s.ID.Value != ""
}

// Clone returns a copy that shares no mutable state with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return Empty()
	}
	c := *s
	c.Profile = maps.Clone(s.Profile)
	if c.Profile == nil {
		c.Profile = map[string]any{}
	}
	return &c
}

// Encode serializes the session in its persisted JSON shape:
// {"profile": {...}, "id": {"token", "expiry"}, "access": {"token", "expiry"}}.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		s = Empty()
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("sessions.Encode: %w", err)
	}
	return data, nil
}

// Decode parses a persisted session.
func Decode(data []byte) (*Session, error) {
	s := Empty()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("sessions.Decode: %w", err)
	}
	if s.Profile == nil {
		s.Profile = map[string]any{}
	}
	return s, nil
}
