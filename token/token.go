package token

import (
	"encoding/json"
	"time"
)

// Token is an opaque credential and the absolute instant it stops being valid.
type Token struct {
	Value  string
	Expiry time.Time
}

// New creates a token expiring at the given instant.
func New(value string, expiry time.Time) Token {
	return Token{Value: value, Expiry: expiry}
}

// FromExpiresIn creates a token that expires expiresIn seconds after now.
// This is how access tokens arrive from the identity provider. The expiry has millisecond
// precision, the precision it is persisted with.
func FromExpiresIn(value string, expiresIn int64, now time.Time) Token {
	if expiresIn <= 0 {
		return Token{Value: value}
	}
	return Token{Value: value, Expiry: time.UnixMilli(now.UnixMilli() + expiresIn*1000)}
}

// FromEpochSeconds creates a token from an `exp` claim.
func FromEpochSeconds(value string, exp int64) Token {
	if exp <= 0 {
		return Token{Value: value}
	}
	return Token{Value: value, Expiry: time.Unix(exp, 0)}
}

// IsValid reports whether the token has a value, a known expiry, and now is before that expiry.
// It is evaluated on every call; validity is never cached.
func (t Token) IsValid(now time.Time) bool {
	if t.Value == "" || t.expiryMillis() == 0 {
		return false
	}
	return now.Before(t.Expiry)
}

// IsZero reports whether the token is the empty token.
func (t Token) IsZero() bool {
	return t.Value == "" && t.expiryMillis() == 0
}

func (t Token) expiryMillis() int64 {
	if t.Expiry.IsZero() {
		return 0
	}
	return t.Expiry.UnixMilli()
}

// wireToken is the persisted shape: {"token": "...", "expiry": <epoch millis>}.
type wireToken struct {
	Token  *string `json:"token"`
	Expiry *int64  `json:"expiry"`
}

// MarshalJSON writes the expiry as epoch milliseconds, with null for an empty token.
func (t Token) MarshalJSON() ([]byte, error) {
	var w wireToken
	if t.Value != "" {
		w.Token = &t.Value
	}
	if ms := t.expiryMillis(); ms != 0 {
		w.Expiry = &ms
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts nulls for either field and treats them as empty.
func (t *Token) UnmarshalJSON(data []byte) error {
	var w wireToken
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Token{}
	if w.Token != nil {
		t.Value = *w.Token
	}
	if w.Expiry != nil && *w.Expiry != 0 {
		t.Expiry = time.UnixMilli(*w.Expiry)
	}
	return nil
}
