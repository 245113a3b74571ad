// Package journal holds the client-side projection of the server's prayer requests.
package journal

import "time"

// Status is the server-defined status of a request's latest history entry.
type Status string

const (
	StatusCreated  Status = "Created"
	StatusPrayed   Status = "Prayed"
	StatusUpdated  Status = "Updated"
	StatusAnswered Status = "Answered"
)

// RecurType is the unit of a request's recurrence interval.
type RecurType string

const (
	RecurImmediate RecurType = "Immediate"
	RecurHours     RecurType = "Hours"
	RecurDays      RecurType = "Days"
	RecurWeeks     RecurType = "Weeks"
)

// Request is one prayer request as returned by the journal API. Time fields are epoch
// milliseconds, as they are on the wire.
type Request struct {
	RequestID    string    `json:"requestId"`
	UserID       string    `json:"userId,omitempty"`
	Text         string    `json:"text"`
	AsOf         int64     `json:"asOf,omitempty"`
	LastStatus   Status    `json:"lastStatus"`
	SnoozedUntil int64     `json:"snoozedUntil,omitempty"`
	ShowAfter    int64     `json:"showAfter,omitempty"`
	RecurType    RecurType `json:"recurType,omitempty"`
	RecurCount   int       `json:"recurCount,omitempty"`
	History      []History `json:"history,omitempty"`
	Notes        []Note    `json:"notes,omitempty"`
}

// History is one status/text change of a request.
type History struct {
	AsOf   int64   `json:"asOf"`
	Status Status  `json:"status"`
	Text   *string `json:"text,omitempty"`
}

// Note is a free-form note attached to a request.
type Note struct {
	AsOf  int64  `json:"asOf"`
	Notes string `json:"notes"`
}

// IsAnswered reports whether the request has left the active journal.
func (r Request) IsAnswered() bool {
	return r.LastStatus == StatusAnswered
}

// Millis converts t to the wire representation; the zero time is 0.
func Millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromMillis converts a wire time; 0 is the zero time.
func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
