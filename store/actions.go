package store

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/go-prayer-journal/internal/errors"
	"github.com/jrsteele09/go-prayer-journal/journal"
	"github.com/rs/zerolog/log"
)

// RequestUpdate is the input of UpdateRequest.
type RequestUpdate struct {
	RequestID  string
	Status     journal.Status
	UpdateText string
	RecurType  journal.RecurType
	RecurCount int
}

// AddRequest creates a request and appends the stored entry to the journal.
func (s *Store) AddRequest(ctx context.Context, progress Progress, text string, recurType journal.RecurType, recurCount int) (*journal.Request, error) {
	var added *journal.Request
	err := s.run(ctx, progress, ProgressIndeterminate, "AddRequest", func() error {
		req, err := s.gateway.AddRequest(ctx, text, recurType, recurCount)
		if err != nil {
			return err
		}
		s.Commit(RequestAdded{Request: *req})
		added = req
		return nil
	})
	return added, err
}

// LoadJournal replaces the journal with the server's. The journal is emptied first and the
// loading flag is cleared whatever the outcome.
func (s *Store) LoadJournal(ctx context.Context, progress Progress) error {
	progress = progressOrNone(progress)

	s.Commit(LoadedJournal{})
	progress.Show(ProgressQuery)
	defer progress.Done()
	s.Commit(LoadingJournal{Loading: true})
	defer s.Commit(LoadingJournal{Loading: false})

	if err := s.setBearer(ctx); err != nil {
		return err
	}
	jrnl, err := s.gateway.Journal(ctx)
	if err != nil {
		logError("LoadJournal", err)
		return err
	}
	s.Commit(LoadedJournal{Journal: jrnl})
	return nil
}

// UpdateRequest records a status change. Recurrence is only written when it differs from the
// journal's copy and the request is not being answered; the history entry is skipped for an
// "Updated" status whose text has not changed. The request is then re-read.
func (s *Store) UpdateRequest(ctx context.Context, progress Progress, update RequestUpdate) error {
	return s.run(ctx, progress, ProgressIndeterminate, "UpdateRequest", func() error {
		old, _ := s.State().Find(update.RequestID)

		if update.Status != journal.StatusPrayed || update.UpdateText != "" {
			recurChanged := old.RecurType != update.RecurType || old.RecurCount != update.RecurCount
			if update.Status != journal.StatusAnswered && recurChanged {
				if err := s.gateway.UpdateRecurrence(ctx, update.RequestID, update.RecurType, update.RecurCount); err != nil {
					return err
				}
			}
		}

		if update.Status != journal.StatusUpdated || old.Text != update.UpdateText {
			text := ""
			if old.Text != update.UpdateText {
				text = update.UpdateText
			}
			if err := s.gateway.UpdateRequest(ctx, update.RequestID, update.Status, text); err != nil {
				return err
			}
		}

		return s.refetch(ctx, update.RequestID)
	})
}

// ShowRequestNow makes a snoozed or recurring request visible from showAfter.
func (s *Store) ShowRequestNow(ctx context.Context, progress Progress, requestID string, showAfter time.Time) error {
	return s.run(ctx, progress, ProgressIndeterminate, "ShowRequestNow", func() error {
		if err := s.gateway.ShowRequest(ctx, requestID, showAfter); err != nil {
			return err
		}
		return s.refetch(ctx, requestID)
	})
}

// SnoozeRequest hides a request until the given time.
func (s *Store) SnoozeRequest(ctx context.Context, progress Progress, requestID string, until time.Time) error {
	return s.run(ctx, progress, ProgressIndeterminate, "SnoozeRequest", func() error {
		if err := s.gateway.SnoozeRequest(ctx, requestID, until); err != nil {
			return err
		}
		return s.refetch(ctx, requestID)
	})
}

// AddNote attaches notes to a request. The journal is not changed.
func (s *Store) AddNote(ctx context.Context, progress Progress, requestID, notes string) error {
	return s.run(ctx, progress, ProgressIndeterminate, "AddNote", func() error {
		return s.gateway.AddNote(ctx, requestID, notes)
	})
}

// AnsweredRequests lists answered requests.
func (s *Store) AnsweredRequests(ctx context.Context, progress Progress) ([]journal.Request, error) {
	var out []journal.Request
	err := s.run(ctx, progress, ProgressQuery, "AnsweredRequests", func() error {
		var err error
		out, err = s.gateway.GetAnsweredRequests(ctx)
		return err
	})
	return out, err
}

// FullRequest returns a request with its complete history.
func (s *Store) FullRequest(ctx context.Context, progress Progress, requestID string) (*journal.Request, error) {
	var out *journal.Request
	err := s.run(ctx, progress, ProgressQuery, "FullRequest", func() error {
		var err error
		out, err = s.gateway.GetFullRequest(ctx, requestID)
		return err
	})
	return out, err
}

// Notes returns the notes of a request.
func (s *Store) Notes(ctx context.Context, progress Progress, requestID string) ([]journal.Note, error) {
	var out []journal.Note
	err := s.run(ctx, progress, ProgressQuery, "Notes", func() error {
		var err error
		out, err = s.gateway.GetNotes(ctx, requestID)
		return err
	})
	return out, err
}

// CheckAuthentication sets the authenticated flag from whether an access token can be
// obtained, and returns it.
func (s *Store) CheckAuthentication(ctx context.Context) bool {
	_, err := s.auth.GetAccessToken(ctx)
	authenticated := err == nil
	s.Commit(SetAuthentication{Authenticated: authenticated})
	return authenticated
}

// run wraps an action's API work with the bearer and the progress indicator. Done is always
// signalled.
func (s *Store) run(ctx context.Context, progress Progress, mode ProgressMode, action string, work func() error) error {
	progress = progressOrNone(progress)
	progress.Show(mode)
	defer progress.Done()

	if err := s.setBearer(ctx); err != nil {
		return err
	}
	if err := work(); err != nil {
		logError(action, err)
		return err
	}
	return nil
}

func (s *Store) refetch(ctx context.Context, requestID string) error {
	req, err := s.gateway.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	s.Commit(RequestUpdated{Request: *req})
	return nil
}

func (s *Store) setBearer(ctx context.Context) error {
	accessToken, err := s.auth.GetAccessToken(ctx)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotLoggedIn) {
			log.Warn().Msg("API request attempted when user was not logged in")
		} else {
			log.Err(err).Msg("unable to obtain an access token")
		}
		return err
	}
	s.gateway.SetBearer(accessToken)
	return nil
}
