package auth

import apperrors "github.com/jrsteele09/go-prayer-journal/internal/errors"

var (
	ErrNotLoggedIn       = apperrors.ErrNotLoggedIn
	ErrStateMismatch     = apperrors.ErrStateMismatch
	ErrNonceMismatch     = apperrors.ErrNonceMismatch
	ErrInvalidAuthResult = apperrors.ErrInvalidAuthResult
)
