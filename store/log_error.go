package store

import (
	"github.com/jrsteele09/go-prayer-journal/api"
	apperrors "github.com/jrsteele09/go-prayer-journal/internal/errors"
	"github.com/rs/zerolog/log"
)

// logError logs a failed action with whatever the failure carries: the server's response, the
// request that got no response, the body that would not decode, or the local error.
func logError(action string, err error) {
	var respErr *api.ResponseError
	var transportErr *api.TransportError
	var decodeErr *api.DecodeError

	switch {
	case apperrors.As(err, &respErr):
		log.Error().
			Str("action", action).
			Int("status", respErr.StatusCode).
			Str("body", string(respErr.Body)).
			Interface("headers", respErr.Header).
			Msg("journal API responded with an error")
	case apperrors.As(err, &transportErr):
		log.Error().
			Str("action", action).
			Str("method", transportErr.Method).
			Str("url", transportErr.URL).
			Err(transportErr.Err).
			Msg("journal API request got no response")
	case apperrors.As(err, &decodeErr):
		log.Error().
			Str("action", action).
			Str("method", decodeErr.Method).
			Str("url", decodeErr.URL).
			Int("status", decodeErr.StatusCode).
			Err(decodeErr.Err).
			Msg("journal API response could not be decoded")
	default:
		log.Err(err).Str("action", action).Msg("journal API request failed")
	}
}
