package identity

import (
	"encoding/json"
	"fmt"
	"math"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-prayer-journal/internal/errors"
)

// DecodeClaims reads the payload of an identity token without checking its signature.
// It is used when no verifier is configured; the token came straight from the provider over
// the redirect.
func DecodeClaims(rawIDToken string) (map[string]any, error) {
	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawIDToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidAuthResult, "decode identity token: %v", err)
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidAuthResult, "decode identity token: unexpected claims type")
	}
	if _, err := claims.GetExpirationTime(); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidAuthResult, "decode identity token: %v", err)
	}
	return map[string]any(claims), nil
}

// ExpiryClaim returns the `exp` claim in epoch seconds.
func ExpiryClaim(claims map[string]any) (int64, error) {
	switch v := claims["exp"].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("invalid exp claim")
		}
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case nil:
		return 0, fmt.Errorf("missing exp claim")
	default:
		return 0, fmt.Errorf("unexpected exp claim type %T", v)
	}
}
