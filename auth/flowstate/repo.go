// Package flowstate keeps the per-request values of authorizations that have been started
// but whose result has not come back yet.
package flowstate

import "time"

// AuthFlowState is what the service needs to accept the provider's answer for one state value.
type AuthFlowState struct {
	Nonce     string
	AppState  any
	CreatedAt time.Time
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	Get(state string) (*AuthFlowState, error)
	Delete(state string) error
	DeleteExpired(cutoff time.Time) int
}
