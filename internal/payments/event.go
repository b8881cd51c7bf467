// Package payments applies gateway outcomes to registrations exactly once.
// Gateway callbacks are normalized at the boundary into one canonical Event;
// nothing duck-typed crosses into the reconciler.
package payments

import "errors"

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is the canonical callback shape. Fixed fields only.
type Event struct {
	Gateway        string
	RegistrationID string
	TransactionID  string
	Outcome        Outcome
	RawAmount      float64
}

var (
	// ErrUnrecognizedCallback means the payload could not be normalized:
	// no registration reference, or a status encoding we do not know.
	ErrUnrecognizedCallback = errors.New("unrecognized gateway callback")
)
