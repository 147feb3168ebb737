// Package lberrors defines the sentinel errors recognised by the core,
// one per distinct failure kind the dispatcher and its collaborators
// can raise.
package lberrors

import "errors"

var (
	// ErrInvalidRequestID is returned when an ingress request id fails
	// validation (not 24-character alphanumeric). Input-validation kind.
	ErrInvalidRequestID = errors.New("lbbandit: request id must be 24 alphanumeric characters")

	// ErrUnknownStrategy is returned at startup for an unrecognised
	// LB_STRATEGY value. Configuration-error kind.
	ErrUnknownStrategy = errors.New("lbbandit: unknown strategy")

	// ErrUnknownTier is returned at startup for an unrecognised
	// LB_CONFIG_TARGET value. Configuration-error kind.
	ErrUnknownTier = errors.New("lbbandit: unknown tier")

	// ErrAttemptsExhausted names the request-exhaustion kind: a request
	// that fails on every attempt up to MAX_ATTEMPTS. The dispatcher does
	// not return it; it reports exhaustion as Result.Success == false
	// with a nil error.
	ErrAttemptsExhausted = errors.New("lbbandit: attempts exhausted")

	// ErrNoCandidates names the case of a strategy with no candidate and
	// no fallback. No strategy returns it: an empty candidate set falls
	// back to BestServer, and every tier has at least one port.
	ErrNoCandidates = errors.New("lbbandit: no candidate servers available")
)
