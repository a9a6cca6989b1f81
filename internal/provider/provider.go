// Package provider is the Upstream Provider Adapter: a typed client over
// the inscription provider's by-number, by-id, sat-info, and metadata
// endpoints, hiding the HTTP transport and distinguishing "not yet exists"
// from a genuine transport failure.
package provider

import (
	"context"
	"errors"
)

// ErrNotYetExists is returned by InscriptionByNumber when the upstream
// reports the requested inscription number as absent. It is not a failure —
// the worker's end-of-stream back-off policy depends on seeing it.
var ErrNotYetExists = errors.New("provider: inscription does not exist yet")

// TransportError wraps any failure other than ErrNotYetExists: a
// connection error, a non-2xx/404 status code, a malformed response body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return "provider: " + e.Op + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// Details is the subset of an inscription's by-id lookup this module needs.
type Details struct {
	InscriptionID string
	Sat           int64
}

// SatInfo is the ordered list of inscriptions riding a given sat.
type SatInfo struct {
	InscriptionIDs []string
}

// Inscription is the by-number lookup result.
type Inscription struct {
	InscriptionID string
	ContentType   string
	Sat           int64
}

// Provider is implemented by the node-backed and API-backed adapters.
// Every method enforces its own per-call timeout internally; callers should
// still pass a context for cancellation on worker shutdown.
type Provider interface {
	InscriptionByNumber(ctx context.Context, number int64) (*Inscription, error)
	InscriptionByID(ctx context.Context, id string) (*Details, error)
	SatInfo(ctx context.Context, sat int64) (*SatInfo, error)
	Metadata(ctx context.Context, id string) ([]byte, error)
}
