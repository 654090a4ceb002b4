package schema

import (
	"context"
	"errors"
	"fmt"
)

// Record is one instance conforming to an entity's base schema. Records come
// out of a transport flattened: system keys (id, version, created_at,
// updated_at) alongside the field values. Fetched records are treated as
// immutable; an update produces a new record.
type Record map[string]any

// Transport is the external data source behind an entity. Its mechanism
// (in-memory store, SQL, network) is opaque to everything above it.
type Transport interface {
	List(ctx context.Context) ([]Record, error)
	Create(ctx context.Context, payload Record) (Record, error)
	Update(ctx context.Context, id string, payload Record) (Record, error)
	Delete(ctx context.Context, id string) error
}

// ErrorKind distinguishes transport failures. The data-access layer preserves
// the kind to the caller instead of collapsing everything to one error.
type ErrorKind int

const (
	ErrorUnavailable ErrorKind = iota // network/backend failure, retryable
	ErrorNotFound
	ErrorRejected // backend refused the payload
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNotFound:
		return "not_found"
	case ErrorRejected:
		return "rejected"
	default:
		return "unavailable"
	}
}

type TransportError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// KindOf extracts the transport error kind; ok=false for non-transport errors.
func KindOf(err error) (ErrorKind, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}
