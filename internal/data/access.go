package data

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"facet/internal/schema"
)

// ConflictPolicy decides what happens when a second mutation targets a record
// while another is still in flight. The observed-behavior question is left to
// configuration: last-write-wins simply dispatches both, reject-on-conflict
// fails the overlapping call.
type ConflictPolicy int

const (
	LastWriteWins ConflictPolicy = iota
	RejectOnConflict
)

var ErrMutationInFlight = errors.New("another mutation is in flight for this record")

// ValidationError carries the aggregated field errors of a rejected payload.
type ValidationError struct {
	Errors []schema.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d error(s)", len(e.Errors))
}

type Options struct {
	RetryMax     int           // list-fetch retries before surfacing the error
	RetryBackoff time.Duration // base backoff, grows linearly per attempt
	Conflict     ConflictPolicy
}

func (o Options) withDefaults() Options {
	if o.RetryMax <= 0 {
		o.RetryMax = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 200 * time.Millisecond
	}
	return o
}

// Access exposes an entity's list/create/update/delete operations over its
// transport, with caching and a bounded retry policy for reads. Mutations are
// never silently retried — replaying one without caller intent is worse than
// failing.
type Access struct {
	def   *schema.Definition
	cache *Cache
	opts  Options

	listGen uint64 // last-request-wins generation for the list cache key

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewAccess(def *schema.Definition, cache *Cache, opts Options) *Access {
	return &Access{
		def:      def,
		cache:    cache,
		opts:     opts.withDefaults(),
		inflight: make(map[string]struct{}),
	}
}

func (a *Access) Definition() *schema.Definition { return a.def }

// List serves a fresh cached result when available; otherwise it fetches from
// the transport, retrying unavailable failures with backoff. Only the newest
// in-flight fetch may update the cache: a response for a superseded request
// is returned to its caller but not applied.
func (a *Access) List(ctx context.Context) ([]schema.Record, error) {
	key := Key(a.def.Name(), "list", "")
	if v, ok := a.cache.Fresh(key); ok {
		return v.([]schema.Record), nil
	}

	gen := atomic.AddUint64(&a.listGen, 1)

	var recs []schema.Record
	var err error
	for attempt := 0; ; attempt++ {
		recs, err = a.def.Transport().List(ctx)
		if err == nil {
			break
		}
		if !retryable(err) || attempt >= a.opts.RetryMax {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.opts.RetryBackoff * time.Duration(attempt+1)):
		}
	}

	if atomic.LoadUint64(&a.listGen) == gen {
		a.cache.Put(key, recs)
	}
	return recs, nil
}

// Create validates the payload against the form schema and the cross-field
// rules before dispatch — nothing untyped crosses the mutation boundary: keys
// outside the form schema and readonly fields reject, they are never passed
// through. A transport failure rejects without retry.
func (a *Access) Create(ctx context.Context, payload schema.Record) (schema.Record, error) {
	errs := a.strayViolations(a.def.FormSchema(), payload)
	errs = append(errs, a.readonlyViolations(payload)...)
	errs = append(errs, a.def.ValidateCandidate(a.def.FormSchema(), schema.ContextForm, payload)...)
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	rec, err := a.def.Transport().Create(ctx, payload)
	if err != nil {
		return nil, err
	}
	a.cache.Invalidate(Key(a.def.Name(), "list", ""))
	return rec, nil
}

// Update validates the partial payload against the update schema (every field
// optional) before dispatch. Readonly fields and unknown keys may not be
// written through here.
func (a *Access) Update(ctx context.Context, id string, payload schema.Record) (schema.Record, error) {
	errs := a.strayViolations(a.def.UpdateSchema(), payload)
	errs = append(errs, a.readonlyViolations(payload)...)
	errs = append(errs, a.def.UpdateSchema().Validate(payload)...)
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	release, err := a.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := a.def.Transport().Update(ctx, id, payload)
	if err != nil {
		return nil, err
	}
	a.cache.Invalidate(Key(a.def.Name(), "list", ""))
	return rec, nil
}

func (a *Access) Delete(ctx context.Context, id string) error {
	release, err := a.acquire(id)
	if err != nil {
		return err
	}
	defer release()

	if err := a.def.Transport().Delete(ctx, id); err != nil {
		return err
	}
	a.cache.Invalidate(Key(a.def.Name(), "list", ""))
	return nil
}

// strayViolations rejects payload keys outside the target schema. Readonly
// fields are left to readonlyViolations so they report with the sharper code.
func (a *Access) strayViolations(s *schema.Schema, payload schema.Record) []schema.FieldError {
	var errs []schema.FieldError
	for key := range payload {
		if s.Field(key) != nil {
			continue
		}
		if f := a.def.Field(key); f != nil && f.Readonly() {
			continue
		}
		errs = append(errs, schema.FieldError{
			Code:    schema.CodeUnknownField,
			Field:   key,
			Message: "Field '" + key + "' is not part of the schema",
		})
	}
	return errs
}

func (a *Access) readonlyViolations(payload schema.Record) []schema.FieldError {
	var errs []schema.FieldError
	for key := range payload {
		if f := a.def.Field(key); f != nil && f.Readonly() {
			errs = append(errs, schema.FieldError{
				Code:    schema.CodeReadOnly,
				Field:   key,
				Message: "Field '" + key + "' is read-only",
			})
		}
	}
	return errs
}

// acquire tracks the in-flight mutation for a record id. Under
// RejectOnConflict an overlapping mutation fails instead of racing.
func (a *Access) acquire(id string) (func(), error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, busy := a.inflight[id]; busy && a.opts.Conflict == RejectOnConflict {
		return nil, ErrMutationInFlight
	}
	a.inflight[id] = struct{}{}
	return func() {
		a.mu.Lock()
		delete(a.inflight, id)
		a.mu.Unlock()
	}, nil
}

// retryable: only transport-unavailable failures (or unclassified errors, which
// are assumed transient) are retried; not-found and rejected are final.
func retryable(err error) bool {
	kind, ok := schema.KindOf(err)
	if !ok {
		return true
	}
	return kind == schema.ErrorUnavailable
}
