// Package memstore is the in-memory transport: a mutex-guarded record store
// with ULID ids, version counters, and soft deletes. It backs the demo server
// and the view/data tests.
package memstore

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"facet/internal/schema"
)

type row struct {
	id        string
	version   int64
	createdAt time.Time
	updatedAt time.Time
	deleted   bool
	data      schema.Record
}

type Store struct {
	mu      sync.RWMutex
	rows    map[string]*row
	order   []string // insertion order, so List is deterministic
	entropy io.Reader
}

func New() *Store {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Store{
		rows:    make(map[string]*row),
		entropy: ulid.Monotonic(src, 0),
	}
}

func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) List(_ context.Context) ([]schema.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schema.Record, 0, len(s.order))
	for _, id := range s.order {
		r := s.rows[id]
		if r == nil || r.deleted {
			continue
		}
		out = append(out, flatten(r))
	}
	return out, nil
}

func (s *Store) Create(_ context.Context, payload schema.Record) (schema.Record, error) {
	data := make(schema.Record, len(payload))
	for k, v := range payload {
		data[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	r := &row{
		id:        s.newID(),
		version:   1,
		createdAt: now,
		updatedAt: now,
		data:      data,
	}
	s.rows[r.id] = r
	s.order = append(s.order, r.id)
	return flatten(r), nil
}

func (s *Store) Update(_ context.Context, id string, payload schema.Record) (schema.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.rows[id]
	if r == nil || r.deleted {
		return nil, notFound("update", id)
	}
	merged := make(schema.Record, len(r.data)+len(payload))
	for k, v := range r.data {
		merged[k] = v
	}
	for k, v := range payload {
		merged[k] = v
	}
	r.data = merged
	r.version++
	r.updatedAt = time.Now().UTC()
	return flatten(r), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.rows[id]
	if r == nil || r.deleted {
		return notFound("delete", id)
	}
	r.deleted = true
	r.updatedAt = time.Now().UTC()
	return nil
}

func notFound(op, id string) error {
	return &schema.TransportError{
		Kind: schema.ErrorNotFound,
		Op:   op,
		Err:  fmt.Errorf("record %s not found", id),
	}
}

// flatten exposes the system envelope next to the field values. A user field
// clashing with a system key keeps a "data." prefix instead of being
// overwritten.
func flatten(r *row) schema.Record {
	out := schema.Record{
		"id":         r.id,
		"version":    r.version,
		"created_at": r.createdAt.Format(time.RFC3339),
		"updated_at": r.updatedAt.Format(time.RFC3339),
	}
	for k, v := range r.data {
		if _, clash := out[k]; clash {
			out["data."+k] = v
			continue
		}
		out[k] = v
	}
	return out
}
