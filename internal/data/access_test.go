package data

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facet/internal/schema"
)

// funcTransport lets each test shape the transport behavior with closures.
type funcTransport struct {
	list   func(ctx context.Context) ([]schema.Record, error)
	create func(ctx context.Context, payload schema.Record) (schema.Record, error)
	update func(ctx context.Context, id string, payload schema.Record) (schema.Record, error)
	del    func(ctx context.Context, id string) error
}

func (t *funcTransport) List(ctx context.Context) ([]schema.Record, error) {
	if t.list == nil {
		return nil, nil
	}
	return t.list(ctx)
}

func (t *funcTransport) Create(ctx context.Context, p schema.Record) (schema.Record, error) {
	if t.create == nil {
		return p, nil
	}
	return t.create(ctx, p)
}

func (t *funcTransport) Update(ctx context.Context, id string, p schema.Record) (schema.Record, error) {
	if t.update == nil {
		return p, nil
	}
	return t.update(ctx, id, p)
}

func (t *funcTransport) Delete(ctx context.Context, id string) error {
	if t.del == nil {
		return nil
	}
	return t.del(ctx, id)
}

func accessFor(t *testing.T, tr schema.Transport, opts Options) (*Access, *Cache) {
	t.Helper()
	def, err := schema.DefineEntity(schema.Config{
		Name:      "widgets",
		Transport: tr,
		Fields: []*schema.FieldBuilder{
			schema.DefineField("name", schema.String().Min(2)).
				Form(schema.FormOptions{Label: "Name"}),
			schema.DefineField("count", schema.Number().Optional()).
				Form(schema.FormOptions{Label: "Count"}),
			schema.DefineField("createdAt", schema.Date().Optional()).
				Query(schema.QueryOptions{Readonly: true}),
		},
		Cache: schema.CacheConfig{StaleTime: time.Minute},
	})
	require.NoError(t, err)
	cache := NewCache(def.Cache())
	t.Cleanup(cache.Close)
	return NewAccess(def, cache, opts), cache
}

func unavailable(op string) error {
	return &schema.TransportError{Kind: schema.ErrorUnavailable, Op: op, Err: errors.New("down")}
}

func TestListCachesResults(t *testing.T) {
	calls := 0
	tr := &funcTransport{list: func(context.Context) ([]schema.Record, error) {
		calls++
		return []schema.Record{{"name": "a"}}, nil
	}}
	a, _ := accessFor(t, tr, Options{})

	first, err := a.List(context.Background())
	require.NoError(t, err)
	second, err := a.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "a fresh cached list must not refetch")
}

func TestListRetriesUnavailable(t *testing.T) {
	calls := 0
	tr := &funcTransport{list: func(context.Context) ([]schema.Record, error) {
		calls++
		if calls < 3 {
			return nil, unavailable("list")
		}
		return []schema.Record{{"name": "a"}}, nil
	}}
	a, _ := accessFor(t, tr, Options{RetryMax: 3, RetryBackoff: time.Millisecond})

	recs, err := a.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 3, calls)
}

func TestListGivesUpAfterRetryMax(t *testing.T) {
	calls := 0
	tr := &funcTransport{list: func(context.Context) ([]schema.Record, error) {
		calls++
		return nil, unavailable("list")
	}}
	a, _ := accessFor(t, tr, Options{RetryMax: 2, RetryBackoff: time.Millisecond})

	_, err := a.List(context.Background())
	require.Error(t, err)
	kind, ok := schema.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, schema.ErrorUnavailable, kind)
	assert.Equal(t, 3, calls, "initial attempt plus RetryMax retries")
}

func TestListDoesNotRetryFinalErrors(t *testing.T) {
	calls := 0
	tr := &funcTransport{list: func(context.Context) ([]schema.Record, error) {
		calls++
		return nil, &schema.TransportError{Kind: schema.ErrorRejected, Op: "list", Err: errors.New("no")}
	}}
	a, _ := accessFor(t, tr, Options{RetryMax: 5, RetryBackoff: time.Millisecond})

	_, err := a.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestListLastRequestWins(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	calls := 0
	var mu sync.Mutex

	tr := &funcTransport{list: func(context.Context) ([]schema.Record, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(started)
			<-release
			return []schema.Record{{"name": "stale"}}, nil
		}
		return []schema.Record{{"name": "current"}}, nil
	}}
	a, _ := accessFor(t, tr, Options{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		recs, err := a.List(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "stale", recs[0]["name"], "the superseded caller still gets its response")
	}()

	<-started
	recs, err := a.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "current", recs[0]["name"])

	close(release)
	wg.Wait()

	// the slow response must not have overwritten the newer cached result
	recs, err = a.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "current", recs[0]["name"])
}

func TestCreateValidatesBeforeDispatch(t *testing.T) {
	calls := 0
	tr := &funcTransport{create: func(_ context.Context, p schema.Record) (schema.Record, error) {
		calls++
		return p, nil
	}}
	a, _ := accessFor(t, tr, Options{})

	_, err := a.Create(context.Background(), schema.Record{"name": "x"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "name", verr.Errors[0].Field)
	assert.Equal(t, 0, calls, "an invalid payload never reaches the transport")

	_, err = a.Create(context.Background(), schema.Record{"name": "ok"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCreateRejectsStrayKeys(t *testing.T) {
	var captured []schema.Record
	tr := &funcTransport{create: func(_ context.Context, p schema.Record) (schema.Record, error) {
		captured = append(captured, p)
		return p, nil
	}}
	a, _ := accessFor(t, tr, Options{})

	_, err := a.Create(context.Background(),
		schema.Record{"name": "ok", "createdAt": "not-a-date", "ghost": 123})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	codes := map[string]string{}
	for _, e := range verr.Errors {
		codes[e.Field] = e.Code
	}
	assert.Equal(t, schema.CodeReadOnly, codes["createdAt"],
		"readonly fields may not be written at create either")
	assert.Equal(t, schema.CodeUnknownField, codes["ghost"])
	assert.Empty(t, captured, "a payload with stray keys never reaches the transport")

	_, err = a.Create(context.Background(), schema.Record{"name": "ok"})
	require.NoError(t, err)
	require.Len(t, captured, 1)
	_, leaked := captured[0]["ghost"]
	assert.False(t, leaked)
}

func TestUpdateRejectsUnknownKeys(t *testing.T) {
	var captured []schema.Record
	tr := &funcTransport{update: func(_ context.Context, _ string, p schema.Record) (schema.Record, error) {
		captured = append(captured, p)
		return p, nil
	}}
	a, _ := accessFor(t, tr, Options{})

	_, err := a.Update(context.Background(), "1", schema.Record{"count": float64(2), "ghost": true})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, schema.CodeUnknownField, verr.Errors[0].Code)
	assert.Equal(t, "ghost", verr.Errors[0].Field)
	assert.Empty(t, captured)
}

func TestMutationsAreNeverRetried(t *testing.T) {
	calls := 0
	tr := &funcTransport{create: func(context.Context, schema.Record) (schema.Record, error) {
		calls++
		return nil, unavailable("create")
	}}
	a, _ := accessFor(t, tr, Options{RetryMax: 5, RetryBackoff: time.Millisecond})

	_, err := a.Create(context.Background(), schema.Record{"name": "ok"})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "a failed mutation surfaces immediately")
}

func TestCreateInvalidatesListCache(t *testing.T) {
	listCalls := 0
	tr := &funcTransport{list: func(context.Context) ([]schema.Record, error) {
		listCalls++
		return nil, nil
	}}
	a, _ := accessFor(t, tr, Options{})

	_, err := a.List(context.Background())
	require.NoError(t, err)
	_, err = a.Create(context.Background(), schema.Record{"name": "ok"})
	require.NoError(t, err)
	_, err = a.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, listCalls, "a successful create drops the cached list")
}

func TestUpdateRejectsReadonlyFields(t *testing.T) {
	a, _ := accessFor(t, &funcTransport{}, Options{})

	_, err := a.Update(context.Background(), "1", schema.Record{"createdAt": "2024-01-01"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, schema.CodeReadOnly, verr.Errors[0].Code)
}

func TestUpdateAcceptsPartialPayload(t *testing.T) {
	a, _ := accessFor(t, &funcTransport{}, Options{})

	_, err := a.Update(context.Background(), "1", schema.Record{"count": float64(2)})
	assert.NoError(t, err, "update demands no field, only checks what is present")

	_, err = a.Update(context.Background(), "1", schema.Record{"name": "x"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr, "present fields still run their checks")
}

func TestRejectOnConflict(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	tr := &funcTransport{update: func(_ context.Context, _ string, p schema.Record) (schema.Record, error) {
		close(entered)
		<-release
		return p, nil
	}}
	a, _ := accessFor(t, tr, Options{Conflict: RejectOnConflict})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := a.Update(context.Background(), "1", schema.Record{"count": float64(1)})
		assert.NoError(t, err)
	}()

	<-entered
	_, err := a.Update(context.Background(), "1", schema.Record{"count": float64(2)})
	require.ErrorIs(t, err, ErrMutationInFlight)

	err = a.Delete(context.Background(), "2")
	assert.NoError(t, err, "a different record is not blocked")

	close(release)
	wg.Wait()

	_, err = a.Update(context.Background(), "1", schema.Record{"count": float64(3)})
	assert.NoError(t, err, "the record frees up once the mutation lands")
}

func TestLastWriteWinsAllowsOverlap(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	first := true
	var mu sync.Mutex
	tr := &funcTransport{update: func(_ context.Context, _ string, p schema.Record) (schema.Record, error) {
		mu.Lock()
		wasFirst := first
		first = false
		mu.Unlock()
		if wasFirst {
			close(entered)
			<-release
		}
		return p, nil
	}}
	a, _ := accessFor(t, tr, Options{Conflict: LastWriteWins})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := a.Update(context.Background(), "1", schema.Record{"count": float64(1)})
		assert.NoError(t, err)
	}()

	<-entered
	_, err := a.Update(context.Background(), "1", schema.Record{"count": float64(2)})
	assert.NoError(t, err, "overlapping mutations both dispatch under last-write-wins")

	close(release)
	wg.Wait()
}
