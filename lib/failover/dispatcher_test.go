package failover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dConf/lib/health"
	"github.com/ValentinKolb/dConf/lib/store"
	"github.com/ValentinKolb/dConf/lib/store/memstore"
	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNetwork = errors.New("connection refused")

// flakyStore wraps a memstore and fails on demand. All flaky stores of a pool share one
// memstore, so the pool behaves like a replicated cluster.
type flakyStore struct {
	store.IStore
	name   string
	calls  atomic.Int64
	fail   atomic.Bool
	closed atomic.Bool
	err    error
}

func (f *flakyStore) check() error {
	f.calls.Add(1)
	if f.fail.Load() {
		if f.err != nil {
			return f.err
		}
		return fmt.Errorf("%s: %w", f.name, errNetwork)
	}
	return nil
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := f.check(); err != nil {
		return "", false, err
	}
	return f.IStore.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.IStore.Set(ctx, key, value, ttl)
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.IStore.Delete(ctx, key)
}

func (f *flakyStore) ListChildren(ctx context.Context, prefix string) ([]store.Node, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return f.IStore.ListChildren(ctx, prefix)
}

func (f *flakyStore) Close() error {
	f.closed.Store(true)
	return nil
}

// pool is a set of flaky endpoints sharing one backend
type pool struct {
	backend *memstore.Store
	stores  map[string]*flakyStore
	opens   atomic.Int64
}

func newPool(names ...string) *pool {
	p := &pool{backend: memstore.NewStore(), stores: map[string]*flakyStore{}}
	for _, n := range names {
		p.stores[n] = &flakyStore{IStore: p.backend, name: n}
	}
	return p
}

func (p *pool) factory(ctx context.Context, endpoint string) (store.IStore, error) {
	p.opens.Add(1)
	s, ok := p.stores[endpoint]
	if !ok {
		return nil, fmt.Errorf("unknown endpoint %s", endpoint)
	}
	return s, nil
}

func (p *pool) totalCalls() int64 {
	var n int64
	for _, s := range p.stores {
		n += s.calls.Load()
	}
	return n
}

func newDispatcher(t *testing.T, p *pool, opts ...Option) *Dispatcher {
	t.Helper()
	d, err := New([]string{"A", "B", "C"}, health.DefaultPolicy(), p.factory, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestNewValidation(t *testing.T) {
	p := newPool("A")
	_, err := New([]string{"A"}, health.DefaultPolicy(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(nil, health.DefaultPolicy(), p.factory)
	assert.ErrorIs(t, err, health.ErrInvalidConfig)

	_, err = New([]string{"A"}, health.Policy{MaxRetries: 0, FailWindow: time.Second}, p.factory)
	assert.ErrorIs(t, err, health.ErrInvalidConfig)
}

func TestHealthyPoolUsesFirstEndpoint(t *testing.T) {
	ctx := context.Background()
	p := newPool("A", "B", "C")
	d := newDispatcher(t, p)

	require.NoError(t, d.Set(ctx, "/app/port", "8080", 0))
	v, found, err := d.Get(ctx, "/app/port")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "8080", v)

	assert.Equal(t, int64(2), p.stores["A"].calls.Load())
	assert.Zero(t, p.stores["B"].calls.Load())
	assert.Zero(t, p.stores["C"].calls.Load())
	assert.Equal(t, int64(1), p.opens.Load(), "clients are opened lazily")
}

// TestUnavailableEndpointIsSkipped: A fails 4 times in 5 seconds and is disabled, the next
// operation is served by B or C without touching A.
func TestUnavailableEndpointIsSkipped(t *testing.T) {
	ctx := context.Background()
	p := newPool("A", "B", "C")
	d := newDispatcher(t, p)
	a := d.Tracker().Endpoints()[0]

	for i := 0; i < 4; i++ {
		d.Tracker().RecordFailure(a)
	}
	require.False(t, d.Tracker().IsAvailable(a))

	_, _, err := d.Get(ctx, "/k")
	require.NoError(t, err)
	assert.Zero(t, p.stores["A"].calls.Load())
	assert.Equal(t, int64(1), p.stores["B"].calls.Load()+p.stores["C"].calls.Load())
}

// TestStopsAtFirstSuccess checks that a failing preferred endpoint is retried until it is
// disabled, then the next one answers and no further retries happen.
func TestStopsAtFirstSuccess(t *testing.T) {
	ctx := context.Background()
	p := newPool("A", "B", "C")
	p.stores["A"].fail.Store(true)
	d := newDispatcher(t, p)

	_, err := d.ListChildren(ctx, "/")
	require.NoError(t, err)

	policy := health.DefaultPolicy()
	assert.Equal(t, int64(policy.MaxFailsToDisable+1), p.stores["A"].calls.Load())
	assert.Equal(t, int64(1), p.stores["B"].calls.Load())
	assert.Zero(t, p.stores["C"].calls.Load())
	assert.LessOrEqual(t, p.totalCalls(), int64(policy.MaxRetries))
}

// TestExhaustion: all endpoints unavailable, the dispatcher falls back to the shuffled pool
// and gives up after MaxRetries attempts.
func TestExhaustion(t *testing.T) {
	ctx := context.Background()
	p := newPool("A", "B", "C")
	for _, s := range p.stores {
		s.fail.Store(true)
	}
	d := newDispatcher(t, p)
	for _, ep := range d.Tracker().Endpoints() {
		for i := 0; i < 4; i++ {
			d.Tracker().RecordFailure(ep)
		}
	}
	_, ok := d.Tracker().Preferred()
	require.False(t, ok)

	err := d.Set(ctx, "/k", "v", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.True(t, errors.Is(err, errNetwork), "last cause is wrapped")

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, "set", exhausted.Op)
	assert.Equal(t, 10, exhausted.Attempts)
	assert.Equal(t, int64(10), p.totalCalls())

	// 10 attempts cycled over a pool of 3: every endpoint is hit 3 or 4 times
	for name, s := range p.stores {
		n := s.calls.Load()
		assert.True(t, n == 3 || n == 4, "endpoint %s called %d times", name, n)
	}
}

func TestFallbackUsesShuffledOrder(t *testing.T) {
	ctx := context.Background()
	p := newPool("A", "B", "C")
	reverse := func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	d := newDispatcher(t, p, WithHealthOptions(health.WithShuffle(reverse)))
	for _, ep := range d.Tracker().Endpoints() {
		for i := 0; i < 4; i++ {
			d.Tracker().RecordFailure(ep)
		}
	}

	_, _, err := d.Get(ctx, "/k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.stores["C"].calls.Load(), "first fallback endpoint is C")
	assert.Zero(t, p.stores["A"].calls.Load())

	// the success rehabilitates C, which is now preferred
	pref, ok := d.Tracker().Preferred()
	require.True(t, ok)
	assert.Equal(t, "C", pref.Name())
}

func TestRetryBudgetIsNeverExceeded(t *testing.T) {
	ctx := context.Background()
	for _, retries := range []int{1, 2, 5, 13} {
		t.Run(fmt.Sprintf("retries=%d", retries), func(t *testing.T) {
			p := newPool("A", "B", "C")
			for _, s := range p.stores {
				s.fail.Store(true)
			}
			policy := health.DefaultPolicy()
			policy.MaxRetries = retries
			d, err := New([]string{"A", "B", "C"}, policy, p.factory)
			require.NoError(t, err)
			defer d.Close()

			_, _, err = d.Get(ctx, "/k")
			assert.ErrorIs(t, err, ErrExhausted)
			assert.Equal(t, int64(retries), p.totalCalls())
		})
	}
}

func TestPermanentErrorIsNotRetried(t *testing.T) {
	ctx := context.Background()
	p := newPool("A", "B", "C")
	d := newDispatcher(t, p)

	err := d.Set(ctx, "", "v", 0)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, store.RetCInvalidOperation, store.CodeOf(err))
	assert.Equal(t, int64(0), d.Tracker().Endpoints()[0].FailCount())
	assert.Zero(t, p.stores["B"].calls.Load())
}

func TestCanceledContext(t *testing.T) {
	p := newPool("A", "B", "C")
	d := newDispatcher(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := d.Get(ctx, "/k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.totalCalls())

	// cancellation during an attempt does not penalise the endpoint
	ctx, cancel = context.WithCancel(context.Background())
	_, err = Do(ctx, d, "custom", func(ctx context.Context, s store.IStore) (int, error) {
		cancel()
		return 0, errNetwork
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, d.Tracker().Endpoints()[0].FailCount())
}

func TestOpenFailureCountsAsAttempt(t *testing.T) {
	ctx := context.Background()
	p := newPool("A", "B", "C")
	var failOpen atomic.Bool
	failOpen.Store(true)
	factory := func(ctx context.Context, endpoint string) (store.IStore, error) {
		if endpoint == "A" && failOpen.Load() {
			return nil, errNetwork
		}
		return p.factory(ctx, endpoint)
	}
	d, err := New([]string{"A", "B", "C"}, health.DefaultPolicy(), factory)
	require.NoError(t, err)
	defer d.Close()

	_, _, err = d.Get(ctx, "/k")
	require.NoError(t, err)
	assert.Equal(t, int64(4), d.Tracker().Endpoints()[0].FailCount())

	// the failed open was not cached
	failOpen.Store(false)
	d.Tracker().RecordSuccess(d.Tracker().Endpoints()[0])
	_, _, err = d.Get(ctx, "/k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.stores["A"].calls.Load())
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	p := newPool("A", "B", "C")
	d, err := New([]string{"A", "B", "C"}, health.DefaultPolicy(), p.factory)
	require.NoError(t, err)

	_, _, err = d.Get(ctx, "/k")
	require.NoError(t, err)
	require.NoError(t, d.Close())
	assert.True(t, p.stores["A"].closed.Load())
	assert.False(t, p.stores["B"].closed.Load(), "unopened clients are not closed")

	_, _, err = d.Get(ctx, "/k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, d.Close())
}

func TestCloseDuringOpenReleasesClient(t *testing.T) {
	p := newPool("A")
	entered := make(chan struct{})
	release := make(chan struct{})
	factory := func(ctx context.Context, endpoint string) (store.IStore, error) {
		close(entered)
		<-release
		return p.factory(ctx, endpoint)
	}
	d, err := New([]string{"A"}, health.DefaultPolicy(), factory)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, _, err := d.Get(context.Background(), "/k")
		done <- err
	}()

	<-entered
	require.NoError(t, d.Close())
	close(release)

	assert.ErrorIs(t, <-done, ErrClosed)
	assert.True(t, p.stores["A"].closed.Load(), "client opened after Close is released")
	assert.Equal(t, int64(1), p.opens.Load(), "a closed dispatcher does not retry")
	_, ok := d.clients[0].Peek()
	assert.False(t, ok)
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	p := newPool("A", "B", "C")
	set := metrics.NewSet()
	d := newDispatcher(t, p, WithMetricsSet(set), WithInstance("test"))

	_, _, _ = d.Get(ctx, "/k")
	p.stores["A"].fail.Store(true)
	_, _, _ = d.Get(ctx, "/k")

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	out := buf.String()
	assert.Contains(t, out, `dconf_failover_calls_total{op="get",instance="test"} 2`)
	assert.Contains(t, out, `dconf_failover_attempt_failures_total{op="get",instance="test"} 4`)
	assert.Contains(t, out, `dconf_failover_available_endpoints{instance="test"} 2`)
}

func TestConcurrentOperations(t *testing.T) {
	ctx := context.Background()
	p := newPool("A", "B", "C")
	d := newDispatcher(t, p)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if i == 25 {
					p.stores["A"].fail.Store(w%2 == 0)
				}
				key := fmt.Sprintf("/w%d/k%d", w, i)
				assert.NoError(t, d.Set(ctx, key, "v", 0))
			}
		}(w)
	}
	wg.Wait()

	nodes, err := p.backend.ListChildren(ctx, "/")
	require.NoError(t, err)
	assert.Len(t, nodes, 8)
}
