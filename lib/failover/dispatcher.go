package failover

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dConf/lib/health"
	"github.com/ValentinKolb/dConf/lib/lazy"
	"github.com/ValentinKolb/dConf/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/multierr"
)

var log = logger.GetLogger("failover")

// Op is one remote call, executed against whichever endpoint the dispatcher picks.
type Op[T any] func(ctx context.Context, s store.IStore) (T, error)

// Dispatcher runs operations against a fixed pool of endpoints with bounded retries.
// It implements store.IStore itself, so callers need not know about the pool.
type Dispatcher struct {
	tracker *health.Tracker
	clients []*lazy.Value[store.IStore]
	closed  atomic.Bool

	set      *metrics.Set
	instance string
	ops      *xsync.MapOf[string, *opMetrics]

	healthOpts []health.Option
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithHealthOptions passes options to the health tracker of the dispatcher.
func WithHealthOptions(opts ...health.Option) Option {
	return func(d *Dispatcher) {
		d.healthOpts = append(d.healthOpts, opts...)
	}
}

// WithMetricsSet records the dispatcher metrics in set instead of a private set.
func WithMetricsSet(set *metrics.Set) Option {
	return func(d *Dispatcher) {
		d.set = set
	}
}

// WithInstance sets the instance label of all exported metrics.
func WithInstance(instance string) Option {
	return func(d *Dispatcher) {
		d.instance = instance
	}
}

// New creates a dispatcher for the given endpoints. Store clients are opened lazily
// through factory, on the first operation that picks the endpoint.
func New(endpoints []string, policy health.Policy, factory store.Factory, opts ...Option) (*Dispatcher, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: store factory is nil", ErrInvalidConfig)
	}

	d := &Dispatcher{
		ops:      xsync.NewMapOf[string, *opMetrics](),
		instance: "default",
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.set == nil {
		d.set = metrics.NewSet()
	}

	tracker, err := health.NewTracker(endpoints, policy, d.healthOpts...)
	if err != nil {
		return nil, err
	}
	d.tracker = tracker

	d.clients = make([]*lazy.Value[store.IStore], tracker.Len())
	for _, ep := range tracker.Endpoints() {
		addr := ep.Name()
		d.clients[ep.Index()] = lazy.New(func(ctx context.Context) (store.IStore, error) {
			log.Debugf("opening store client for %s", addr)
			s, err := factory(ctx, addr)
			if err != nil {
				return nil, err
			}
			// Close may have run while the client was opening, nothing would release it later
			if d.closed.Load() {
				_ = s.Close()
				return nil, ErrClosed
			}
			return s, nil
		})
	}
	d.registerGauges()
	return d, nil
}

// Tracker returns the health tracker of the pool.
func (d *Dispatcher) Tracker() *health.Tracker { return d.tracker }

// Metrics returns the metrics set the dispatcher writes to.
func (d *Dispatcher) Metrics() *metrics.Set { return d.set }

// Do runs fn with at most Policy.MaxRetries attempts, one endpoint per attempt.
//
// Each attempt uses the first available endpoint in configured order. If no endpoint is
// available, the attempt uses the next endpoint of a shuffled copy of the pool (created
// once per call and cycled). The first success is returned immediately. When every attempt
// failed an *ExhaustedError wrapping the last failure is returned.
//
// Errors the store marks as permanent (see store.IsPermanent) are returned without retry,
// the endpoint answered and is recorded as healthy. A canceled ctx ends the loop with
// ctx.Err() and does not count against the endpoint.
func Do[T any](ctx context.Context, d *Dispatcher, op string, fn Op[T]) (T, error) {
	var zero T
	if d.closed.Load() {
		return zero, ErrClosed
	}

	m := d.opMetrics(op)
	m.calls.Inc()
	defer m.duration.UpdateDuration(time.Now())

	var (
		maxRetries = d.tracker.Policy().MaxRetries
		fallback   []*health.Endpoint
		next       int
		last       error
	)
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		ep, ok := d.tracker.Preferred()
		if !ok {
			if fallback == nil {
				fallback = d.tracker.FallbackOrder()
				log.Debugf("%s: no endpoint available, falling back to all %d endpoints", op, len(fallback))
			}
			ep = fallback[next%len(fallback)]
			next++
		}

		m.attempts.Inc()
		result, err := attemptOn(ctx, d, ep, fn)
		if err == nil {
			d.tracker.RecordSuccess(ep)
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if errors.Is(err, ErrClosed) {
			return zero, ErrClosed
		}
		if store.IsPermanent(err) {
			d.tracker.RecordSuccess(ep)
			m.rejected.Inc()
			return zero, err
		}

		d.tracker.RecordFailure(ep)
		m.failures.Inc()
		last = err
		log.Debugf("%s: attempt %d/%d on %s failed: %v", op, attempt, maxRetries, ep, err)
	}

	m.exhausted.Inc()
	log.Warningf("%s: giving up after %d attempts: %v", op, maxRetries, last)
	return zero, &ExhaustedError{Op: op, Attempts: maxRetries, Last: last}
}

// attemptOn opens the client of ep if needed and runs fn against it
func attemptOn[T any](ctx context.Context, d *Dispatcher, ep *health.Endpoint, fn Op[T]) (T, error) {
	client, err := d.clients[ep.Index()].Get(ctx)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("open %s: %w", ep, err)
	}
	return fn(ctx, client)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

type getResult struct {
	value string
	found bool
}

func (d *Dispatcher) Get(ctx context.Context, key string) (string, bool, error) {
	res, err := Do(ctx, d, "get", func(ctx context.Context, s store.IStore) (getResult, error) {
		value, found, err := s.Get(ctx, key)
		return getResult{value: value, found: found}, err
	})
	return res.value, res.found, err
}

func (d *Dispatcher) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := Do(ctx, d, "set", func(ctx context.Context, s store.IStore) (struct{}, error) {
		return struct{}{}, s.Set(ctx, key, value, ttl)
	})
	return err
}

func (d *Dispatcher) Delete(ctx context.Context, key string) error {
	_, err := Do(ctx, d, "delete", func(ctx context.Context, s store.IStore) (struct{}, error) {
		return struct{}{}, s.Delete(ctx, key)
	})
	return err
}

func (d *Dispatcher) ListChildren(ctx context.Context, prefix string) ([]store.Node, error) {
	return Do(ctx, d, "list", func(ctx context.Context, s store.IStore) ([]store.Node, error) {
		return s.ListChildren(ctx, prefix)
	})
}

// Close closes every store client that was opened. Further operations fail with ErrClosed.
func (d *Dispatcher) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	var err error
	for i, client := range d.clients {
		if s, ok := client.Reset(); ok {
			if cerr := s.Close(); cerr != nil {
				err = multierr.Append(err, fmt.Errorf("close %s: %w", d.tracker.Endpoints()[i], cerr))
			}
		}
	}
	return err
}

var _ store.IStore = (*Dispatcher)(nil)
