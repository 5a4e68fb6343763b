package health

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
)

var log = logger.GetLogger("health")

// --------------------------------------------------------------------------
// Endpoint
// --------------------------------------------------------------------------

// Endpoint is the health record of one store address. Endpoints are created by
// NewTracker and live as long as the tracker; the pool never changes.
type Endpoint struct {
	name  string
	index int

	failCount  atomic.Int64
	lastFailed atomic.Int64 // unix nanos of the last failure, 0 = never failed
	available  atomic.Bool

	// mu guards the read-modify-write in RecordFailure, it is never held across I/O
	mu sync.Mutex

	successes metrics.Counter
	failures  metrics.Counter
	disables  metrics.Counter
	streaks   metrics.Histogram // failure count at the moment an endpoint recovers
}

// Name returns the configured address of the endpoint.
func (e *Endpoint) Name() string { return e.name }

// Index returns the position of the endpoint in the configured order.
func (e *Endpoint) Index() int { return e.index }

// FailCount returns the current number of in-window failures.
func (e *Endpoint) FailCount() int64 { return e.failCount.Load() }

// LastFailure returns the time of the last failure (zero if the endpoint never failed).
func (e *Endpoint) LastFailure() time.Time {
	ns := e.lastFailed.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (e *Endpoint) String() string { return e.name }

// --------------------------------------------------------------------------
// Tracker
// --------------------------------------------------------------------------

// Tracker records the outcome of every attempt against an endpoint and decides
// which endpoints are preferred right now. All methods are safe for concurrent use.
type Tracker struct {
	policy    Policy
	endpoints []*Endpoint
	now       func() time.Time
	registry  metrics.Registry
	shuffle   func(n int, swap func(i, j int))
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock replaces the time source (used in tests to move through fail windows without sleeping).
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithRegistry registers the per-endpoint counters in the given go-metrics registry
// instead of a private one.
func WithRegistry(r metrics.Registry) Option {
	return func(t *Tracker) {
		t.registry = r
	}
}

// WithShuffle replaces the shuffle function used by FallbackOrder.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(t *Tracker) {
		t.shuffle = shuffle
	}
}

// NewTracker creates a tracker for a fixed, ordered pool of endpoint addresses.
// All endpoints start available.
func NewTracker(names []string, policy Policy, opts ...Option) (*Tracker, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: at least one endpoint is required", ErrInvalidConfig)
	}

	t := &Tracker{
		policy:  policy,
		now:     time.Now,
		shuffle: rand.Shuffle,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.registry == nil {
		t.registry = metrics.NewRegistry()
	}

	seen := make(map[string]struct{}, len(names))
	t.endpoints = make([]*Endpoint, 0, len(names))
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("%w: endpoint %d is empty", ErrInvalidConfig, i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate endpoint %q", ErrInvalidConfig, name)
		}
		seen[name] = struct{}{}

		ep := &Endpoint{
			name:      name,
			index:     i,
			successes: metrics.GetOrRegisterCounter(name+".successes", t.registry),
			failures:  metrics.GetOrRegisterCounter(name+".failures", t.registry),
			disables:  metrics.GetOrRegisterCounter(name+".disables", t.registry),
			streaks: metrics.GetOrRegisterHistogram(name+".fail_streak", t.registry,
				metrics.NewUniformSample(128)),
		}
		ep.available.Store(true)
		t.endpoints = append(t.endpoints, ep)
	}
	return t, nil
}

// Policy returns the policy of the tracker.
func (t *Tracker) Policy() Policy { return t.policy }

// Endpoints returns all endpoints in configured order.
func (t *Tracker) Endpoints() []*Endpoint {
	return append([]*Endpoint(nil), t.endpoints...)
}

// Len returns the size of the pool.
func (t *Tracker) Len() int { return len(t.endpoints) }

// RecordSuccess resets the failure count of ep and marks it available.
func (t *Tracker) RecordSuccess(ep *Endpoint) {
	ep.successes.Inc(1)
	if n := ep.failCount.Swap(0); n > 0 {
		ep.streaks.Update(n)
	}
	if !ep.available.Swap(true) {
		log.Infof("endpoint %s recovered", ep.name)
	}
}

// RecordFailure records a failed attempt against ep. Failures only accumulate while
// each one lies inside the fail window of the previous one; once the count exceeds
// MaxFailsToDisable inside the window the endpoint is marked unavailable.
func (t *Tracker) RecordFailure(ep *Endpoint) {
	ep.failures.Inc(1)
	now := t.now()

	ep.mu.Lock()
	defer ep.mu.Unlock()

	last := ep.lastFailed.Load()
	inWindow := last != 0 && now.Sub(time.Unix(0, last)) < t.policy.FailWindow
	if !inWindow {
		ep.failCount.Store(0)
	}
	count := ep.failCount.Add(1)
	disable := count > int64(t.policy.MaxFailsToDisable) && inWindow
	wasAvailable := ep.available.Swap(!disable)
	ep.lastFailed.Store(now.UnixNano())

	if disable && wasAvailable {
		ep.disables.Inc(1)
		log.Warningf("endpoint %s disabled after %d failures within %s", ep.name, count, t.policy.FailWindow)
	}
}

// IsAvailable reports whether ep may be preferred. An unavailable endpoint becomes
// available again on its own once the fail window since its last failure has elapsed.
func (t *Tracker) IsAvailable(ep *Endpoint) bool {
	if ep.available.Load() {
		return true
	}
	last := ep.lastFailed.Load()
	return last == 0 || t.now().Sub(time.Unix(0, last)) >= t.policy.FailWindow
}

// Preferred returns the first available endpoint in configured order.
func (t *Tracker) Preferred() (*Endpoint, bool) {
	for _, ep := range t.endpoints {
		if t.IsAvailable(ep) {
			return ep, true
		}
	}
	return nil, false
}

// FallbackOrder returns a freshly shuffled copy of the whole pool.
func (t *Tracker) FallbackOrder() []*Endpoint {
	order := t.Endpoints()
	t.shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}

// --------------------------------------------------------------------------
// Status
// --------------------------------------------------------------------------

// EndpointStatus is a point-in-time view of one endpoint.
type EndpointStatus struct {
	Name        string    `json:"name"`
	Available   bool      `json:"available"`
	FailCount   int64     `json:"failCount"`
	LastFailure time.Time `json:"lastFailure,omitempty"`
	Successes   int64     `json:"successes"`
	Failures    int64     `json:"failures"`
	Disables    int64     `json:"disables"`
	MeanStreak  float64   `json:"meanFailStreak"`
}

// Status returns the state of all endpoints in configured order.
func (t *Tracker) Status() []EndpointStatus {
	result := make([]EndpointStatus, 0, len(t.endpoints))
	for _, ep := range t.endpoints {
		result = append(result, EndpointStatus{
			Name:        ep.name,
			Available:   t.IsAvailable(ep),
			FailCount:   ep.failCount.Load(),
			LastFailure: ep.LastFailure(),
			Successes:   ep.successes.Count(),
			Failures:    ep.failures.Count(),
			Disables:    ep.disables.Count(),
			MeanStreak:  ep.streaks.Mean(),
		})
	}
	return result
}
