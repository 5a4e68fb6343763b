package health

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock is a manually advanced time source
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestTracker(t *testing.T, clock *testClock, names ...string) *Tracker {
	t.Helper()
	tr, err := NewTracker(names, DefaultPolicy(), WithClock(clock.Now))
	require.NoError(t, err)
	return tr
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	tests := []struct {
		name   string
		policy Policy
	}{
		{"zero retries", Policy{MaxRetries: 0, MaxFailsToDisable: 3, FailWindow: time.Second}},
		{"negative fails", Policy{MaxRetries: 1, MaxFailsToDisable: -1, FailWindow: time.Second}},
		{"zero window", Policy{MaxRetries: 1, MaxFailsToDisable: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestNewTrackerRejectsBadPools(t *testing.T) {
	_, err := NewTracker(nil, DefaultPolicy())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewTracker([]string{"a", "a"}, DefaultPolicy())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewTracker([]string{"a", ""}, DefaultPolicy())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewTracker([]string{"a"}, Policy{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// TestDisableAfterThreshold: A fails 4 times in 5 seconds with max-fails-to-disable=3
func TestDisableAfterThreshold(t *testing.T) {
	clock := newTestClock()
	tr := newTestTracker(t, clock, "A", "B", "C")
	a := tr.Endpoints()[0]

	for i := 0; i < 3; i++ {
		tr.RecordFailure(a)
		assert.True(t, tr.IsAvailable(a), "failure %d must not disable", i+1)
		clock.Advance(time.Second)
	}
	tr.RecordFailure(a)
	assert.False(t, tr.IsAvailable(a))
	assert.Equal(t, int64(4), a.FailCount())

	pref, ok := tr.Preferred()
	require.True(t, ok)
	assert.Equal(t, "B", pref.Name())
}

func TestSelfHealingAfterWindow(t *testing.T) {
	clock := newTestClock()
	tr := newTestTracker(t, clock, "A")
	a := tr.Endpoints()[0]

	for i := 0; i < 4; i++ {
		tr.RecordFailure(a)
	}
	require.False(t, tr.IsAvailable(a))

	clock.Advance(DefaultFailWindow - time.Nanosecond)
	assert.False(t, tr.IsAvailable(a), "still disabled inside the window")

	clock.Advance(time.Nanosecond)
	assert.True(t, tr.IsAvailable(a), "window elapsed without further failures")

	// IsAvailable has no side effects, the failure count is kept
	assert.Equal(t, int64(4), a.FailCount())
}

func TestFailuresOutsideWindowDoNotAccumulate(t *testing.T) {
	clock := newTestClock()
	tr := newTestTracker(t, clock, "A")
	a := tr.Endpoints()[0]

	for i := 0; i < 10; i++ {
		tr.RecordFailure(a)
		assert.True(t, tr.IsAvailable(a))
		assert.Equal(t, int64(1), a.FailCount())
		clock.Advance(DefaultFailWindow)
	}
}

func TestFailureAfterRehabilitationStartsOver(t *testing.T) {
	clock := newTestClock()
	tr := newTestTracker(t, clock, "A")
	a := tr.Endpoints()[0]

	for i := 0; i < 4; i++ {
		tr.RecordFailure(a)
	}
	clock.Advance(DefaultFailWindow)
	tr.RecordFailure(a)
	assert.True(t, tr.IsAvailable(a))
	assert.Equal(t, int64(1), a.FailCount())
}

func TestRecordSuccessResets(t *testing.T) {
	clock := newTestClock()
	tr := newTestTracker(t, clock, "A")
	a := tr.Endpoints()[0]

	for i := 0; i < 5; i++ {
		tr.RecordFailure(a)
	}
	require.False(t, tr.IsAvailable(a))

	tr.RecordSuccess(a)
	assert.True(t, tr.IsAvailable(a))
	assert.Equal(t, int64(0), a.FailCount())

	st := tr.Status()[0]
	assert.Equal(t, int64(1), st.Successes)
	assert.Equal(t, int64(5), st.Failures)
	assert.Equal(t, int64(1), st.Disables)
	assert.Equal(t, 5.0, st.MeanStreak)
}

func TestPreferredUsesConfiguredOrder(t *testing.T) {
	clock := newTestClock()
	tr := newTestTracker(t, clock, "A", "B", "C")
	eps := tr.Endpoints()

	pref, ok := tr.Preferred()
	require.True(t, ok)
	assert.Equal(t, "A", pref.Name())

	for _, ep := range eps[:2] {
		for i := 0; i < 4; i++ {
			tr.RecordFailure(ep)
		}
	}
	pref, ok = tr.Preferred()
	require.True(t, ok)
	assert.Equal(t, "C", pref.Name())

	for i := 0; i < 4; i++ {
		tr.RecordFailure(eps[2])
	}
	_, ok = tr.Preferred()
	assert.False(t, ok)
}

func TestFallbackOrderIsFreshPermutation(t *testing.T) {
	clock := newTestClock()
	calls := 0
	reverse := func(n int, swap func(i, j int)) {
		calls++
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	tr, err := NewTracker([]string{"A", "B", "C"}, DefaultPolicy(), WithClock(clock.Now), WithShuffle(reverse))
	require.NoError(t, err)

	order := tr.FallbackOrder()
	names := make([]string, len(order))
	for i, ep := range order {
		names[i] = ep.Name()
	}
	assert.Equal(t, []string{"C", "B", "A"}, names)

	// the configured order is untouched
	assert.Equal(t, "A", tr.Endpoints()[0].Name())
	tr.FallbackOrder()
	assert.Equal(t, 2, calls)
}

func TestFallbackOrderContainsAllEndpoints(t *testing.T) {
	tr := newTestTracker(t, newTestClock(), "A", "B", "C", "D")
	for i := 0; i < 20; i++ {
		seen := map[string]bool{}
		for _, ep := range tr.FallbackOrder() {
			seen[ep.Name()] = true
		}
		assert.Len(t, seen, 4)
	}
}

func TestSharedRegistry(t *testing.T) {
	reg := metrics.NewRegistry()
	tr, err := NewTracker([]string{"A"}, DefaultPolicy(), WithRegistry(reg))
	require.NoError(t, err)
	tr.RecordFailure(tr.Endpoints()[0])

	c, ok := reg.Get("A.failures").(metrics.Counter)
	require.True(t, ok)
	assert.Equal(t, int64(1), c.Count())
}

// TestConcurrentRecording runs with -race in CI
func TestConcurrentRecording(t *testing.T) {
	tr := newTestTracker(t, newTestClock(), "A", "B")
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				ep := tr.Endpoints()[i%2]
				if (i+w)%3 == 0 {
					tr.RecordSuccess(ep)
				} else {
					tr.RecordFailure(ep)
				}
				tr.IsAvailable(ep)
				tr.Preferred()
			}
		}(w)
	}
	wg.Wait()

	var total int64
	for _, st := range tr.Status() {
		total += st.Successes + st.Failures
	}
	assert.Equal(t, int64(8*200), total)
}
