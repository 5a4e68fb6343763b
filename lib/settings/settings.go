package settings

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dConf/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

// overlayEntry is a local write recorded after a successful write-through call
type overlayEntry struct {
	value   string
	deleted bool
}

// view is what readers see: an immutable snapshot plus the writes made since it was loaded.
// A refresh replaces the whole view, so the overlay always belongs to exactly one snapshot.
type view struct {
	snap    *Snapshot
	overlay *xsync.MapOf[string, overlayEntry]
}

func newView(snap *Snapshot) *view {
	return &view{snap: snap, overlay: xsync.NewMapOf[string, overlayEntry]()}
}

func (v *view) lookup(name string) (string, bool) {
	if e, ok := v.overlay.Load(name); ok {
		if e.deleted {
			return "", false
		}
		return e.value, true
	}
	return v.snap.Get(name)
}

// export merges snapshot and overlay into a new map
func (v *view) export() map[string]string {
	pairs := v.snap.Export()
	v.overlay.Range(func(name string, e overlayEntry) bool {
		if e.deleted {
			delete(pairs, name)
		} else {
			pairs[name] = e.value
		}
		return true
	})
	return pairs
}

// --------------------------------------------------------------------------
// Settings
// --------------------------------------------------------------------------

// Settings is a namespace-scoped, locally cached read model of the settings in a store.
// The cache is loaded once during construction and then refreshed in the background.
// All reads are served from memory.
type Settings struct {
	getters

	source store.IStore
	opts   Options
	cur    atomic.Pointer[view]

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    atomic.Bool

	refreshes      *metrics.Counter
	refreshErrors  *metrics.Counter
	refreshLatency *metrics.Histogram
	keysGauge      string
}

// instances numbers the Settings of this process for the per-instance key gauge
var instances atomic.Int64

// New loads the settings of the configured namespace from source and starts the
// background refresh. A failed initial load is reported to the error handler and the
// settings start empty, unless WithRequireInitialLoad is given.
func New(ctx context.Context, source store.IStore, opts ...Option) (*Settings, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("%w: source store is nil", ErrInvalidConfig)
	}

	s := &Settings{source: source, opts: o}
	s.getters = getters{lookup: s.lookup}
	s.cur.Store(newView(emptySnapshot))

	label := fmt.Sprintf(`{namespace=%q}`, o.Namespace)
	s.refreshes = o.Metrics.GetOrCreateCounter("dconf_settings_refresh_total" + label)
	s.refreshErrors = o.Metrics.GetOrCreateCounter("dconf_settings_refresh_errors_total" + label)
	s.refreshLatency = o.Metrics.GetOrCreateHistogram("dconf_settings_refresh_duration_seconds" + label)
	s.keysGauge = fmt.Sprintf(`dconf_settings_keys{namespace=%q,instance="%d"}`, o.Namespace, instances.Add(1))
	o.Metrics.GetOrCreateGauge(s.keysGauge, func() float64 {
		return float64(len(s.AllKeys()))
	})

	if err := s.Refresh(ctx); err != nil {
		if o.RequireInitialLoad {
			o.Metrics.UnregisterMetric(s.keysGauge)
			return nil, fmt.Errorf("initial load of %s: %w", o.Namespace, err)
		}
		s.opts.ErrorHandler.OnError(fmt.Errorf("initial load of %s: %w", o.Namespace, err))
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(loopCtx)

	log.Infof("settings for %s loaded (%d keys), refreshing every %s", o.Namespace, s.current().snap.Len(), o.RefreshInterval)
	return s, nil
}

// run drives the periodic refresh until ctx is canceled. Ticks never overlap.
func (s *Settings) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, s.opts.RefreshTimeout)
			err := s.Refresh(refreshCtx)
			cancel()
			if err != nil && ctx.Err() == nil {
				s.opts.ErrorHandler.OnError(fmt.Errorf("refresh of %s: %w", s.opts.Namespace, err))
			}
		}
	}
}

// Refresh loads the namespace from the store and publishes a new snapshot. On failure the
// current snapshot stays in place and the error is returned.
func (s *Settings) Refresh(ctx context.Context) error {
	s.refreshes.Inc()
	start := time.Now()
	defer s.refreshLatency.UpdateDuration(start)

	nodes, err := s.source.ListChildren(ctx, s.opts.Namespace)
	if err != nil {
		s.refreshErrors.Inc()
		return err
	}

	pairs := make(map[string]string, len(nodes))
	for _, n := range nodes {
		if n.Dir {
			continue
		}
		pairs[nameOf(s.opts.Namespace, n.Key)] = n.Value
	}
	// writes recorded while this refresh was in flight are dropped with the old overlay
	s.cur.Store(newView(&Snapshot{pairs: pairs}))
	log.Debugf("refreshed %s: %d keys", s.opts.Namespace, len(pairs))
	return nil
}

func (s *Settings) current() *view {
	return s.cur.Load()
}

func (s *Settings) lookup(name string) (string, bool) {
	return s.current().lookup(normalizeName(name))
}

// Namespace returns the normalised namespace.
func (s *Settings) Namespace() string { return s.opts.Namespace }

// Metrics returns the set the refresh metrics are written to.
func (s *Settings) Metrics() *metrics.Set { return s.opts.Metrics }

// Snapshot returns the snapshot loaded by the last successful refresh. Local writes made
// since then are not part of it.
func (s *Settings) Snapshot() *Snapshot {
	return s.current().snap
}

// AllKeys returns the sorted keys of the current settings.
func (s *Settings) AllKeys() []string {
	v := s.current()
	if v.overlay.Size() == 0 {
		return v.snap.Keys()
	}
	pairs := v.export()
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Export returns a copy of the current settings.
func (s *Settings) Export() map[string]string {
	return s.current().export()
}

// Close stops the background refresh and waits for a running refresh to finish.
// The source store is not closed.
func (s *Settings) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.wg.Wait()
		s.opts.Metrics.UnregisterMetric(s.keysGauge)
	})
	return nil
}

func (s *Settings) String() string {
	return fmt.Sprintf("settings{%s: %d keys}", s.opts.Namespace, len(s.AllKeys()))
}

var _ Reader = (*Settings)(nil)
