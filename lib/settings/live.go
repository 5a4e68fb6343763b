package settings

import (
	"context"
	"fmt"
	"sort"

	"github.com/ValentinKolb/dConf/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

// LiveSettings is an uncached settings view: every read goes to the store. Keys that were
// found at least once are remembered and form AllKeys.
type LiveSettings struct {
	source store.IStore
	opts   Options
	known  *xsync.MapOf[string, struct{}]
}

// NewLive creates an uncached view of the namespace. Only the namespace and error handler
// options apply.
func NewLive(source store.IStore, opts ...Option) (*LiveSettings, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("%w: source store is nil", ErrInvalidConfig)
	}
	return &LiveSettings{
		source: source,
		opts:   o,
		known:  xsync.NewMapOf[string, struct{}](),
	}, nil
}

// GetString reads a setting from the store.
func (l *LiveSettings) GetString(ctx context.Context, name string) (string, bool, error) {
	value, found, err := l.source.Get(ctx, keyFor(l.opts.Namespace, name))
	if err != nil {
		return "", false, err
	}
	if found {
		l.known.Store(name, struct{}{})
	}
	return value, found, nil
}

// GetStringOr reads a setting from the store, def is returned if it does not exist.
func (l *LiveSettings) GetStringOr(ctx context.Context, name, def string) (string, error) {
	value, found, err := l.GetString(ctx, name)
	if err != nil {
		return "", err
	}
	if !found {
		return def, nil
	}
	return value, nil
}

// AllKeys returns the sorted names of all settings found so far.
func (l *LiveSettings) AllKeys() []string {
	keys := make([]string, 0, l.known.Size())
	l.known.Range(func(name string, _ struct{}) bool {
		keys = append(keys, name)
		return true
	})
	sort.Strings(keys)
	return keys
}

// Export reads all known settings from the store.
func (l *LiveSettings) Export(ctx context.Context) (map[string]string, error) {
	result := make(map[string]string)
	for _, name := range l.AllKeys() {
		value, found, err := l.GetString(ctx, name)
		if err != nil {
			return nil, err
		}
		if found {
			result[name] = value
		}
	}
	return result, nil
}

// Reader returns a Reader whose reads go to the store with ctx. Store errors are reported
// to the error handler and the setting is treated as missing.
func (l *LiveSettings) Reader(ctx context.Context) Reader {
	return &liveReader{
		live: l,
		ctx:  ctx,
		getters: getters{lookup: func(name string) (string, bool) {
			value, found, err := l.GetString(ctx, name)
			if err != nil {
				l.opts.ErrorHandler.OnError(fmt.Errorf("get %s: %w", name, err))
				return "", false
			}
			return value, found
		}},
	}
}

type liveReader struct {
	getters
	live *LiveSettings
	ctx  context.Context
}

func (r *liveReader) AllKeys() []string { return r.live.AllKeys() }

func (r *liveReader) Export() map[string]string {
	pairs, err := r.live.Export(r.ctx)
	if err != nil {
		r.live.opts.ErrorHandler.OnError(fmt.Errorf("export: %w", err))
		return map[string]string{}
	}
	return pairs
}
