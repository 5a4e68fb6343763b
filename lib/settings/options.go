package settings

import (
	"fmt"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Default values of the settings options
const (
	DefaultNamespace       = "/"
	DefaultRefreshInterval = 23 * time.Second
)

// Options configures Settings, MutableSettings and LiveSettings.
type Options struct {
	// Namespace is the key prefix of all settings, normalised to start with "/"
	Namespace string
	// RefreshInterval is the time between two background refreshes
	RefreshInterval time.Duration
	// RefreshTimeout bounds one refresh, defaults to RefreshInterval
	RefreshTimeout time.Duration
	// ErrorHandler receives failed refreshes and failed writes
	ErrorHandler ErrorHandler
	// RequireInitialLoad makes New fail if the first refresh fails, instead of
	// starting with an empty snapshot
	RequireInitialLoad bool
	// Metrics is the set refresh metrics are written to
	Metrics *metrics.Set
}

// Option modifies Options
type Option func(*Options)

// WithNamespace sets the key prefix of the settings.
func WithNamespace(namespace string) Option {
	return func(o *Options) { o.Namespace = namespace }
}

// WithRefreshInterval sets the time between two background refreshes.
func WithRefreshInterval(interval time.Duration) Option {
	return func(o *Options) { o.RefreshInterval = interval }
}

// WithRefreshTimeout bounds the duration of a single refresh.
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(o *Options) { o.RefreshTimeout = timeout }
}

// WithErrorHandler sets the error sink.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *Options) { o.ErrorHandler = h }
}

// WithRequireInitialLoad makes construction fail when the initial load fails.
func WithRequireInitialLoad() Option {
	return func(o *Options) { o.RequireInitialLoad = true }
}

// WithMetricsSet writes the refresh metrics to set.
func WithMetricsSet(set *metrics.Set) Option {
	return func(o *Options) { o.Metrics = set }
}

// DefaultOptions returns the options with all default values.
func DefaultOptions() Options {
	return Options{
		Namespace:       DefaultNamespace,
		RefreshInterval: DefaultRefreshInterval,
		ErrorHandler:    LogErrorHandler{},
	}
}

func buildOptions(opts []Option) (Options, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.Namespace = NormalizeNamespace(o.Namespace)
	if o.RefreshTimeout == 0 {
		o.RefreshTimeout = o.RefreshInterval
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewSet()
	}
	return o, o.Validate()
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.RefreshInterval <= 0 {
		return fmt.Errorf("%w: refresh interval must be positive, got %s", ErrInvalidConfig, o.RefreshInterval)
	}
	if o.RefreshTimeout < 0 {
		return fmt.Errorf("%w: refresh timeout must not be negative, got %s", ErrInvalidConfig, o.RefreshTimeout)
	}
	if o.ErrorHandler == nil {
		return fmt.Errorf("%w: error handler is nil", ErrInvalidConfig)
	}
	if strings.Contains(o.Namespace, "//") {
		return fmt.Errorf("%w: namespace %q contains an empty segment", ErrInvalidConfig, o.Namespace)
	}
	return nil
}

// NormalizeNamespace makes namespace start with "/" and strips a trailing "/"
// (except for the root namespace).
func NormalizeNamespace(namespace string) string {
	namespace = strings.TrimSpace(namespace)
	if !strings.HasPrefix(namespace, "/") {
		namespace = "/" + namespace
	}
	if len(namespace) > 1 {
		namespace = strings.TrimSuffix(namespace, "/")
	}
	return namespace
}

// normalizeName strips the leading "/" of a setting name, so "/port" and "port" are the
// same setting
func normalizeName(name string) string {
	return strings.TrimPrefix(name, "/")
}

// keyFor returns the store key of a setting in namespace
func keyFor(namespace, name string) string {
	if namespace == "/" {
		return "/" + normalizeName(name)
	}
	return namespace + "/" + normalizeName(name)
}

// nameOf strips the namespace prefix and a leading "/" from a store key
func nameOf(namespace, key string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, namespace), "/")
}
