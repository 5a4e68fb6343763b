package settings

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ValentinKolb/dConf/lib/store"
)

// Writer is the write-through part of the settings accessor.
type Writer interface {
	SetString(ctx context.Context, name, value string) error
	SetStringTTL(ctx context.Context, name, value string, ttl time.Duration) error
	SetInt(ctx context.Context, name string, value int) error
	SetInt64(ctx context.Context, name string, value int64) error
	SetFloat64(ctx context.Context, name string, value float64) error
	SetBool(ctx context.Context, name string, value bool) error
	Clear(ctx context.Context, name string) error
}

// MutableSettings are Settings with write-through. A write goes to the store first and is
// reflected locally only if the store accepted it, so a read directly after a successful
// write returns the new value without waiting for the next refresh.
//
// A failed write is reported to the error handler, leaves the local state unchanged and is
// also returned to the caller.
//
// Local writes live in an overlay on top of the current snapshot. A refresh replaces
// snapshot and overlay together: a write that completes while a refresh started before it
// is still running can be hidden until the following refresh.
type MutableSettings struct {
	*Settings
}

// NewMutable creates settings with write-through, see New.
func NewMutable(ctx context.Context, source store.IStore, opts ...Option) (*MutableSettings, error) {
	s, err := New(ctx, source, opts...)
	if err != nil {
		return nil, err
	}
	return &MutableSettings{Settings: s}, nil
}

func (m *MutableSettings) SetString(ctx context.Context, name, value string) error {
	return m.SetStringTTL(ctx, name, value, 0)
}

// SetStringTTL writes a setting that the store removes after ttl. The local copy does not
// expire; it disappears with the first refresh after the store dropped the key.
func (m *MutableSettings) SetStringTTL(ctx context.Context, name, value string, ttl time.Duration) error {
	name, key, err := m.checkWrite(name)
	if err != nil {
		return m.report(err)
	}
	if err := m.source.Set(ctx, key, value, ttl); err != nil {
		return m.report(fmt.Errorf("set %s: %w", key, err))
	}
	m.current().overlay.Store(name, overlayEntry{value: value})
	return nil
}

func (m *MutableSettings) SetInt(ctx context.Context, name string, value int) error {
	return m.SetString(ctx, name, strconv.Itoa(value))
}

func (m *MutableSettings) SetInt64(ctx context.Context, name string, value int64) error {
	return m.SetString(ctx, name, strconv.FormatInt(value, 10))
}

func (m *MutableSettings) SetFloat64(ctx context.Context, name string, value float64) error {
	return m.SetString(ctx, name, strconv.FormatFloat(value, 'g', -1, 64))
}

func (m *MutableSettings) SetBool(ctx context.Context, name string, value bool) error {
	return m.SetString(ctx, name, strconv.FormatBool(value))
}

// Clear deletes a setting from the store and then locally.
func (m *MutableSettings) Clear(ctx context.Context, name string) error {
	name, key, err := m.checkWrite(name)
	if err != nil {
		return m.report(err)
	}
	if err := m.source.Delete(ctx, key); err != nil {
		return m.report(fmt.Errorf("delete %s: %w", key, err))
	}
	m.current().overlay.Store(name, overlayEntry{deleted: true})
	return nil
}

// checkWrite returns the normalized name of the setting and its store key
func (m *MutableSettings) checkWrite(name string) (string, string, error) {
	if m.closed.Load() {
		return "", "", ErrClosed
	}
	name = normalizeName(name)
	if name == "" {
		return "", "", ErrEmptyName
	}
	return name, keyFor(m.opts.Namespace, name), nil
}

// report hands err to the error handler and returns it
func (m *MutableSettings) report(err error) error {
	m.opts.ErrorHandler.OnError(err)
	return err
}

var (
	_ Reader = (*MutableSettings)(nil)
	_ Writer = (*MutableSettings)(nil)
)
