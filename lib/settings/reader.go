package settings

import (
	"fmt"
	"strconv"
	"strings"
)

// Reader is the read-only settings accessor. Reads never block on network I/O.
type Reader interface {
	GetString(name string) (string, bool)
	GetStringOr(name, def string) string
	GetInt(name string) (int, error)
	GetIntOr(name string, def int) (int, error)
	GetInt64(name string) (int64, error)
	GetInt64Or(name string, def int64) (int64, error)
	GetFloat64(name string) (float64, error)
	GetFloat64Or(name string, def float64) (float64, error)
	GetBool(name string) (bool, error)
	GetBoolOr(name string, def bool) (bool, error)
	AllKeys() []string
	Export() map[string]string
}

// --------------------------------------------------------------------------
// Typed getters
// --------------------------------------------------------------------------

// getters implements the typed part of Reader on top of a lookup function.
// Values are trimmed before they are returned or parsed.
type getters struct {
	lookup func(name string) (string, bool)
}

func (g getters) GetString(name string) (string, bool) {
	v, ok := g.lookup(name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (g getters) GetStringOr(name, def string) string {
	if v, ok := g.GetString(name); ok {
		return v
	}
	return def
}

func (g getters) GetInt(name string) (int, error) {
	return get(g, name, "int", strconv.Atoi)
}

func (g getters) GetIntOr(name string, def int) (int, error) {
	return getOr(g, name, def, "int", strconv.Atoi)
}

func (g getters) GetInt64(name string) (int64, error) {
	return get(g, name, "int64", parseInt64)
}

func (g getters) GetInt64Or(name string, def int64) (int64, error) {
	return getOr(g, name, def, "int64", parseInt64)
}

func (g getters) GetFloat64(name string) (float64, error) {
	return get(g, name, "float64", parseFloat64)
}

func (g getters) GetFloat64Or(name string, def float64) (float64, error) {
	return getOr(g, name, def, "float64", parseFloat64)
}

func (g getters) GetBool(name string) (bool, error) {
	return get(g, name, "bool", strconv.ParseBool)
}

func (g getters) GetBoolOr(name string, def bool) (bool, error) {
	return getOr(g, name, def, "bool", strconv.ParseBool)
}

func parseInt64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func parseFloat64(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func get[T any](g getters, name, typ string, parse func(string) (T, error)) (T, error) {
	v, ok := g.GetString(name)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return convert(name, v, typ, parse)
}

func getOr[T any](g getters, name string, def T, typ string, parse func(string) (T, error)) (T, error) {
	v, ok := g.GetString(name)
	if !ok {
		return def, nil
	}
	return convert(name, v, typ, parse)
}

func convert[T any](name, value, typ string, parse func(string) (T, error)) (T, error) {
	res, err := parse(value)
	if err != nil {
		var zero T
		return zero, &ConversionError{Key: name, Value: value, Type: typ, Err: err}
	}
	return res, nil
}
