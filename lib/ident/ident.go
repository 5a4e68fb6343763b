// Package ident generates the per-process identity used to name server instances
// and to label exported metrics. The identity is created once at startup and passed
// explicitly to the components that need it.
package ident

import (
	"strings"

	"github.com/google/uuid"
)

// ID identifies one running process.
type ID string

// New returns a new random process identity.
func New() ID {
	return ID(uuid.NewString())
}

// Short returns the first block of the identity, for log lines and metric labels.
func (id ID) Short() string {
	s := string(id)
	if i := strings.IndexByte(s, '-'); i > 0 {
		return s[:i]
	}
	return s
}

func (id ID) String() string { return string(id) }
