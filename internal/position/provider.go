// Package position supplies the vehicle position feed consumed by the
// breadcrumb recorder: a NED offset from a fixed local origin plus a flag
// indicating whether the fix is trustworthy.
package position

import (
	"sync"

	"github.com/golang/geo/r3"
)

// Provider is the positioning service the recorder polls. Position returns
// the current NED offset in meters from the session origin and whether the
// fix can be trusted.
type Provider interface {
	Position() (r3.Vector, bool)
}

// Static is a manually driven Provider, used by tests and the simulator.
type Static struct {
	mu    sync.Mutex
	pos   r3.Vector
	valid bool
}

// Set updates the reported position and validity.
func (s *Static) Set(pos r3.Vector, valid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = pos
	s.valid = valid
}

// Position implements Provider.
func (s *Static) Position() (r3.Vector, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, s.valid
}
