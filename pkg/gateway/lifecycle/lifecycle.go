// Package lifecycle holds process-wide shutdown state shared between the
// signal handler in main and the readiness probe.
package lifecycle

import "sync/atomic"

// Lifecycle reports whether the process is draining. Once draining, the
// readiness endpoint fails so load balancers stop routing new calls while
// in-flight webhooks finish.
type Lifecycle struct {
	draining atomic.Bool
}

// SetDraining marks the process as draining (or clears the mark). A nil
// receiver is a no-op so callers can skip wiring it in tests.
func (l *Lifecycle) SetDraining(draining bool) {
	if l == nil {
		return
	}
	l.draining.Store(draining)
}

// IsDraining reports whether shutdown has begun. A nil receiver reports false.
func (l *Lifecycle) IsDraining() bool {
	if l == nil {
		return false
	}
	return l.draining.Load()
}
