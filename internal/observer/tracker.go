// Package observer keeps WADES from profiling itself: it identifies the
// daemon's own PID so the probe can exclude it from snapshots, and
// measures the daemon's own resource footprint across each cadence tick.
package observer

import "os"

// Tracker identifies the WADES daemon's own process. The probe consults
// it via the probe.Excluder interface to keep the daemon out of its own
// application profiles; the controller uses it to report self overhead.
type Tracker struct {
	selfPID int
	before  *procSnapshot
}

// NewTracker creates a Tracker seeded with the current process's PID.
func NewTracker() *Tracker {
	return &Tracker{selfPID: os.Getpid()}
}

// SelfPID returns the WADES daemon's own process ID.
func (t *Tracker) SelfPID() int {
	return t.selfPID
}

// IsOwnPID reports whether pid is the daemon itself. Implements
// probe.Excluder.
func (t *Tracker) IsOwnPID(pid int) bool {
	return pid == t.selfPID
}
