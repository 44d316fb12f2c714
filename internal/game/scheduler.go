package game

import "time"

// Timer is a cancelable scheduled task.
type Timer interface {
	// Stop prevents the task from running. It reports whether the call stopped it.
	Stop() bool
}

// Scheduler runs f after d. Implementations must run f on the same goroutine
// that owns the lobby, so callbacks never race with message handling.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// stopTimer stops t if set. Safe on nil.
func stopTimer(t Timer) {
	if t != nil {
		t.Stop()
	}
}
