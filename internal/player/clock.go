package player

import "time"

// Clock abstracts the interpreter's timing waits so tests can drive
// the state machine without wall-clock sleeps.
type Clock interface {
	Now() time.Time
	// After returns a channel that fires once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns the wall-clock implementation used outside tests.
func RealClock() Clock { return realClock{} }
