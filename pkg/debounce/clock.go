package debounce

import "time"

// Timer is the handle returned by Clock.AfterFunc. Stop reports whether the
// call prevented the function from running.
type Timer interface {
	Stop() bool
}

// Clock abstracts the time source so tests can advance debounce windows
// manually.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
