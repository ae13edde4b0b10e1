package service

import "time"

// Clock abstracts wall-clock reads so session timing can be driven by a fixed
// clock in tests. Production code uses SystemClock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }
