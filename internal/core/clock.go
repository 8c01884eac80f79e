package core

import "time"

// Clock supplies the current instant. Services take a Clock instead of calling
// time.Now so tests can pin "now" when checking the not-in-the-future rule and
// the default stats month.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }
