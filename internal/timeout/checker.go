package timeout

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimedOut matches every *TimeoutError through errors.Is.
var ErrTimedOut = errors.New("analysis timed out")

// TimeoutError is returned by CheckTimeOut once the budget is exhausted.
// A Checker creates it once and returns the same pointer afterwards.
type TimeoutError struct {
	Budget time.Duration
	Reason string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s after %s (%s)", ErrTimedOut, e.Budget, e.Reason)
}

func (e *TimeoutError) Unwrap() error { return ErrTimedOut }

type state int

const (
	stopped state = iota
	running
)

// Checker accumulates the time spent while running and reports when a
// budget has been consumed. It is not safe for concurrent use.
type Checker struct {
	budget    time.Duration
	state     state
	elapsed   time.Duration
	lastStart time.Time
	err       *TimeoutError

	now func() time.Time
}

// New creates a checker for the given budget. A zero or negative budget
// never times out. When start is false the checker begins stopped with
// zero elapsed time.
func New(budget time.Duration, start bool) *Checker {
	return newWithClock(budget, start, time.Now)
}

func newWithClock(budget time.Duration, start bool, now func() time.Time) *Checker {
	c := &Checker{budget: budget, now: now}
	if start {
		c.Start()
	}
	return c
}

// FromSeconds is a convenience wrapper for budgets expressed in seconds.
func FromSeconds(seconds uint32, start bool) *Checker {
	return New(time.Duration(seconds)*time.Second, start)
}

// Start resumes time accounting. It is a no-op when already running.
func (c *Checker) Start() {
	if c.state == running {
		return
	}
	c.state = running
	c.lastStart = c.now()
}

// Stop suspends time accounting. It is a no-op when already stopped.
func (c *Checker) Stop() {
	if c.state == stopped {
		return
	}
	c.state = stopped
	c.elapsed += c.now().Sub(c.lastStart)
}

// Running reports whether time is currently being accounted.
func (c *Checker) Running() bool { return c.state == running }

// Elapsed returns the accumulated running time, including the current
// running interval.
func (c *Checker) Elapsed() time.Duration {
	if c.state == running {
		return c.elapsed + c.now().Sub(c.lastStart)
	}
	return c.elapsed
}

// CheckTimeOut folds the current running interval into the accumulated
// time and returns the cached *TimeoutError once the budget is reached.
// The checker is left running. A nil checker never times out.
func (c *Checker) CheckTimeOut(reason string) error {
	if c == nil {
		return nil
	}
	c.Start()

	now := c.now()
	c.elapsed += now.Sub(c.lastStart)
	c.lastStart = now

	if c.budget <= 0 || c.elapsed < c.budget {
		return nil
	}
	if c.err == nil {
		c.err = &TimeoutError{Budget: c.budget, Reason: reason}
	}
	return c.err
}

// HasAlreadyTimedOut reports whether the timeout error has been created.
func (c *Checker) HasAlreadyTimedOut() bool { return c.err != nil }
