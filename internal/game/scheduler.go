package game

import "time"

// Timer is a pending deferred callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay on a wall clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules callbacks with time.AfterFunc.
type RealScheduler struct{}

// AfterFunc implements Scheduler.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
