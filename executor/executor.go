package executor

import "time"

// CancelFunc cancels a scheduled callback. Calling it after the callback has
// run, or more than once, is a no-op.
type CancelFunc func()

// Executor schedules callbacks, guaranteeing at most one concurrent callback
// per executor.
type Executor interface {
	// Schedule queues task to run as soon as the executor is free.
	Schedule(task func())
	// ScheduleAfter queues task to run once d has elapsed. A canceled task
	// never runs, even if its timer has already fired.
	ScheduleAfter(d time.Duration, task func()) CancelFunc
}
