package executor

import (
	"sync"
	"time"
)

// Manual is an Executor driven by a virtual clock. Tasks only run when the
// caller invokes RunPending, Step or Advance, and always on the caller's
// goroutine, in due-time order with ties broken by scheduling order.
//
// Stages that keep rescheduling zero-delay work (a random source under
// Unlimited demand) never let RunPending or Advance return; drive those with
// Step.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*manualTask
}

type manualTask struct {
	due      time.Time
	seq      uint64
	fn       func()
	canceled bool
}

// NewManual creates a Manual executor whose clock starts at the Unix epoch.
func NewManual() *Manual {
	return &Manual{now: time.Unix(0, 0).UTC()}
}

// Now returns the current virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Schedule queues task at the current virtual time.
func (m *Manual) Schedule(task func()) {
	m.ScheduleAfter(0, task)
}

// ScheduleAfter queues task at now+d.
func (m *Manual) ScheduleAfter(d time.Duration, task func()) CancelFunc {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	t := &manualTask{due: m.now.Add(d), seq: m.seq, fn: task}
	m.seq++
	m.tasks = append(m.tasks, t)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		t.canceled = true
		m.mu.Unlock()
	}
}

// Pending returns the number of tasks scheduled and not canceled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.canceled {
			n++
		}
	}
	return n
}

// Step runs the earliest task due at the current time. It reports whether a
// task ran.
func (m *Manual) Step() bool {
	t := m.pop(m.Now())
	if t == nil {
		return false
	}
	t.fn()
	return true
}

// RunPending runs tasks due at the current time, including those they
// schedule, and returns how many ran.
func (m *Manual) RunPending() int {
	n := 0
	for m.Step() {
		n++
	}
	return n
}

// Advance moves the clock forward by d, running every task that falls due
// along the way at its own due time. It returns how many tasks ran.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	n := 0
	for {
		t := m.pop(target)
		if t == nil {
			break
		}
		t.fn()
		n++
	}

	m.mu.Lock()
	if target.After(m.now) {
		m.now = target
	}
	m.mu.Unlock()
	return n
}

// pop removes and returns the earliest live task due at or before limit,
// moving the clock to its due time.
func (m *Manual) pop(limit time.Time) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	best := -1
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if t.canceled {
			continue
		}
		live = append(live, t)
	}
	for i := len(live); i < len(m.tasks); i++ {
		m.tasks[i] = nil
	}
	m.tasks = live

	for i, t := range m.tasks {
		if t.due.After(limit) {
			continue
		}
		if best < 0 || t.due.Before(m.tasks[best].due) ||
			(t.due.Equal(m.tasks[best].due) && t.seq < m.tasks[best].seq) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}

	t := m.tasks[best]
	m.tasks = append(m.tasks[:best], m.tasks[best+1:]...)
	if t.due.After(m.now) {
		m.now = t.due
	}
	return t
}
