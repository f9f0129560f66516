package engine

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// taskSet holds the scheduled callbacks owned by one engine so that they can
// be stopped together on reset or teardown. It is guarded by the engine mutex.
type taskSet struct {
	clock clockwork.Clock
	next  int
	stops map[int]func()
}

func newTaskSet(clock clockwork.Clock) *taskSet {
	return &taskSet{
		clock: clock,
		stops: make(map[int]func()),
	}
}

// after schedules fn to run once after d and returns its handle
func (t *taskSet) after(d time.Duration, fn func(id int)) int {
	t.next++
	id := t.next
	timer := t.clock.AfterFunc(d, func() { fn(id) })
	t.stops[id] = func() { timer.Stop() }
	return id
}

// every runs fn on its own goroutine each time a ticker with period d fires,
// until the task is stopped
func (t *taskSet) every(d time.Duration, fn func(id int)) int {
	t.next++
	id := t.next
	ticker := t.clock.NewTicker(d)
	quit := make(chan struct{})
	go func() {
		for {
			select {
			case <-quit:
				return
			case <-ticker.Chan():
				fn(id)
			}
		}
	}()
	t.stops[id] = func() {
		ticker.Stop()
		close(quit)
	}
	return id
}

// done forgets a one-shot task that has fired
func (t *taskSet) done(id int) {
	delete(t.stops, id)
}

// stop cancels a single task; unknown handles are ignored
func (t *taskSet) stop(id int) {
	if stop, ok := t.stops[id]; ok {
		stop()
		delete(t.stops, id)
	}
}

// stopAll cancels every outstanding task
func (t *taskSet) stopAll() {
	for id, stop := range t.stops {
		stop()
		delete(t.stops, id)
	}
}

func (t *taskSet) len() int {
	return len(t.stops)
}
