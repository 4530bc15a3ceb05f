// Package wmicache implements the single-flight asynchronous wrapper that
// exposes a blocking native collector (the Windows WMI inventory query) to
// cooperative handlers. The collector itself must live on a dedicated OS
// thread holding a thread-local COM initialization; this package only
// supplies the wake/broadcast protocol around it, independent of what the
// collector actually queries.
package wmicache

import (
	"context"
	"runtime"
)

// Snapshot is the structured result one collection run produces.
type Snapshot map[string]interface{}

// Collector performs one blocking collection pass. Implementations must be
// safe to call repeatedly from the same dedicated OS thread.
type Collector interface {
	Collect() (Snapshot, error)
}

// broadcastState lets any number of concurrent waiters observe the next
// value a producer publishes, using the classic Go "replace the channel,
// then close the old one" broadcast idiom.
type broadcastState struct {
	mu    chan struct{} // 1-buffered mutex
	ready chan struct{}
	value Snapshot
	err   error
}

func newBroadcastState() *broadcastState {
	mu := make(chan struct{}, 1)
	mu <- struct{}{}
	return &broadcastState{mu: mu, ready: make(chan struct{})}
}

func (s *broadcastState) lock()   { <-s.mu }
func (s *broadcastState) unlock() { s.mu <- struct{}{} }

func (s *broadcastState) publish(v Snapshot, err error) {
	s.lock()
	s.value, s.err = v, err
	old := s.ready
	s.ready = make(chan struct{})
	s.unlock()
	close(old)
}

// current returns the channel the next publish will close.
func (s *broadcastState) current() chan struct{} {
	s.lock()
	defer s.unlock()
	return s.ready
}

// wait blocks until ch (obtained from current) is closed and returns the
// value published with it.
func (s *broadcastState) wait(ctx context.Context, ch chan struct{}) (Snapshot, error) {
	select {
	case <-ch:
		s.lock()
		v, err := s.value, s.err
		s.unlock()
		return v, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Handle is the cloneable front-end handlers use to request a fresh
// collection. Signals sent to the same Handle (or any of its clones) while
// a wake is already pending coalesce onto a single underlying Collect()
// call: notify only remembers one pending wake.
type Handle struct {
	notify chan struct{}
	state  *broadcastState
}

// Clone shares the notifier and subscribes an independent receiver to the
// broadcast, so concurrent requesters each observe the next produced value.
func (h Handle) Clone() Handle {
	return Handle{notify: h.notify, state: h.state}
}

// Query signals the native collector thread and waits for the next
// published snapshot. If a collection is already in flight when Query is
// called, the caller receives that run's result; its signal still leaves
// one wake pending, so the collector runs once more afterwards.
func (h Handle) Query(ctx context.Context) (Snapshot, error) {
	ch := h.state.current()
	select {
	case h.notify <- struct{}{}:
	default:
	}
	return h.state.wait(ctx, ch)
}

// Start spawns the dedicated OS thread that owns the collector and returns
// a Handle for requesting collections. The returned handle may be cloned
// and shared freely among concurrent handlers.
func Start(collector Collector) Handle {
	notify := make(chan struct{}, 1)
	state := newBroadcastState()

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		for range notify {
			snapshot, err := collector.Collect()
			state.publish(snapshot, err)
		}
	}()

	return Handle{notify: notify, state: state}
}
