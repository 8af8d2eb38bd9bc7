// usage:
//
//	raw := sloghook.New(slog.Default(), sloghook.Options{
//	    ContendedEvery: 10, // sample logs: ~every 10th lock contention
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	users, _ := stash.New[User](stash.Options[User]{
//	    Remote: store,
//	    Locker: locker,
//	    Hooks:  hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/stash"
)

// Hooks forwards events to inner on a bounded queue. When the queue is full
// the event is dropped and counted.
type Hooks struct {
	inner   stash.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends on a closed q
	closed  bool
	dropped atomic.Uint64
}

var _ stash.Hooks = (*Hooks)(nil)

func New(inner stash.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) LocalHit(k string)  { h.try(func() { h.inner.LocalHit(k) }) }
func (h *Hooks) RemoteHit(k string) { h.try(func() { h.inner.RemoteHit(k) }) }
func (h *Hooks) Fetched(k string, took time.Duration, err error) {
	h.try(func() { h.inner.Fetched(k, took, err) })
}
func (h *Hooks) LockContended(k string, n int) { h.try(func() { h.inner.LockContended(k, n) }) }
func (h *Hooks) LockExhausted(k string, n int, err error) {
	h.try(func() { h.inner.LockExhausted(k, n, err) })
}
func (h *Hooks) DecodeFailed(k string, err error)  { h.try(func() { h.inner.DecodeFailed(k, err) }) }
func (h *Hooks) InvalidationReceived(k string)     { h.try(func() { h.inner.InvalidationReceived(k) }) }
func (h *Hooks) InvalidationDropped(reason string) { h.try(func() { h.inner.InvalidationDropped(reason) }) }
func (h *Hooks) PublishFailed(k string, err error) { h.try(func() { h.inner.PublishFailed(k, err) }) }
