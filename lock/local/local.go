// Package local implements lock.Locker inside one process.
//
// It gives stampede protection between goroutines and between Stash
// instances that share the Locker, but nothing across processes. Expired
// holders are replaced on the next Acquire; an optional sweep prunes
// abandoned keys.
package local

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/stash/lock"
)

type holder struct {
	token string
	exp   time.Time
}

type Locker struct {
	mu    sync.Mutex
	held  map[string]holder
	now   func() time.Time
	stop  chan struct{}
	wg    sync.WaitGroup
	close sync.Once
}

var _ lock.Locker = (*Locker)(nil)

// New returns a Locker. When sweepInterval > 0 a goroutine prunes expired
// holders on that interval until Close.
func New(sweepInterval time.Duration) *Locker {
	l := &Locker{held: make(map[string]holder), now: time.Now}
	if sweepInterval > 0 {
		l.stop = make(chan struct{})
		ticker := time.NewTicker(sweepInterval)
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					l.sweep()
				case <-l.stop:
					return
				}
			}
		}()
	}
	return l
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.held[key]; ok && now.Before(h.exp) {
		return nil, lock.ErrNotObtained
	}
	h := holder{token: uuid.NewString(), exp: now.Add(ttl)}
	l.held[key] = h
	return &held{l: l, key: key, token: h.token}, nil
}

// Held reports whether key is currently locked.
func (l *Locker) Held(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.held[key]
	return ok && now.Before(h.exp)
}

func (l *Locker) Close(context.Context) error {
	l.close.Do(func() {
		if l.stop != nil {
			close(l.stop)
			l.wg.Wait()
		}
	})
	return nil
}

func (l *Locker) sweep() {
	now := l.now()
	l.mu.Lock()
	for k, h := range l.held {
		if !now.Before(h.exp) {
			delete(l.held, k)
		}
	}
	l.mu.Unlock()
}

func (l *Locker) release(key, token string) error {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.held[key]
	if !ok || h.token != token || !now.Before(h.exp) {
		return lock.ErrNotHeld
	}
	delete(l.held, key)
	return nil
}

type held struct {
	l     *Locker
	key   string
	token string
}

func (h *held) Key() string { return h.key }

func (h *held) Release(context.Context) error { return h.l.release(h.key, h.token) }
