package stash

import (
	"context"
	"errors"
	"time"

	"github.com/unkn0wn-root/stash/lock"
)

// lockState is a state of the lock-and-fetch entry loop.
//
//	Idle -> Locking -> Backoff -> Locking -> ... -> Locked | Hit | Failed
type lockState uint8

const (
	stateIdle lockState = iota
	stateLocking
	stateBackoff
	stateLocked // lock held; caller must fetch and release
	stateHit    // a recheck during backoff found the value
	stateFailed
)

func (s lockState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateLocking:
		return "locking"
	case stateBackoff:
		return "backoff"
	case stateLocked:
		return "locked"
	case stateHit:
		return "hit"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// acquirer drives one key through the lock loop. The steps are injected so
// the attempt ceiling and the recheck ordering can be tested without a
// real locker, store or clock.
type acquirer[V any] struct {
	key         string
	maxAttempts int
	backoff     time.Duration

	acquire func(ctx context.Context) (lock.Lock, error)
	recheck func(ctx context.Context) (V, bool, error)
	wait    func(ctx context.Context, d time.Duration) error

	onContended func(attempt int, err error) // may be nil
}

type acquired[V any] struct {
	state    lockState
	lock     lock.Lock // set when state == stateLocked
	value    V         // set when state == stateHit
	attempts int
}

// run returns with state Locked or Hit, or with an error and state Failed.
// Exhausting the ceiling yields a *LockAcquisitionError. Recheck errors
// (including *DecodeError) and context cancellation end the loop as is.
func (a *acquirer[V]) run(ctx context.Context) (acquired[V], error) {
	res := acquired[V]{state: stateIdle}
	var lastErr error

	res.state = stateLocking
	for {
		switch res.state {
		case stateLocking:
			l, err := a.acquire(ctx)
			if err == nil {
				res.lock = l
				res.state = stateLocked
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				res.state = stateFailed
				return res, ctxErr
			}
			res.attempts++
			lastErr = err
			if a.onContended != nil {
				a.onContended(res.attempts, err)
			}
			if res.attempts >= a.maxAttempts {
				res.state = stateFailed
				return res, &LockAcquisitionError{Key: a.key, Attempts: res.attempts, Err: lastErr}
			}
			res.state = stateBackoff

		case stateBackoff:
			if err := a.wait(ctx, a.backoff); err != nil {
				res.state = stateFailed
				return res, err
			}
			v, ok, err := a.recheck(ctx)
			if err != nil {
				res.state = stateFailed
				return res, err
			}
			if ok {
				res.value = v
				res.state = stateHit
				continue
			}
			res.state = stateLocking

		case stateLocked, stateHit:
			return res, nil

		default:
			res.state = stateFailed
			return res, errors.New("stash: lock loop in invalid state")
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
