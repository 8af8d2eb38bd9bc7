// Package sloghook logs stash events to a *slog.Logger.
//
// Hit events are not logged; use hooks/prometheus to count them. Keys are
// redacted unless Options.Redact says otherwise.
package sloghook

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/stash"
	"github.com/unkn0wn-root/stash/internal/keys"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ContendedEvery uint64
	DroppedEvery   uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	stash.NopHooks

	l    *slog.Logger
	opts Options

	contendedCtr atomic.Uint64
	droppedCtr   atomic.Uint64
}

var _ stash.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	return keys.Redact(k)
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Fetched(key string, took time.Duration, err error) {
	if h.l == nil {
		return
	}
	if err != nil {
		h.l.Warn("stash.fetch_failed",
			"key", h.redact(key),
			"took", took,
			"err", err)
		return
	}
	h.l.Debug("stash.fetched",
		"key", h.redact(key),
		"took", took)
}

func (h *Hooks) LockContended(key string, attempt int) {
	if h.l == nil || !sample(h.opts.ContendedEvery, &h.contendedCtr) {
		return
	}
	h.l.Debug("stash.lock_contended",
		"key", h.redact(key),
		"attempt", attempt)
}

func (h *Hooks) LockExhausted(key string, attempts int, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("stash.lock_exhausted",
		"key", h.redact(key),
		"attempts", attempts,
		"err", err)
}

func (h *Hooks) DecodeFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("stash.decode_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) InvalidationDropped(reason string) {
	if h.l == nil || !sample(h.opts.DroppedEvery, &h.droppedCtr) {
		return
	}
	h.l.Info("stash.invalidation_dropped",
		"reason", reason)
}

func (h *Hooks) PublishFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("stash.publish_failed",
		"key", h.redact(key),
		"err", err)
}
