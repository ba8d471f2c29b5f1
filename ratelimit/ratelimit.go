// Package ratelimit holds the shared rate-limit circuit breaker: a
// process-wide advisory flag that callers check before issuing API
// requests, armed with a timed reset matching GitHub's
// x-ratelimit-reset header.
package ratelimit

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Limiter is a best-effort gate, not a hard lock. A caller that slips
// through before the flag is set simply gets a rate-limited response
// from the API and trips the limiter itself.
type Limiter struct {
	mu      sync.Mutex
	limited bool
	timer   *time.Timer
	seq     uint64
}

// New creates an untripped limiter.
func New() *Limiter {
	return &Limiter{}
}

// Limited reports whether API calls should currently be skipped.
func (l *Limiter) Limited() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limited
}

// Trip marks the quota as exhausted and schedules the automatic clear
// for resetAt (epoch seconds). A reset time in the past clears almost
// immediately. Re-tripping replaces the pending reset.
func (l *Limiter) Trip(resetAt int64, label string) {
	reset := time.Unix(resetAt, 0)
	logrus.Warnf("%s rate-limit hit; resets at %s", label, reset.Format(time.Kitchen))

	delay := time.Until(reset)
	if delay < 0 {
		delay = 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.limited = true
	l.seq++
	if l.timer != nil {
		l.timer.Stop()
	}
	// A stopped timer may already be firing; the sequence check keeps a
	// stale reset from clearing a newer trip.
	seq := l.seq
	l.timer = time.AfterFunc(delay, func() { l.clear(seq) })
}

func (l *Limiter) clear(seq uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		return
	}
	l.limited = false
}
