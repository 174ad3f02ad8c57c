package geocode

import (
	"context"
	"sync"
	"time"
)

// BucketConf configures a token bucket.
type BucketConf struct {
	Burst     int           // maximum number of tokens in the bucket
	Increment int           // how many tokens to add each period
	Period    time.Duration // how often to add Increment
}

// Limiter is a token bucket shared by all lookups of one client.
type Limiter struct {
	conf BucketConf

	mu        sync.Mutex // protects access to bucket state
	tokens    int
	lastCheck time.Time
}

func NewLimiter(conf BucketConf) *Limiter {
	return &Limiter{conf: conf, tokens: conf.Burst, lastCheck: time.Now()}
}

// refill tokens
// Since this modifies the bucket's state, this should be wrapped by mutex lock/unlock
func (l *Limiter) refill(now time.Time) {
	elapsed := now.Sub(l.lastCheck)
	if elapsed >= l.conf.Period {
		times := int(elapsed / l.conf.Period)
		l.tokens += times * l.conf.Increment
		if l.tokens > l.conf.Burst {
			l.tokens = l.conf.Burst
		}
		l.lastCheck = l.lastCheck.Add(time.Duration(times) * l.conf.Period)
	}
}

// reserve takes a token if one is available, otherwise it returns how long
// until the next refill.
func (l *Limiter) reserve(now time.Time) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill(now)
	if l.tokens > 0 {
		l.tokens--
		return 0, true
	}
	return l.lastCheck.Add(l.conf.Period).Sub(now), false
}

func (l *Limiter) Allow(now time.Time) bool {
	_, ok := l.reserve(now)
	return ok
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait, ok := l.reserve(time.Now())
		if ok {
			return nil
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
