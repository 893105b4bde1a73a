package cache

import (
	"context"
	"sync"
	"time"
)

// Local is the single-process stand-in for RedisCache, used when no Redis
// URL is configured.
type Local struct {
	mu      sync.Mutex
	now     func() time.Time
	locks   map[string]time.Time
	cursors map[string]int64
	yields  map[string]int
}

func NewLocal() *Local {
	return &Local{
		now:     time.Now,
		locks:   make(map[string]time.Time),
		cursors: make(map[string]int64),
		yields:  make(map[string]int),
	}
}

// TryLock takes the named lock for at most ttl.
func (l *Local) TryLock(_ context.Context, name string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, held := l.locks[name]; held && now.Before(until) {
		return nil, false, nil
	}
	until := now.Add(ttl)
	l.locks[name] = until

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// a lock that expired and was retaken belongs to someone else
		if l.locks[name].Equal(until) {
			delete(l.locks, name)
		}
	}, true, nil
}

func (l *Local) Advance(_ context.Context, key string, by int) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cursors[key] += int64(by)
	return l.cursors[key], nil
}

func (l *Local) LastYield(_ context.Context, league string) (int, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.yields[league]
	return n, ok, nil
}

func (l *Local) RecordYield(_ context.Context, league string, n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.yields[league] = n
	return nil
}

func (l *Local) Yields(_ context.Context) (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.yields))
	for k, v := range l.yields {
		out[k] = v
	}
	return out, nil
}
