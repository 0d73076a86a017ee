package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader is a read-through cache over a Store. Concurrent misses for one key share
// a single call to the fetch function.
type Loader[T any] struct {
	store   Store
	key     string
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
	logger  *slog.Logger

	// mu orders cache writes against Invalidate; gen counts invalidations.
	mu  sync.Mutex
	gen uint64
}

// NewLoader creates a loader caching values of T under key for ttl.
func NewLoader[T any](store Store, key string, ttl time.Duration, logger *slog.Logger) *Loader[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader[T]{store: store, key: key, ttl: ttl, logger: logger}
}

// WithFetchTimeout bounds the shared fetch, which outlives the caller that started it.
func (l *Loader[T]) WithFetchTimeout(d time.Duration) *Loader[T] {
	l.timeout = d
	return l
}

func (l *Loader[T]) generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// Get returns the cached value, or calls fetch and caches its result.
// Store failures degrade to calling fetch; fetch failures are not cached.
//
// The fetch runs detached from ctx so that one caller giving up does not fail the
// others waiting on it; each caller still returns as soon as its own ctx is done.
// A result fetched across an Invalidate is returned but not cached.
func (l *Loader[T]) Get(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, found, err := GetJSON[T](ctx, l.store, l.key); err != nil {
		l.logger.Warn("cache read failed", "key", l.key, "error", err)
	} else if found {
		return v, nil
	}

	gen := l.generation()
	ch := l.group.DoChan(l.key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		if l.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, l.timeout)
			defer cancel()
		}

		// another caller may have filled the entry while we waited
		if v, found, err := GetJSON[T](fctx, l.store, l.key); err == nil && found {
			return v, nil
		}
		v, err := fetch(fctx)
		if err != nil {
			return v, err
		}
		l.save(fctx, gen, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// save caches v unless the loader was invalidated since gen was read.
func (l *Loader[T]) save(ctx context.Context, gen uint64, v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		l.logger.Debug("cache write skipped, invalidated during fetch", "key", l.key)
		return
	}
	if err := SetJSON(ctx, l.store, l.key, v, l.ttl); err != nil {
		l.logger.Warn("cache write failed", "key", l.key, "error", err)
	}
}

// Invalidate drops the cached value. A fetch already in flight will not cache its result.
func (l *Loader[T]) Invalidate(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.group.Forget(l.key)
	return l.store.Remove(ctx, l.key)
}
