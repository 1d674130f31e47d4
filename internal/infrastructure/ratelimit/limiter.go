package ratelimit

import (
	"sync"
	"time"
)

// Operation classes throttled independently
const (
	OpSearch  = "search"
	OpProduct = "product"
	OpSeed    = "seed"
)

// Bucket is one fixed window for a single key
type Bucket struct {
	Key     string
	Count   int
	ResetAt time.Time
}

// Result is the outcome of a Check
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets, never negative
func (r Result) RetryAfter(now time.Time) time.Duration {
	if d := r.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// BucketStore holds buckets between checks. Update must apply fn atomically per key.
type BucketStore interface {
	Update(key string, fn func(b *Bucket))
}

// Limiter is a fixed-window, per-key request counter. It is process-local and best-effort:
// buckets are lost on restart and never reclaimed.
type Limiter struct {
	store BucketStore
	now   func() time.Time
}

// Option customizes a Limiter
type Option func(*Limiter)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithStore replaces the default in-memory bucket store
func WithStore(store BucketStore) Option {
	return func(l *Limiter) {
		l.store = store
	}
}

// New creates a limiter backed by an empty in-memory bucket map
func New(opts ...Option) *Limiter {
	l := &Limiter{
		store: NewMemoryStore(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key builds the "<operation>:<clientIdentity>" bucket key
func Key(operation, client string) string {
	return operation + ":" + client
}

// Check counts one request against key. The window starts on the first request and
// resets once now is past ResetAt. A request is denied once count >= limit.
func (l *Limiter) Check(key string, limit int, window time.Duration) Result {
	now := l.now()
	var res Result

	l.store.Update(key, func(b *Bucket) {
		if b.ResetAt.IsZero() || now.After(b.ResetAt) {
			b.Key = key
			b.Count = 0
			b.ResetAt = now.Add(window)
		}

		if b.Count >= limit {
			res = Result{Allowed: false, Remaining: 0, ResetAt: b.ResetAt}
			return
		}

		b.Count++
		res = Result{Allowed: true, Remaining: limit - b.Count, ResetAt: b.ResetAt}
	})

	return res
}

// MemoryStore keeps buckets in a mutex-guarded map
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*Bucket)}
}

func (s *MemoryStore) Update(key string, fn func(b *Bucket)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = &Bucket{Key: key}
		s.buckets[key] = b
	}
	fn(b)
}

// Len returns the number of buckets held (for debugging/monitoring)
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Now reads the limiter's clock
func (l *Limiter) Now() time.Time {
	return l.now()
}
