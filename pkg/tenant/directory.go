package tenant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is applied when no TTL is configured or the configured
	// value is below MinTTL.
	DefaultTTL = 5 * time.Minute

	// MinTTL is the lower bound for cache TTL. Anything below this
	// effectively disables caching and turns every request into a
	// storage query.
	MinTTL = time.Second

	// DefaultLookupTimeout bounds the storage query behind a cache miss.
	DefaultLookupTimeout = 5 * time.Second

	janitorInterval = time.Minute
)

// Stats is a read-only snapshot of directory state for observability.
// Size counts raw map entries, so each live tenant contributes two
// (one per alias).
type Stats struct {
	Size   int           `json:"size"`
	Hits   int64         `json:"hits"`
	Misses int64         `json:"misses"`
	TTL    time.Duration `json:"ttl"`
}

type dirEntry struct {
	tenant    *Tenant
	expiresAt time.Time
}

// Directory is a process-local, TTL-based, dual-keyed tenant cache with
// load-through to a Provider. Every live tenant is stored under two
// alias keys, "id:<uuid>" and "code:<code>", which are always written
// and invalidated together. Concurrent misses for the same key are
// coalesced into a single storage query.
type Directory struct {
	provider      Provider
	ttl           time.Duration
	lookupTimeout time.Duration
	log           *slog.Logger

	mu      sync.Mutex
	entries map[string]dirEntry

	hits   atomic.Int64
	misses atomic.Int64
	group  singleflight.Group

	stop   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithTTL sets the cache TTL. Non-positive values are ignored.
// Config.DirectoryOptions applies the MinTTL floor for
// environment-driven values.
func WithTTL(ttl time.Duration) DirectoryOption {
	return func(d *Directory) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithLookupTimeout bounds the storage query issued on a cache miss.
func WithLookupTimeout(timeout time.Duration) DirectoryOption {
	return func(d *Directory) {
		if timeout > 0 {
			d.lookupTimeout = timeout
		}
	}
}

// WithDirectoryLogger sets the logger used for invalidation debug
// output. Logging is optional; a nil logger disables it.
func WithDirectoryLogger(log *slog.Logger) DirectoryOption {
	return func(d *Directory) {
		d.log = log
	}
}

// NewDirectory creates a directory backed by the given provider and
// starts its expiry janitor. Callers must Close the directory when done.
func NewDirectory(provider Provider, opts ...DirectoryOption) *Directory {
	d := &Directory{
		provider:      provider,
		ttl:           DefaultTTL,
		lookupTimeout: DefaultLookupTimeout,
		entries:       make(map[string]dirEntry),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	go d.janitor()

	return d
}

// Resolve looks up a tenant by key, case-insensitively, serving from
// cache when a live entry exists under either alias namespace and
// loading through to storage otherwise. A storage hit populates both
// alias keys with a fresh TTL. Returns ErrTenantNotFound when neither
// cache nor storage knows the key, and ErrResolutionTimeout when the
// storage query exceeds the lookup timeout.
func (d *Directory) Resolve(ctx context.Context, key Key) (*Tenant, error) {
	if key.IsZero() {
		return nil, ErrInvalidTenantKey
	}
	if d.closed.Load() {
		return nil, ErrDirectoryClosed
	}

	if t, ok := d.cached(key); ok {
		d.hits.Add(1)
		return t, nil
	}
	d.misses.Add(1)

	// Coalesce concurrent misses for the same key into one storage
	// query. The flight runs on a context detached from the first
	// caller so one canceled request cannot fail the whole herd.
	v, err, _ := d.group.Do(key.Norm(), func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.lookupTimeout)
		defer cancel()
		return d.load(lctx, key)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Join(ErrResolutionTimeout, err)
		}
		return nil, err
	}

	return v.(*Tenant), nil
}

// cached probes the canonical alias for the key and drops the alias
// pair when expired, so a dead alias never lingers alone. Key.Norm
// canonicalizes both shapes, which keeps non-canonical uuid spellings
// (compact hex, urn form) hitting the same id alias that store wrote.
func (d *Directory) cached(key Key) (*Tenant, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.entries[key.Norm()]
	if !ok && key.IsID() {
		// A uuid-shaped value may still be someone's code.
		entry, ok = d.entries["code:"+strings.ToLower(key.String())]
	}
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(d.entries, "id:"+entry.tenant.ID.String())
		delete(d.entries, "code:"+strings.ToLower(entry.tenant.Code))
		return nil, false
	}
	return entry.tenant, true
}

func (d *Directory) load(ctx context.Context, key Key) (*Tenant, error) {
	var (
		t   *Tenant
		err error
	)
	if key.IsID() {
		t, err = d.provider.FindByID(ctx, key.ID())
		if errors.Is(err, ErrTenantNotFound) {
			// A UUID-shaped value may still be someone's code.
			t, err = d.provider.FindByCode(ctx, strings.ToLower(key.String()))
		}
	} else {
		t, err = d.provider.FindByCode(ctx, key.Code())
	}
	if err != nil {
		return nil, err
	}

	d.store(t)
	return t, nil
}

// store writes both alias keys with a shared expiry so that either
// both resolve to the same record or neither is present.
func (d *Directory) store(t *Tenant) {
	expiresAt := time.Now().Add(d.ttl)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries["id:"+t.ID.String()] = dirEntry{tenant: t, expiresAt: expiresAt}
	d.entries["code:"+strings.ToLower(t.Code)] = dirEntry{tenant: t, expiresAt: expiresAt}
}

// Invalidate removes every cache entry whose underlying tenant id or
// code matches the given key, so both aliases disappear together no
// matter which one the caller holds. Returns the number of entries
// removed. Tenant administration must call this after any create,
// rename, or status change.
func (d *Directory) Invalidate(key string) int {
	norm := strings.ToLower(strings.TrimSpace(key))
	if norm == "" {
		return 0
	}

	d.mu.Lock()
	removed := 0
	for k, e := range d.entries {
		if e.tenant.ID.String() == norm || strings.ToLower(e.tenant.Code) == norm {
			delete(d.entries, k)
			removed++
		}
	}
	d.mu.Unlock()

	if removed > 0 && d.log != nil {
		d.log.Debug("invalidated tenant cache entries",
			slog.String("key", norm),
			slog.Int("removed", removed),
		)
	}
	return removed
}

// Clear drops all cache entries. Counters are preserved.
func (d *Directory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.entries)
}

// Stats returns a snapshot of cache state without mutating it.
func (d *Directory) Stats() Stats {
	d.mu.Lock()
	size := len(d.entries)
	d.mu.Unlock()

	return Stats{
		Size:   size,
		Hits:   d.hits.Load(),
		Misses: d.misses.Load(),
		TTL:    d.ttl,
	}
}

// TTL returns the configured cache TTL.
func (d *Directory) TTL() time.Duration { return d.ttl }

func (d *Directory) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	defer close(d.done)

	for {
		select {
		case <-ticker.C:
			d.sweep()
		case <-d.stop:
			return
		}
	}
}

func (d *Directory) sweep() {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	for k, e := range d.entries {
		if now.After(e.expiresAt) {
			delete(d.entries, k)
		}
	}
}

// Close stops the janitor and marks the directory closed.
// It is idempotent.
func (d *Directory) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	close(d.stop)
	<-d.done
	return nil
}
