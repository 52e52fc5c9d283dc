// Package gallery holds the session's matching gallery: the set of enrolled
// embeddings fetched once at startup and treated as immutable until the
// agent restarts.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"faceclock/pkg/hrapi"
	"faceclock/pkg/logging"
)

// ErrCacheNotReady is returned for match attempts before the gallery has
// finished loading.
var ErrCacheNotReady = errors.New("embedding gallery not loaded yet")

// ErrCacheLoadFailed is returned once the gallery load has failed. It is
// fatal for the session: identity cannot be verified until restart.
var ErrCacheLoadFailed = errors.New("embedding gallery load failed")

// State is the cache lifecycle state.
type State int

const (
	StateNotLoaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotLoaded:
		return "not_loaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Entry is one enrolled identity eligible for matching.
type Entry struct {
	Email     string
	Name      string
	Embedding []float64
}

// Fetcher fetches the raw gallery from the identity service.
type Fetcher interface {
	FetchGallery(ctx context.Context) ([]hrapi.Person, error)
}

// Cache is the per-session gallery. Load runs once; afterwards Entries is
// immutable shared read-only state.
type Cache struct {
	mu      sync.Mutex
	fetcher Fetcher
	state   State
	entries []Entry
	loadErr error
	done    chan struct{}
}

// NewCache returns an unloaded cache over the given fetcher.
func NewCache(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher: fetcher,
		done:    make(chan struct{}),
	}
}

// Load fetches the gallery. It runs the fetch at most once: concurrent and
// repeated calls share the single outcome. Entries without an embedding
// are excluded from matching (incomplete enrollment); duplicate emails
// resolve last-write-wins; the result is ordered by email so tie-breaks
// during matching are deterministic.
func (c *Cache) Load(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateReady:
		c.mu.Unlock()
		return nil
	case StateFailed:
		err := c.loadErr
		c.mu.Unlock()
		return err
	case StateLoading:
		c.mu.Unlock()
		return c.WaitReady(ctx)
	}
	c.state = StateLoading
	c.mu.Unlock()

	people, err := c.fetcher.FetchGallery(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(c.done)

	if err != nil {
		c.state = StateFailed
		c.loadErr = fmt.Errorf("%w: %v", ErrCacheLoadFailed, err)
		logging.Component("gallery").WithError(err).Error("gallery load failed, matching disabled for this session")
		return c.loadErr
	}

	byEmail := make(map[string]hrapi.Person, len(people))
	for _, p := range people {
		if p.Email == "" {
			continue
		}
		byEmail[p.Email] = p
	}

	skipped := 0
	entries := make([]Entry, 0, len(byEmail))
	for _, p := range byEmail {
		if len(p.Embedding) == 0 {
			skipped++
			continue
		}
		entries = append(entries, Entry{Email: p.Email, Name: p.Name, Embedding: p.Embedding})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Email < entries[j].Email })

	c.entries = entries
	c.state = StateReady
	logging.Component("gallery").WithFields(logging.Fields{
		"eligible": len(entries),
		"skipped":  skipped,
	}).Info("gallery loaded")
	return nil
}

// Entries returns the eligible gallery, or the readiness error.
func (c *Cache) Entries() ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateReady:
		return c.entries, nil
	case StateFailed:
		return nil, c.loadErr
	}
	return nil, ErrCacheNotReady
}

// WaitReady blocks until the load has settled or the context expires. The
// returned error mirrors Entries: nil when ready, the load error when
// failed.
func (c *Cache) WaitReady(ctx context.Context) error {
	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateFailed {
		return c.loadErr
	}
	return nil
}

// State reports the cache lifecycle state.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
