// Package statuscache keeps the last observed status of each session.
//
// The cache is never authoritative: entries only record what a backend
// response said at ObservedAt.
package statuscache

import (
	"sync"
	"time"

	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
)

// Key identifies a session.
type Key struct {
	UserID    string
	SessionID string
}

// Entry is one cached observation.
type Entry struct {
	Status       protocol.SessionStatus
	LastQuery    string
	LastResponse *protocol.TurnResponse
	ObservedAt   time.Time
}

// Cache is safe for concurrent use and may be shared between drivers.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[Key]Entry),
		now:     time.Now,
	}
}

// Observe records a status taken from a backend response.
func (c *Cache) Observe(key Key, status protocol.SessionStatus, lastQuery string, last *protocol.TurnResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{
		Status:       status,
		LastQuery:    lastQuery,
		LastResponse: last,
		ObservedAt:   c.now(),
	}
}

// ObserveReport records a full status report.
func (c *Cache) ObserveReport(key Key, report *protocol.StatusReport) {
	c.Observe(key, report.Status, report.LastQuery, report.LastResponse)
}

// Peek returns the cached entry without invalidating it.
func (c *Cache) Peek(key Key) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]

	return entry, ok
}

// Take returns the cached entry and removes it, so a cached value is used at
// most once before the backend confirms it again.
func (c *Cache) Take(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}

	return entry, ok
}

// Forget drops the entry for key.
func (c *Cache) Forget(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len returns the number of cached sessions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
