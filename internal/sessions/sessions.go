// Package sessions provides the in-memory session cache. A session is the
// cached result of one successful metadata resolution, read-only after
// creation and kept for the process lifetime.
package sessions

import (
	"context"
	"log/slog"
	"sync"

	"instadl/internal/entity"
	"instadl/pkg/gen"
)

// Cache maps opaque session ids to resolved content metadata. Writes are
// rare relative to reads, so a single RWMutex is enough.
type Cache struct {
	log *slog.Logger

	mu       sync.RWMutex
	sessions map[string]entity.Session
}

// New creates an empty session cache.
func New(log *slog.Logger) *Cache {
	return &Cache{
		log:      log.With(slog.String("package", "sessions")),
		sessions: make(map[string]entity.Session),
	}
}

// Put stores a session under a fresh id and returns the id.
func (c *Cache) Put(ctx context.Context, session entity.Session) string {
	id := gen.ID()

	c.mu.Lock()
	c.sessions[id] = session
	c.mu.Unlock()

	c.log.DebugContext(ctx, "session stored", slog.String("session_id", id), "session", session)

	return id
}

// Get returns a copy of the session for the given id.
func (c *Cache) Get(_ context.Context, id string) (entity.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	session, ok := c.sessions[id]

	return session, ok
}

// Len reports the number of cached sessions.
func (c *Cache) Len(_ context.Context) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.sessions)
}
