// Package session stores widget view state per browser session.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gometeo/widget/internal/widget"
)

// Store is a widget.Store that can be health-checked and closed.
type Store interface {
	widget.Store
	Ping(ctx context.Context) error
	Close() error
}

type memoryEntry struct {
	state   widget.State
	expires time.Time
}

// MemoryStore keeps view state in process memory. Entries expire after ttl
// without updates.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (widget.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || m.now().After(e.expires) {
		return widget.State{}, nil
	}
	return e.state.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*widget.State)) (widget.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var st widget.State
	if e, ok := m.entries[id]; ok && !m.now().After(e.expires) {
		st = e.state.Clone()
	}
	fn(&st)
	m.entries[id] = &memoryEntry{state: st.Clone(), expires: m.now().Add(m.ttl)}
	return st, nil
}

// Sweep drops expired entries and reports how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for id, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, id)
			n++
		}
	}
	return n
}

// RunJanitor sweeps expired entries every interval until ctx is done.
func (m *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
