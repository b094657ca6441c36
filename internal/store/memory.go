package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory ItemStore.
type MemoryStore struct {
	mu     sync.RWMutex
	lists  map[string][]Item
	nextID int64
	closed bool
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lists: make(map[string][]Item),
		now:   time.Now,
	}
}

// Create implements ItemStore.
func (m *MemoryStore) Create(ctx context.Context, list, title string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	list, title, err := validate(list, title)
	if err != nil {
		return Item{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Item{}, ErrClosed
	}
	m.nextID++
	item := Item{ID: m.nextID, List: list, Title: title, CreatedAt: m.now().UTC()}
	m.lists[list] = append(m.lists[list], item)
	return item, nil
}

// List implements ItemStore.
func (m *MemoryStore) List(ctx context.Context, list string) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	items := m.lists[strings.TrimSpace(list)]
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}

// Close implements ItemStore.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.lists = nil
	return nil
}
