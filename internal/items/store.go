package items

import (
	"fmt"
	"sort"
	"sync"

	"reqlog/internal/domain"
)

// Item is a single stored record.
type Item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Store is an in-memory item store safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	items  map[int]Item
	nextID int
}

// NewStore returns a store seeded with one item per name, numbered from 1.
func NewStore(seed ...string) *Store {
	s := &Store{items: make(map[int]Item), nextID: 1}
	for _, name := range seed {
		s.Create(name)
	}
	return s
}

// List returns all items ordered by ID.
func (s *Store) List() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the item with the given ID.
func (s *Store) Get(id int) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return Item{}, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	return it, nil
}

// Create stores a new item and returns it with its assigned ID.
func (s *Store) Create(name string) Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := Item{ID: s.nextID, Name: name}
	s.items[it.ID] = it
	s.nextID++
	return it
}
