package reorder

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrInvalidIndex = errors.New("index out of range")
	ErrDuplicateID  = errors.New("duplicate item id")
	ErrEmptyID      = errors.New("item id is required")
)

// Item is one reorderable entry. Identity is by ID, never by position.
type Item struct {
	ID      string
	Order   int // 1-based; equals position+1 at rest
	Payload interface{}
}

// Snapshot is an immutable copy of a list, taken right before an optimistic reorder.
type Snapshot struct {
	items []Item
}

// Items returns a copy of the snapshot's items.
func (snap Snapshot) Items() []Item {
	return copyItems(snap.items)
}

func (snap Snapshot) Len() int { return len(snap.items) }

// Store holds the authoritative ordered list.
// Only the commit path mutates it while a drag is in progress.
type Store struct {
	mu    sync.RWMutex
	items []Item
}

// NewStore orders items by their Order (then by input position) and renumbers them 1..N.
func NewStore(items []Item) (*Store, error) {
	normalized, err := normalize(items)
	if err != nil {
		return nil, err
	}
	return &Store{items: normalized}, nil
}

func normalize(items []Item) ([]Item, error) {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ID == "" {
			return nil, ErrEmptyID
		}
		if seen[it.ID] {
			return nil, errors.Wrap(ErrDuplicateID, it.ID)
		}
		seen[it.ID] = true
	}

	out := copyItems(items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	renumber(out)
	return out, nil
}

func copyItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func renumber(items []Item) {
	for i := range items {
		items[i].Order = i + 1
	}
}

// Items returns a copy of the current sequence.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyItems(s.items)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// At returns the item at index.
func (s *Store) At(index int) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.items) {
		return Item{}, false
	}
	return s.items[index], true
}

// IDs returns the item IDs in order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.items))
	for _, it := range s.items {
		ids = append(ids, it.ID)
	}
	return ids
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{items: copyItems(s.items)}
}

// Reorder moves the item at fromIndex to toIndex; every other item shifts by at most one slot.
// On error the store is left untouched.
func (s *Store) Reorder(fromIndex, toIndex int) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	moved, err := Move(s.items, fromIndex, toIndex)
	if err != nil {
		return nil, err
	}
	s.items = moved
	return copyItems(moved), nil
}

// Restore puts the store back to snap exactly.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = copyItems(snap.items)
}

// Replace installs a new authoritative sequence, normalized like NewStore.
func (s *Store) Replace(items []Item) error {
	normalized, err := normalize(items)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = normalized
	return nil
}

// Move returns a new sequence with the element at from reinserted at to, orders renumbered 1..N.
// items is not modified.
func Move(items []Item, from, to int) ([]Item, error) {
	n := len(items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, ErrInvalidIndex
	}

	out := make([]Item, 0, n)
	moved := items[from]
	for i, it := range items {
		if i == from {
			continue
		}
		out = append(out, it)
	}
	out = append(out[:to], append([]Item{moved}, out[to:]...)...)
	renumber(out)
	return out, nil
}
