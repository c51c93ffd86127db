package links

import (
	"sync"
	"time"

	"gorm.io/gorm"
)

// State is a snapshot of all links with their click history. It is refreshed
// by re-reading the full list; nothing in it is mutated in place.
type State struct {
	mu          sync.RWMutex
	load        func() ([]Link, error)
	links       []Link
	refreshedAt time.Time
}

// NewState returns an empty snapshot backed by db.
func NewState(db *gorm.DB) *State {
	return &State{load: func() ([]Link, error) { return ListLinks(db) }}
}

// NewStateFromLinks wraps an already loaded list.
func NewStateFromLinks(all []Link) *State {
	s := &State{load: func() ([]Link, error) { return all, nil }}
	s.links = all
	s.refreshedAt = time.Now().UTC()
	return s
}

// Refresh replaces the snapshot. On error the previous snapshot is kept.
func (s *State) Refresh() error {
	all, err := s.load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.links = all
	s.refreshedAt = time.Now().UTC()
	s.mu.Unlock()
	return nil
}

// Links returns the current snapshot, newest first.
func (s *State) Links() []Link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Link(nil), s.links...)
}

// RefreshedAt reports when the snapshot was last loaded.
func (s *State) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

// Find looks a slug up in the snapshot.
func (s *State) Find(slug string) (Link, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, link := range s.links {
		if link.Slug == slug {
			return link, true
		}
	}
	return Link{}, false
}

// FindByID looks an id up in the snapshot.
func (s *State) FindByID(id uint) (Link, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, link := range s.links {
		if link.ID == id {
			return link, true
		}
	}
	return Link{}, false
}
