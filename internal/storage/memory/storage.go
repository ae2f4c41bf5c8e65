package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	captionSets map[model.Page]*model.CaptionSet
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		captionSets: make(map[model.Page]*model.CaptionSet),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Caption operations

func (s *Storage) SaveCaptionSet(ctx context.Context, set *model.CaptionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captionSets[set.Page] = cloneSet(set)
	return nil
}

func (s *Storage) GetCaptionSet(ctx context.Context, page model.Page) (*model.CaptionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.captionSets[page]
	if !ok {
		return nil, model.ErrCaptionsNotFound
	}
	return cloneSet(set), nil
}

func (s *Storage) DeleteCaptionSet(ctx context.Context, page model.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.captionSets, page)
	return nil
}

func (s *Storage) ListPages(ctx context.Context) ([]model.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages := make([]model.Page, 0, len(s.captionSets))
	for page := range s.captionSets {
		pages = append(pages, page)
	}
	slices.Sort(pages)
	return pages, nil
}

// cloneSet copies a set so callers can't mutate stored state
func cloneSet(set *model.CaptionSet) *model.CaptionSet {
	out := *set
	out.Captions = slices.Clone(set.Captions)
	return &out
}
