// Package store holds the folder and note collections in memory and writes
// every change through to a storage backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vinizap/foldnote/domain"
	"github.com/vinizap/foldnote/storage"
)

// ErrPersist is returned when a mutation was applied in memory but the
// write-through failed. The collection keeps the new state.
var ErrPersist = errors.New("persist collection")

// Store is an ordered collection keyed by id. Every mutating method saves
// the whole resulting collection before it returns.
type Store[T any] struct {
	mu      sync.RWMutex
	key     string
	idOf    func(T) string
	items   []T
	backend storage.Backend
	log     zerolog.Logger
}

type (
	FolderStore = Store[domain.Folder]
	NoteStore   = Store[domain.Note]
)

// New seeds a store from whatever is saved under key. A corrupt saved value
// is logged and treated as an empty collection; any other read failure is
// returned.
func New[T any](ctx context.Context, backend storage.Backend, key string, idOf func(T) string, log zerolog.Logger) (*Store[T], error) {
	log = log.With().Str("key", key).Logger()

	items, err := storage.Load[T](ctx, backend, key)
	if errors.Is(err, storage.ErrCorrupt) {
		log.Warn().Err(err).Msg("discarding unreadable saved data")
	} else if err != nil {
		return nil, err
	}

	log.Debug().Int("count", len(items)).Msg("store loaded")

	return &Store[T]{
		key:     key,
		idOf:    idOf,
		items:   items,
		backend: backend,
		log:     log,
	}, nil
}

func NewFolderStore(ctx context.Context, backend storage.Backend, log zerolog.Logger) (*FolderStore, error) {
	return New(ctx, backend, domain.FoldersKey, domain.FolderID, log)
}

func NewNoteStore(ctx context.Context, backend storage.Backend, log zerolog.Logger) (*NoteStore, error) {
	return New(ctx, backend, domain.NotesKey, domain.NoteID, log)
}

// All returns a copy of the collection in insertion order.
func (s *Store[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if s.idOf(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// SetAll replaces the whole collection.
func (s *Store[T]) SetAll(ctx context.Context, items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = slices.Clone(items)
	if s.items == nil {
		s.items = []T{}
	}
	return s.persist(ctx, "set_all")
}

// Add appends item. Uniqueness of ids and slugs is the caller's concern.
func (s *Store[T]) Add(ctx context.Context, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, item)
	return s.persist(ctx, "add")
}

// Delete removes the entry with the given id. Deleting an unknown id still
// rewrites the unchanged collection.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = slices.DeleteFunc(s.items, func(item T) bool {
		return s.idOf(item) == id
	})
	return s.persist(ctx, "delete")
}

// Update replaces every entry whose id matches item's id.
func (s *Store[T]) Update(ctx context.Context, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.idOf(item)
	for i := range s.items {
		if s.idOf(s.items[i]) == id {
			s.items[i] = item
		}
	}
	return s.persist(ctx, "update")
}

// persist must be called with s.mu held.
func (s *Store[T]) persist(ctx context.Context, op string) error {
	if err := storage.Save(ctx, s.backend, s.key, s.items); err != nil {
		s.log.Warn().Err(err).Str("op", op).Int("count", len(s.items)).Msg("write-through failed, keeping change in memory")
		return fmt.Errorf("%w %q: %w", ErrPersist, s.key, err)
	}
	return nil
}
