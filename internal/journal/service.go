package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pbaille/shore/internal/domain"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when an id or prefix matches no entry
	ErrNotFound = errors.New("entry not found")
	// ErrAmbiguousID is returned when a prefix matches several entries
	ErrAmbiguousID = errors.New("ambiguous id")
)

// Repository is durable storage for a session's entries
type Repository interface {
	Load(ctx context.Context) ([]domain.Entry, error)
	Save(ctx context.Context, entries []domain.Entry) error
}

// Service binds a Store to an optional Repository.
// With a nil repository the session lives in memory only.
type Service struct {
	store *Store
	repo  Repository
	log   zerolog.Logger

	// serializes mutate+save so each Save sees a consistent snapshot
	writeMu sync.Mutex
}

// NewService creates a Service
func NewService(store *Store, repo Repository, log zerolog.Logger) *Service {
	return &Service{store: store, repo: repo, log: log.With().Str("component", "journal").Logger()}
}

// Store exposes the underlying store for read access and subscriptions
func (s *Service) Store() *Store {
	return s.store
}

// Open loads the persisted sequence into the store
func (s *Service) Open(ctx context.Context) error {
	if s.repo == nil {
		s.log.Debug().Msg("no repository, starting empty session")
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entries, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	if err := s.store.Replace(entries); err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	s.log.Debug().Int("entries", len(entries)).Msg("session opened")
	return nil
}

// Add validates and inserts a new entry, then persists the sequence.
// If persisting fails the entry is taken back out.
func (s *Service) Add(ctx context.Context, content string, opts ...EntryOption) (domain.Entry, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entry, err := s.store.Add(content, opts...)
	if err != nil {
		s.log.Debug().Err(err).Msg("add rejected")
		return domain.Entry{}, err
	}

	if err := s.save(ctx); err != nil {
		s.store.Remove(entry.ID)
		s.log.Error().Err(err).Str("id", entry.ID).Msg("save after add failed")
		return domain.Entry{}, fmt.Errorf("add entry: %w", err)
	}

	s.log.Debug().Str("id", entry.ID).Int("size", s.store.Len()).Msg("entry added")
	return entry, nil
}

// Remove deletes an entry and persists the sequence.
// A missing id returns false and nil without touching storage.
func (s *Service) Remove(ctx context.Context, id string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entry, idx, ok := s.store.take(id)
	if !ok {
		return false, nil
	}

	if err := s.save(ctx); err != nil {
		s.store.restore(entry, idx)
		s.log.Error().Err(err).Str("id", id).Msg("save after remove failed")
		return false, fmt.Errorf("remove entry: %w", err)
	}

	s.log.Debug().Str("id", id).Int("size", s.store.Len()).Msg("entry removed")
	return true, nil
}

// Entries returns all entries, newest first
func (s *Service) Entries() []domain.Entry {
	return s.store.Entries()
}

// Get returns a single entry
func (s *Service) Get(id string) (domain.Entry, bool) {
	return s.store.Get(id)
}

// Days returns the non-empty days, newest first
func (s *Service) Days() []domain.Day {
	return s.store.Days()
}

// Day returns one day's entries
func (s *Service) Day(d domain.Day) []domain.Entry {
	return s.store.Day(d)
}

// GroupByDay returns every day bucket
func (s *Service) GroupByDay() map[domain.Day][]domain.Entry {
	return s.store.GroupByDay()
}

// FindByPrefix resolves a short id prefix to a full entry.
// Ambiguous prefixes are reported as errors.
func (s *Service) FindByPrefix(prefix string) (domain.Entry, error) {
	if prefix == "" {
		return domain.Entry{}, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	if e, ok := s.store.Get(prefix); ok {
		return e, nil
	}

	var found []domain.Entry
	for _, e := range s.store.Entries() {
		if strings.HasPrefix(e.ID, prefix) {
			found = append(found, e)
		}
	}
	switch len(found) {
	case 0:
		return domain.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return found[0], nil
	default:
		return domain.Entry{}, fmt.Errorf("%w: %s matches %d entries", ErrAmbiguousID, prefix, len(found))
	}
}

func (s *Service) save(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Save(ctx, s.store.Entries())
}
