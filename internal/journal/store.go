// Package journal holds the in-memory entry store for one session and the
// service that binds it to an optional persistence repository.
package journal

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/shore/internal/domain"
)

// ChangeKind describes what happened to the store
type ChangeKind string

const (
	EntryAdded    ChangeKind = "added"
	EntryRemoved  ChangeKind = "removed"
	StoreReplaced ChangeKind = "replaced"
)

// Change is delivered to subscribers after every mutation.
// Entry is the zero value for StoreReplaced.
type Change struct {
	Kind  ChangeKind
	Entry domain.Entry
}

// Store is an ordered, newest-first collection of entries
type Store struct {
	mu      sync.RWMutex
	entries []domain.Entry

	now   func() time.Time
	loc   *time.Location
	newID func() string

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Change)
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for new entries
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone used to decide which day an entry falls on
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithIDGenerator overrides UUID generation
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		loc:   time.Local,
		newID: func() string { return uuid.New().String() },
		subs:  make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the zone used for day bucketing
func (s *Store) Location() *time.Location {
	return s.loc
}

// EntryOption sets optional fields on a new entry
type EntryOption func(*domain.Entry)

// WithEmotion tags the new entry with an emotion
func WithEmotion(e domain.Emotion) EntryOption {
	return func(en *domain.Entry) {
		em := e
		en.Emotion = &em
	}
}

// WithTags attaches labels; blank labels are dropped, order is kept
func WithTags(tags ...string) EntryOption {
	return func(en *domain.Entry) {
		for _, t := range tags {
			if t = strings.TrimSpace(t); t != "" {
				en.Tags = append(en.Tags, t)
			}
		}
	}
}

// Add trims content and inserts a new entry at the front.
// Blank content returns a *domain.ValidationError and leaves the store untouched.
func (s *Store) Add(content string, opts ...EntryOption) (domain.Entry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Entry{}, domain.NewEmptyContentError()
	}

	entry := domain.Entry{
		ID:        s.newID(),
		Content:   content,
		Timestamp: s.now(),
		Tags:      []string{},
	}
	for _, opt := range opts {
		opt(&entry)
	}
	if entry.Emotion != nil && !entry.Emotion.Valid() {
		return domain.Entry{}, domain.NewInvalidEmotionError(string(*entry.Emotion))
	}

	s.mu.Lock()
	s.entries = append([]domain.Entry{entry}, s.entries...)
	s.mu.Unlock()

	s.notify(Change{Kind: EntryAdded, Entry: entry.Clone()})
	return entry.Clone(), nil
}

// Remove deletes the entry with the given id. Missing ids are a no-op.
func (s *Store) Remove(id string) bool {
	_, _, ok := s.take(id)
	return ok
}

// take removes an entry and reports where it was
func (s *Store) take(id string) (domain.Entry, int, bool) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.Entry{}, -1, false
	}
	removed := s.entries[idx]
	s.entries = append(s.entries[:idx:idx], s.entries[idx+1:]...)
	s.mu.Unlock()

	s.notify(Change{Kind: EntryRemoved, Entry: removed.Clone()})
	return removed, idx, true
}

// restore puts a previously removed entry back at idx, clamped to the current length
func (s *Store) restore(entry domain.Entry, idx int) {
	s.mu.Lock()
	if idx < 0 {
		idx = 0
	}
	if idx > len(s.entries) {
		idx = len(s.entries)
	}
	next := make([]domain.Entry, 0, len(s.entries)+1)
	next = append(next, s.entries[:idx]...)
	next = append(next, entry)
	next = append(next, s.entries[idx:]...)
	s.entries = next
	s.mu.Unlock()

	s.notify(Change{Kind: EntryAdded, Entry: entry.Clone()})
}

// Replace swaps in a loaded sequence, newest first. Duplicate ids are rejected.
func (s *Store) Replace(entries []domain.Entry) error {
	seen := make(map[string]struct{}, len(entries))
	next := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("replace: entry with empty id")
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("replace: duplicate id %s", e.ID)
		}
		seen[e.ID] = struct{}{}
		next = append(next, e.Clone())
	}

	s.mu.Lock()
	s.entries = next
	s.mu.Unlock()

	s.notify(Change{Kind: StoreReplaced})
	return nil
}

// Entries returns a snapshot in store order
func (s *Store) Entries() []domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.entries)
}

// Get looks up an entry by id
func (s *Store) Get(id string) (domain.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return domain.Entry{}, false
	}
	return s.entries[idx].Clone(), true
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GroupByDay partitions the entries by local calendar day.
// Each bucket keeps store order, so it is newest-first.
func (s *Store) GroupByDay() map[domain.Day][]domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make(map[domain.Day][]domain.Entry)
	for _, e := range s.entries {
		d := domain.DayOf(e.Timestamp, s.loc)
		groups[d] = append(groups[d], e.Clone())
	}
	return groups
}

// Days returns the days that have entries, most recent first
func (s *Store) Days() []domain.Day {
	return SortedDays(s.GroupByDay())
}

// SortedDays returns the keys of groups, most recent first.
// Pair it with the same GroupByDay result to read counts from one snapshot.
func SortedDays(groups map[domain.Day][]domain.Entry) []domain.Day {
	days := make([]domain.Day, 0, len(groups))
	for d := range groups {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[j].Before(days[i]) })
	return days
}

// Day returns the entries of a single day in store order
func (s *Store) Day(d domain.Day) []domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Entry{}
	for _, e := range s.entries {
		if domain.DayOf(e.Timestamp, s.loc) == d {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Subscribe registers fn for change notifications. Call cancel to stop.
// fn runs synchronously on the mutating goroutine, outside the store lock.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// indexOf must be called with mu held
func (s *Store) indexOf(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(entries []domain.Entry) []domain.Entry {
	out := make([]domain.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}
