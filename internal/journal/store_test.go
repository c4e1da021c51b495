package journal

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pbaille/shore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock hands out times that advance by step on every call
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func newTestStore(start time.Time, step time.Duration) *Store {
	clock := &fakeClock{t: start, step: step}
	return New(WithClock(clock.Now), WithLocation(time.UTC), WithIDGenerator(seqIDs()))
}

func contents(entries []domain.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Content
	}
	return out
}

func TestAddRemoveScenario(t *testing.T) {
	s := New()

	_, err := s.Add("  ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmptyContent))
	assert.Equal(t, 0, s.Len())

	first, err := s.Add("Feeling okay today")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "Feeling okay today", first.Content)

	second, err := s.Add("Another note")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"Another note", "Feeling okay today"}, contents(s.Entries()))

	assert.True(t, s.Remove(second.ID))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{"Feeling okay today"}, contents(s.Entries()))
}

func TestAddTrimsAndPrepends(t *testing.T) {
	s := newTestStore(time.Date(2025, 5, 19, 9, 0, 0, 0, time.UTC), time.Minute)

	for i, in := range []string{"\n first \t", "second", "  third"} {
		before := s.Len()
		e, err := s.Add(in)
		require.NoError(t, err, "input %d", i)
		assert.Equal(t, before+1, s.Len())
		assert.Equal(t, e.ID, s.Entries()[0].ID)
	}
	assert.Equal(t, []string{"third", "second", "first"}, contents(s.Entries()))
}

func TestAddRejectsBlankInput(t *testing.T) {
	s := New()
	_, err := s.Add("kept")
	require.NoError(t, err)
	snapshot := s.Entries()

	for _, in := range []string{"", " ", "\n\t", "  \r\n"} {
		_, err := s.Add(in)
		assert.True(t, domain.IsValidation(err), "input %q", in)
		assert.Equal(t, snapshot, s.Entries())
	}
}

func TestAddOptions(t *testing.T) {
	s := New()

	e, err := s.Add("rainy", WithEmotion(domain.Calm), WithTags("weather", " ", " walk "))
	require.NoError(t, err)
	require.NotNil(t, e.Emotion)
	assert.Equal(t, domain.Calm, *e.Emotion)
	assert.Equal(t, []string{"weather", "walk"}, e.Tags)

	plain, err := s.Add("no extras")
	require.NoError(t, err)
	assert.False(t, plain.HasEmotion())
	assert.Empty(t, plain.Tags)

	_, err = s.Add("bad", WithEmotion(domain.Emotion("bored")))
	assert.True(t, errors.Is(err, domain.ErrInvalidEmotion))
	assert.Equal(t, 2, s.Len())
}

func TestReturnedEntriesAreCopies(t *testing.T) {
	s := New()
	e, err := s.Add("original", WithTags("a"))
	require.NoError(t, err)

	e.Tags[0] = "mutated"
	all := s.Entries()
	all[0].Tags[0] = "mutated too"

	got, ok := s.Get(e.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, got.Tags)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := New()
	a, _ := s.Add("a")
	_, _ = s.Add("b")

	assert.True(t, s.Remove(a.ID))
	snapshot := s.Entries()
	assert.False(t, s.Remove(a.ID))
	assert.Equal(t, snapshot, s.Entries())
	assert.False(t, s.Remove("never-existed"))
}

func TestUniqueIDs(t *testing.T) {
	s := New()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		e, err := s.Add(fmt.Sprintf("entry %d", i))
		require.NoError(t, err)
		assert.False(t, seen[e.ID])
		seen[e.ID] = true
	}
}

func TestGroupByDaySameDay(t *testing.T) {
	s := newTestStore(time.Date(2025, 5, 19, 8, 0, 0, 0, time.UTC), 3*time.Hour)
	_, _ = s.Add("morning")
	_, _ = s.Add("noon")

	groups := s.GroupByDay()
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"noon", "morning"}, contents(groups[domain.Day{Year: 2025, Month: time.May, Day: 19}]))
}

func TestGroupByDayPartitionsStore(t *testing.T) {
	s := newTestStore(time.Date(2025, 5, 17, 22, 0, 0, 0, time.UTC), 5*time.Hour)
	for i := 0; i < 20; i++ {
		_, err := s.Add(fmt.Sprintf("n%d", i))
		require.NoError(t, err)
	}
	all := s.Entries()
	groups := s.GroupByDay()

	seen := map[string]int{}
	total := 0
	for day, bucket := range groups {
		total += len(bucket)
		for _, e := range bucket {
			seen[e.ID]++
			assert.Equal(t, day, domain.DayOf(e.Timestamp, time.UTC))
		}

		// bucket order equals store order restricted to that day
		var expected []string
		for _, e := range all {
			if domain.DayOf(e.Timestamp, time.UTC) == day {
				expected = append(expected, e.ID)
			}
		}
		var got []string
		for _, e := range bucket {
			got = append(got, e.ID)
		}
		assert.Equal(t, expected, got)
	}
	assert.Equal(t, len(all), total)
	for _, e := range all {
		assert.Equal(t, 1, seen[e.ID])
	}
}

func TestGroupByDayRespectsLocation(t *testing.T) {
	taipei := time.FixedZone("UTC+8", 8*3600)
	clock := &fakeClock{t: time.Date(2025, 5, 19, 15, 0, 0, 0, time.UTC), step: 2 * time.Hour}
	s := New(WithClock(clock.Now), WithLocation(taipei))

	_, _ = s.Add("late evening in taipei")
	_, _ = s.Add("after midnight in taipei")

	days := s.Days()
	assert.Equal(t, []domain.Day{
		{Year: 2025, Month: time.May, Day: 20},
		{Year: 2025, Month: time.May, Day: 19},
	}, days)
}

func TestIdenticalTimestampsKeepInsertionOrder(t *testing.T) {
	s := newTestStore(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), 0)
	for _, c := range []string{"one", "two", "three"} {
		_, _ = s.Add(c)
	}
	bucket := s.Day(domain.Day{Year: 2025, Month: time.January, Day: 1})
	assert.Equal(t, []string{"three", "two", "one"}, contents(bucket))
}

func TestDaysNewestFirstAndDayMatchesGroup(t *testing.T) {
	s := newTestStore(time.Date(2024, 12, 30, 12, 0, 0, 0, time.UTC), 24*time.Hour)
	for i := 0; i < 4; i++ {
		_, _ = s.Add(fmt.Sprintf("day %d", i))
	}

	days := s.Days()
	require.Len(t, days, 4)
	for i := 1; i < len(days); i++ {
		assert.True(t, days[i].Before(days[i-1]))
	}

	groups := s.GroupByDay()
	for _, d := range days {
		assert.Equal(t, groups[d], s.Day(d))
	}
	assert.Empty(t, s.Day(domain.Day{Year: 1999, Month: time.January, Day: 1}))
}

func TestSortedDaysUsesOneSnapshot(t *testing.T) {
	s := newTestStore(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), 24*time.Hour)
	first, _ := s.Add("first")
	_, _ = s.Add("second")

	groups := s.GroupByDay()
	// a removal after grouping must not leak into the listing built from it
	s.Remove(first.ID)

	days := SortedDays(groups)
	require.Len(t, days, 2)
	assert.Equal(t, "2025-03-02", days[0].String())
	assert.Equal(t, "2025-03-01", days[1].String())
	for _, d := range days {
		assert.Len(t, groups[d], 1)
	}
	assert.Empty(t, SortedDays(nil))
}

func TestGroupingTracksMutations(t *testing.T) {
	s := newTestStore(time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC), 24*time.Hour)
	a, _ := s.Add("a")
	_, _ = s.Add("b")
	require.Len(t, s.GroupByDay(), 2)

	s.Remove(a.ID)
	groups := s.GroupByDay()
	require.Len(t, groups, 1)
	_, stillThere := groups[domain.Day{Year: 2025, Month: time.February, Day: 1}]
	assert.False(t, stillThere)
}

func TestReplace(t *testing.T) {
	s := New()
	_, _ = s.Add("will be replaced")

	loaded := []domain.Entry{
		{ID: "b", Content: "newer", Timestamp: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "a", Content: "older", Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, s.Replace(loaded))
	assert.Equal(t, []string{"newer", "older"}, contents(s.Entries()))

	err := s.Replace([]domain.Entry{{ID: "x"}, {ID: "x"}})
	assert.Error(t, err)
	assert.Equal(t, 2, s.Len())

	assert.Error(t, s.Replace([]domain.Entry{{Content: "no id"}}))
}

func TestSubscribe(t *testing.T) {
	s := New()
	var got []Change
	cancel := s.Subscribe(func(c Change) { got = append(got, c) })

	e, _ := s.Add("hello")
	_, _ = s.Add("   ")
	s.Remove(e.ID)
	s.Remove(e.ID)
	require.NoError(t, s.Replace(nil))

	require.Len(t, got, 3)
	assert.Equal(t, EntryAdded, got[0].Kind)
	assert.Equal(t, e.ID, got[0].Entry.ID)
	assert.Equal(t, EntryRemoved, got[1].Kind)
	assert.Equal(t, StoreReplaced, got[2].Kind)

	cancel()
	_, _ = s.Add("after cancel")
	assert.Len(t, got, 3)
}

func TestTakeAndRestore(t *testing.T) {
	s := newTestStore(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	_, _ = s.Add("c")
	b, _ := s.Add("b")
	_, _ = s.Add("a")

	entry, idx, ok := s.take(b.ID)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, []string{"a", "c"}, contents(s.Entries()))

	s.restore(entry, idx)
	assert.Equal(t, []string{"a", "b", "c"}, contents(s.Entries()))
}
