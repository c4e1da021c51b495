package companion

import (
	"errors"
	"testing"
	"time"

	"github.com/pbaille/shore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	cs := Characters()
	require.Len(t, cs, 3)
	assert.Equal(t, []string{"qing", "yu", "le"}, []string{cs[0].Slug, cs[1].Slug, cs[2].Slug})

	cs[0].Name = "changed"
	assert.Equal(t, "小晴", Characters()[0].Name)
}

func TestLookup(t *testing.T) {
	c, err := Lookup("YU")
	require.NoError(t, err)
	assert.Equal(t, "小宇", c.Name)

	c, err = Lookup("小樂")
	require.NoError(t, err)
	assert.Equal(t, "le", c.Slug)

	_, err = Lookup("nobody")
	assert.True(t, errors.Is(err, ErrUnknownCharacter))
}

func TestStart(t *testing.T) {
	now := time.Date(2025, 5, 19, 10, 0, 0, 0, time.UTC)
	entry := domain.Entry{ID: "entry-1", Content: "heavy day"}

	conv, err := Start(entry, "qing", now)
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "entry-1", conv.EntryID)
	assert.Equal(t, "qing", conv.Character.Slug)
	assert.Equal(t, OpeningPrompt, conv.Prompt)
	assert.Equal(t, now, conv.StartedAt)

	_, err = Start(entry, "", now)
	assert.True(t, errors.Is(err, ErrUnknownCharacter))
}

func TestActions(t *testing.T) {
	var available []string
	for _, a := range Actions() {
		if a.Available {
			available = append(available, a.Key)
		}
	}
	assert.Equal(t, []string{"chat", "burn"}, available)
}
