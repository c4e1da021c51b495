// Package companion holds the static AI-companion catalog an entry can be
// routed to. There is no inference or messaging behind it: opening a
// conversation only records which character was picked for which entry.
package companion

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/shore/internal/domain"
)

// OpeningPrompt is shown when a conversation starts
const OpeningPrompt = "Speak your thoughts"

var ErrUnknownCharacter = errors.New("unknown character")

// Character is a selectable companion persona
type Character struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

var characters = []Character{
	{Slug: "qing", Name: "小晴", Image: "ai1", Description: "A gentle listener who keeps you company through what is on your mind."},
	{Slug: "yu", Name: "小宇", Image: "ai2", Description: "A rational analyst who helps you untangle your thoughts."},
	{Slug: "le", Name: "小樂", Image: "ai3", Description: "A positive partner with encouragement and support."},
}

// Characters returns the catalog in display order
func Characters() []Character {
	return append([]Character{}, characters...)
}

// Lookup finds a character by slug or display name
func Lookup(key string) (Character, error) {
	key = strings.TrimSpace(key)
	for _, c := range characters {
		if strings.EqualFold(c.Slug, key) || c.Name == key {
			return c, nil
		}
	}
	return Character{}, fmt.Errorf("%w: %q", ErrUnknownCharacter, key)
}

// Conversation is the placeholder opened for an entry
type Conversation struct {
	ID        string    `json:"id"`
	EntryID   string    `json:"entry_id"`
	Character Character `json:"character"`
	Prompt    string    `json:"prompt"`
	StartedAt time.Time `json:"started_at"`
}

// Start opens a conversation about entry with the chosen character
func Start(entry domain.Entry, character string, now time.Time) (Conversation, error) {
	c, err := Lookup(character)
	if err != nil {
		return Conversation{}, err
	}
	return Conversation{
		ID:        uuid.New().String(),
		EntryID:   entry.ID,
		Character: c,
		Prompt:    OpeningPrompt,
		StartedAt: now,
	}, nil
}

// Action is something the user can do with a selected entry
type Action struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Available bool   `json:"available"`
}

// Actions lists the per-entry actions. Only chat and burn are backed.
func Actions() []Action {
	return []Action{
		{Key: "chat", Label: "AI對話", Available: true},
		{Key: "reframe", Label: "轉化練習", Available: false},
		{Key: "guided", Label: "引導式寫作", Available: false},
		{Key: "burn", Label: "燒毀掉", Available: true},
	}
}
