package domain

import (
	"strings"
	"time"
)

// Entry is a single journal record
type Entry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Emotion   *Emotion  `json:"emotion,omitempty"`
	Tags      []string  `json:"tags"`
}

// HasEmotion reports whether the entry carries an emotion tag
func (e Entry) HasEmotion() bool {
	return e.Emotion != nil
}

// Clone returns a copy that shares no slices or pointers with e
func (e Entry) Clone() Entry {
	c := e
	if e.Emotion != nil {
		em := *e.Emotion
		c.Emotion = &em
	}
	c.Tags = append([]string{}, e.Tags...)
	return c
}

// Emotion is one of a fixed set of mood tags
type Emotion string

const (
	Happy   Emotion = "happy"
	Sad     Emotion = "sad"
	Angry   Emotion = "angry"
	Anxious Emotion = "anxious"
	Calm    Emotion = "calm"
	Excited Emotion = "excited"
	Neutral Emotion = "neutral"
)

// Emotions lists every emotion in display order
func Emotions() []Emotion {
	return []Emotion{Happy, Sad, Angry, Anxious, Calm, Excited, Neutral}
}

// Label returns the display label shown on cards
func (e Emotion) Label() string {
	switch e {
	case Happy:
		return "開心"
	case Sad:
		return "難過"
	case Angry:
		return "生氣"
	case Anxious:
		return "焦慮"
	case Calm:
		return "平靜"
	case Excited:
		return "興奮"
	case Neutral:
		return "中性"
	}
	return ""
}

// Valid reports whether e is a member of the closed set
func (e Emotion) Valid() bool {
	return e.Label() != ""
}

// ParseEmotion accepts an English name (any case) or a display label
func ParseEmotion(s string) (Emotion, error) {
	s = strings.TrimSpace(s)
	for _, e := range Emotions() {
		if strings.EqualFold(s, string(e)) || s == e.Label() {
			return e, nil
		}
	}
	return "", NewInvalidEmotionError(s)
}
