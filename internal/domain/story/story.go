package story

import (
	"strings"
	"time"

	"chayabot/internal/audio"
)

// Story is a finished narration: the written text plus the synthesized audio.
// A Story is never mutated after the pipeline builds it.
type Story struct {
	Topic     string        `json:"topic"`
	Text      string        `json:"text"`
	Audio     *audio.Handle `json:"-"`
	CreatedAt time.Time     `json:"created_at"`
}

// HasAudio reports whether the story still owns a live audio handle.
func (s *Story) HasAudio() bool {
	return s != nil && s.Audio != nil && !s.Audio.Released()
}

// Release frees the story's audio resource. Safe to call more than once.
func (s *Story) Release() error {
	if s == nil || s.Audio == nil {
		return nil
	}
	return s.Audio.Release()
}

// NormalizeTopic trims the raw user input and rejects blank topics.
func NormalizeTopic(raw string) (string, error) {
	topic := strings.TrimSpace(raw)
	if topic == "" {
		return "", ErrEmptyTopic
	}
	return topic, nil
}
