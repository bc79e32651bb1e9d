// Package tts converts story text into playable audio handles.
package tts

import (
	"context"
	"fmt"

	"chayabot/internal/audio"
)

// Synthesizer sends text to a speech provider and wraps the returned audio
// as a local handle. Implementations issue at most one provider request per
// call and never retry.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, credential string) (*audio.Handle, error)
}

// StatusError is returned when the provider answers with a non-success
// status. It unwraps to story.ErrSynthesisFailed.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	cause      error
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return e.cause
}
