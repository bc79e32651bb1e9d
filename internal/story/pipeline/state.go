package pipeline

import (
	"chayabot/internal/domain/story"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWritingText
	PhaseSynthesizingAudio
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWritingText:
		return "writing_text"
	case PhaseSynthesizingAudio:
		return "synthesizing_audio"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the single visible generation state. Story is set only when
// Phase is PhaseReady; Kind and Err only when Phase is PhaseFailed.
type State struct {
	Seq   uint64
	Phase Phase
	Story *story.Story
	Kind  story.ErrorKind
	Err   error
}

// Busy reports whether a generation is in flight and the trigger should be
// disabled.
func (s State) Busy() bool {
	return s.Phase == PhaseWritingText || s.Phase == PhaseSynthesizingAudio
}

// Terminal reports whether the cycle has resolved.
func (s State) Terminal() bool {
	return s.Phase == PhaseReady || s.Phase == PhaseFailed
}

// Label is the progress text shown while the cycle runs.
func (s State) Label() string {
	switch s.Phase {
	case PhaseWritingText:
		return "Writing your story..."
	case PhaseSynthesizingAudio:
		return "Creating audio narration..."
	default:
		return ""
	}
}
