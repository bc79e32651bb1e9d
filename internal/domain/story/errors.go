package story

import "errors"

var (
	ErrEmptyTopic        = errors.New("topic is empty")
	ErrMissingCredential = errors.New("voice synthesis credential is missing")
	ErrSynthesisFailed   = errors.New("voice synthesis failed")
	ErrWritingFailed     = errors.New("story writing failed")
	ErrBusy              = errors.New("too many stories in progress")
)

// ErrorKind classifies pipeline failures for presentation.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindEmptyTopic
	KindMissingCredential
	KindSynthesisFailed
	KindWritingFailed
	KindBusy
	// KindStaleResult marks results of superseded cycles. It is never surfaced.
	KindStaleResult
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindEmptyTopic:
		return "empty_topic"
	case KindMissingCredential:
		return "missing_credential"
	case KindSynthesisFailed:
		return "synthesis_failed"
	case KindWritingFailed:
		return "writing_failed"
	case KindBusy:
		return "busy"
	case KindStaleResult:
		return "stale_result"
	default:
		return "unknown"
	}
}

// KindOf maps an error returned anywhere in the pipeline to its ErrorKind.
// Anything unclassified, deadlines and cancellations included, can only come
// from the remote calls and counts as a synthesis failure.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrEmptyTopic):
		return KindEmptyTopic
	case errors.Is(err, ErrMissingCredential):
		return KindMissingCredential
	case errors.Is(err, ErrWritingFailed):
		return KindWritingFailed
	case errors.Is(err, ErrBusy):
		return KindBusy
	default:
		return KindSynthesisFailed
	}
}
