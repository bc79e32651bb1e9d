package story

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNormalizeTopic(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr error
	}{
		{in: "a tree and a carpenter", want: "a tree and a carpenter"},
		{in: "  dragons \n", want: "dragons"},
		{in: "", wantErr: ErrEmptyTopic},
		{in: " \t\n ", wantErr: ErrEmptyTopic},
	}
	for _, tc := range cases {
		got, err := NormalizeTopic(tc.in)
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("NormalizeTopic(%q) error = %v, want %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("NormalizeTopic(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{ErrEmptyTopic, KindEmptyTopic},
		{fmt.Errorf("synthesize: %w", ErrMissingCredential), KindMissingCredential},
		{fmt.Errorf("status 401: %w", ErrSynthesisFailed), KindSynthesisFailed},
		{fmt.Errorf("write: %w", ErrWritingFailed), KindWritingFailed},
		{fmt.Errorf("submit: %w", ErrBusy), KindBusy},
		{context.DeadlineExceeded, KindSynthesisFailed},
		{context.Canceled, KindSynthesisFailed},
		{errors.New("connection reset"), KindSynthesisFailed},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestReleaseNilStory(t *testing.T) {
	var s *Story
	if err := s.Release(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.HasAudio() {
		t.Fatal("nil story must not report audio")
	}
}
