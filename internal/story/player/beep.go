package player

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"chayabot/internal/audio"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// BeepBackend plays handles through the system speaker. The speaker is
// initialised once with the sample rate of the first stream; later streams
// are resampled to it.
type BeepBackend struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
}

func NewBeepBackend() *BeepBackend {
	return &BeepBackend{}
}

func (b *BeepBackend) Open(h *audio.Handle, notify func(Event)) (Stream, error) {
	rc, err := h.Open()
	if err != nil {
		return nil, err
	}

	source, format, err := decode(h.Format, rc)
	if err != nil {
		rc.Close()
		return nil, err
	}

	rate, err := b.ensureSpeaker(format.SampleRate)
	if err != nil {
		source.Close()
		return nil, err
	}

	var s beep.Streamer = source
	if format.SampleRate != rate {
		s = beep.Resample(4, format.SampleRate, rate, source)
	}

	return &beepStream{
		source: source,
		ctrl:   &beep.Ctrl{Streamer: s, Paused: true},
		notify: notify,
	}, nil
}

func (b *BeepBackend) ensureSpeaker(rate beep.SampleRate) (beep.SampleRate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sampleRate != 0 {
		return b.sampleRate, nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return 0, fmt.Errorf("failed to initialise speaker: %w", err)
	}
	b.sampleRate = rate
	return rate, nil
}

func decode(format audio.Format, rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch format {
	case audio.FormatMP3:
		s, f, err := mp3.Decode(rc)
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("failed to decode MP3: %w", err)
		}
		return s, f, nil
	case audio.FormatWAV:
		s, f, err := wav.Decode(rc)
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("failed to decode WAV: %w", err)
		}
		return s, f, nil
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format %q", format)
	}
}

type beepStream struct {
	source beep.StreamSeekCloser
	ctrl   *beep.Ctrl
	notify func(Event)

	mu     sync.Mutex
	queued bool
	ended  atomic.Bool
	closed atomic.Bool
}

func (s *beepStream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return fmt.Errorf("stream is closed")
	}

	if s.queued && !s.ended.Load() {
		speaker.Lock()
		s.ctrl.Paused = false
		speaker.Unlock()
		return nil
	}

	if s.ended.Load() {
		speaker.Lock()
		err := s.source.Seek(0)
		speaker.Unlock()
		if err != nil {
			return fmt.Errorf("failed to rewind: %w", err)
		}
		s.ended.Store(false)
	}

	s.ctrl.Paused = false
	s.queued = true
	speaker.Play(beep.Seq(s.ctrl, beep.Callback(s.finished)))
	return nil
}

func (s *beepStream) Pause() error {
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

func (s *beepStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	speaker.Lock()
	s.ctrl.Streamer = nil
	speaker.Unlock()
	return s.source.Close()
}

// finished runs on the speaker goroutine with the speaker lock held, so the
// notification is handed off.
func (s *beepStream) finished() {
	if s.closed.Load() {
		return
	}
	s.ended.Store(true)
	go s.notify(EventEnded)
}
