package player

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"chayabot/internal/audio"
	"chayabot/internal/domain/story"

	"github.com/sirupsen/logrus"
)

func TestMain(m *testing.M) {
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fakeStream struct {
	backend *fakeBackend
	handle  *audio.Handle
	notify  func(Event)
	playing bool
	closed  bool
	plays   int
}

func (s *fakeStream) Play() error {
	s.playing = true
	s.plays++
	return nil
}

func (s *fakeStream) Pause() error {
	s.playing = false
	return nil
}

func (s *fakeStream) Close() error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.backend.live--
	}
	return nil
}

// End simulates the audio reaching its end.
func (s *fakeStream) End() {
	s.playing = false
	s.notify(EventEnded)
}

type fakeBackend struct {
	mu      sync.Mutex
	live    int
	streams []*fakeStream
	openErr error
}

func (b *fakeBackend) Open(h *audio.Handle, notify func(Event)) (Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	s := &fakeStream{backend: b, handle: h, notify: notify}
	b.streams = append(b.streams, s)
	b.live++
	return s, nil
}

func (b *fakeBackend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live
}

func newStory(t *testing.T, store *audio.Store, text string) *story.Story {
	t.Helper()
	h, err := store.Put([]byte(text), audio.FormatMP3)
	if err != nil {
		t.Fatalf("put audio: %v", err)
	}
	return &story.Story{Text: text, Audio: h}
}

func newStore(t *testing.T) *audio.Store {
	t.Helper()
	store, err := audio.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestPlaySwapsToExactlyOneResource(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend)
	store := newStore(t)
	a := newStory(t, store, "story a")
	b := newStory(t, store, "story b")

	if err := c.Play(a); err != nil {
		t.Fatalf("play a: %v", err)
	}
	if err := c.Play(b); err != nil {
		t.Fatalf("play b: %v", err)
	}

	if backend.Live() != 1 {
		t.Fatalf("expected exactly one live stream, got %d", backend.Live())
	}
	if !backend.streams[0].closed {
		t.Fatal("expected story a's stream released")
	}
	if backend.streams[1].handle != b.Audio || backend.streams[1].closed {
		t.Fatal("expected story b's stream live")
	}
	if !c.IsPlaying() {
		t.Fatal("expected playing")
	}
}

func TestPlaySameStoryReuses(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend)
	a := newStory(t, newStore(t), "story a")

	if err := c.Play(a); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := c.Toggle(); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := c.Play(a); err != nil {
		t.Fatalf("play again: %v", err)
	}
	if len(backend.streams) != 1 {
		t.Fatalf("expected stream reuse, opened %d", len(backend.streams))
	}
	if !c.IsPlaying() {
		t.Fatal("expected playback resumed")
	}
}

func TestToggleWithoutStoryIsNoop(t *testing.T) {
	c := NewController(&fakeBackend{})
	if err := c.Toggle(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.State() != (State{}) {
		t.Fatalf("unexpected state %+v", c.State())
	}
}

func TestToggleFlipsPlayback(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend)
	a := newStory(t, newStore(t), "story a")
	if err := c.Play(a); err != nil {
		t.Fatalf("play: %v", err)
	}

	c.Toggle()
	if c.IsPlaying() || backend.streams[0].playing {
		t.Fatal("expected paused")
	}
	c.Toggle()
	if !c.IsPlaying() || !backend.streams[0].playing {
		t.Fatal("expected playing")
	}
}

func TestEndEventStopsWithoutReplay(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend)
	var states []State
	c.Subscribe(func(s State) { states = append(states, s) })

	a := newStory(t, newStore(t), "story a")
	if err := c.Play(a); err != nil {
		t.Fatalf("play: %v", err)
	}
	backend.streams[0].End()

	if c.IsPlaying() {
		t.Fatal("expected not playing after end")
	}
	if backend.streams[0].plays != 1 {
		t.Fatalf("expected no automatic replay, got %d plays", backend.streams[0].plays)
	}
	last := states[len(states)-1]
	if !last.HasResource || last.IsPlaying {
		t.Fatalf("unexpected final state %+v", last)
	}

	// toggling after the end replays from the start
	c.Toggle()
	if !c.IsPlaying() || backend.streams[0].plays != 2 {
		t.Fatal("expected replay on toggle")
	}
}

func TestEndEventFromDisposedStreamIgnored(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend)
	store := newStore(t)
	a := newStory(t, store, "story a")
	b := newStory(t, store, "story b")

	c.Play(a)
	c.Play(b)
	backend.streams[0].End()

	if !c.IsPlaying() {
		t.Fatal("stale end event must not stop the current stream")
	}
}

func TestDispose(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend)
	c.Play(newStory(t, newStore(t), "story a"))

	if err := c.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if backend.Live() != 0 {
		t.Fatalf("expected no live streams, got %d", backend.Live())
	}
	if c.State() != (State{}) {
		t.Fatalf("unexpected state %+v", c.State())
	}
	if err := c.Dispose(); err != nil {
		t.Fatalf("second dispose: %v", err)
	}
}

func TestPlayRejectsStoryWithoutAudio(t *testing.T) {
	c := NewController(&fakeBackend{})
	if err := c.Play(&story.Story{Text: "no audio"}); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}

	a := newStory(t, newStore(t), "released")
	a.Release()
	if err := c.Play(a); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio for released audio, got %v", err)
	}
}

func TestPlayOpenFailureLeavesNoResource(t *testing.T) {
	backend := &fakeBackend{openErr: errors.New("decoder exploded")}
	c := NewController(backend)
	if err := c.Play(newStory(t, newStore(t), "story")); err == nil {
		t.Fatal("expected open error")
	}
	if c.State().HasResource {
		t.Fatal("expected no resource after failed open")
	}
}

func TestDecodeWAV(t *testing.T) {
	var buf bytes.Buffer
	samples := 100
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+samples*2))
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(8000))
	binary.Write(&buf, binary.LittleEndian, uint32(16000))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(samples*2))
	buf.Write(make([]byte, samples*2))

	s, format, err := decode(audio.FormatWAV, io.NopCloser(bytes.NewReader(buf.Bytes())))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	defer s.Close()
	if format.SampleRate != 8000 || format.NumChannels != 1 {
		t.Fatalf("unexpected format %+v", format)
	}
	if s.Len() != samples {
		t.Fatalf("expected %d samples, got %d", samples, s.Len())
	}

	if _, _, err := decode(audio.Format("ogg"), io.NopCloser(bytes.NewReader(nil))); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
