package tts

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"chayabot/internal/audio"
	"chayabot/internal/domain/story"

	"github.com/fatih/color"
)

const (
	mockSampleRate = 22050
	mockDelay      = 200 * time.Millisecond
)

// MockSynthesizer returns a short silent WAV clip without touching the
// network. It still enforces the credential so the pipeline behaves the same.
type MockSynthesizer struct {
	store *audio.Store
	delay time.Duration
	calls atomic.Int64
}

func NewMockSynthesizer(store *audio.Store) *MockSynthesizer {
	return &MockSynthesizer{store: store, delay: mockDelay}
}

func (m *MockSynthesizer) Calls() int64 {
	return m.calls.Load()
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text, credential string) (*audio.Handle, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, story.ErrMissingCredential
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text to synthesize", story.ErrSynthesisFailed)
	}
	m.calls.Add(1)

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", story.ErrSynthesisFailed, ctx.Err())
	case <-time.After(m.delay):
	}

	color.Yellow("🔊 Mock narration for %d words", len(strings.Fields(text)))
	return m.store.Put(silentWAV(mockSampleRate, time.Second), audio.FormatWAV)
}

// silentWAV builds a mono 16-bit PCM WAV file of the given length.
func silentWAV(sampleRate int, length time.Duration) []byte {
	samples := int(float64(sampleRate) * length.Seconds())
	dataSize := uint32(samples * 2)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}
