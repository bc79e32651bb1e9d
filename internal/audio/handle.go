package audio

import (
	"fmt"
	"io"
	"os"
	"sync"
)

type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

// Handle is a locally addressable reference to synthesized audio. The bytes
// live in a file owned by the Store until Release is called.
type Handle struct {
	ID     string
	Path   string
	Format Format
	Size   int64

	store    *Store
	mu       sync.Mutex
	released bool
}

// Open returns a reader over the audio bytes. The caller closes it.
func (h *Handle) Open() (io.ReadCloser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, fmt.Errorf("audio handle %s already released", h.ID)
	}
	f, err := os.Open(h.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio %s: %w", h.ID, err)
	}
	return f, nil
}

// SaveAs copies the audio bytes to path, creating or truncating it, and
// returns the number of bytes written. The handle stays live.
func (h *Handle) SaveAs(path string) (int64, error) {
	src, err := h.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("failed to save audio to %s: %w", path, err)
	}
	return n, nil
}

// Release deletes the backing file. Subsequent calls are no-ops.
func (h *Handle) Release() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil
	}
	h.released = true
	h.mu.Unlock()

	if h.store != nil {
		h.store.forget(h.ID)
	}
	if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove audio %s: %w", h.Path, err)
	}
	return nil
}

func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

func (h *Handle) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", h.ID, h.Format, h.Size)
}
