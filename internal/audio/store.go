// Package audio turns raw synthesized bytes into scoped, playable resources.
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store writes audio payloads into a scratch directory and tracks which
// handles are still live.
type Store struct {
	dir  string
	mu   sync.Mutex
	live map[string]*Handle
}

// NewStore creates the scratch directory if needed. An empty dir falls back
// to a "chayabot" folder under the OS temp directory.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "chayabot")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audio dir %s: %w", dir, err)
	}
	return &Store{
		dir:  dir,
		live: make(map[string]*Handle),
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Put persists data as {dir}/{uuid}.{format} and returns its handle.
func (s *Store) Put(data []byte, format Format) (*Handle, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("refusing to store empty audio payload")
	}
	id := uuid.NewString()
	path := filepath.Join(s.dir, fmt.Sprintf("%s.%s", id, format))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write audio to %s: %w", path, err)
	}

	h := &Handle{
		ID:     id,
		Path:   path,
		Format: format,
		Size:   int64(len(data)),
		store:  s,
	}

	s.mu.Lock()
	s.live[id] = h
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"audio_id": id,
		"format":   format,
		"bytes":    len(data),
	}).Debug("Stored synthesized audio")
	return h, nil
}

// Live returns the number of handles that have not been released.
func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// ReleaseAll frees every outstanding handle, used at session end.
func (s *Store) ReleaseAll() error {
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.live))
	for _, h := range s.live {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	var firstErr error
	for _, h := range handles {
		if err := h.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) forget(id string) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
}
