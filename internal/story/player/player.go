// Package player owns the single live playback stream of a session.
package player

import (
	"errors"
	"fmt"
	"sync"

	"chayabot/internal/audio"
	"chayabot/internal/domain/story"

	"github.com/sirupsen/logrus"
)

var ErrNoAudio = errors.New("story has no playable audio")

type Event int

const (
	// EventEnded is emitted once the stream has played to the end.
	EventEnded Event = iota
)

// Backend opens playable streams over audio handles. The notify callback may
// be invoked from any goroutine but never from inside Open, Play, Pause or
// Close.
type Backend interface {
	Open(h *audio.Handle, notify func(Event)) (Stream, error)
}

// Stream is a single decoded playback resource. Play resumes a paused stream
// and restarts one that has ended.
type Stream interface {
	Play() error
	Pause() error
	Close() error
}

type State struct {
	HasResource bool
	IsPlaying   bool
}

// Controller enforces at most one open stream. Swapping to another story
// closes the previous stream before the new one is opened.
type Controller struct {
	backend Backend

	mu        sync.Mutex
	handle    *audio.Handle
	stream    Stream
	gen       uint64
	playing   bool
	listeners []func(State)
}

func NewController(backend Backend) *Controller {
	return &Controller{backend: backend}
}

// Subscribe registers fn to receive every playback state change.
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Play starts narration of s, resuming if s is already loaded.
func (c *Controller) Play(s *story.Story) error {
	if !s.HasAudio() {
		return ErrNoAudio
	}

	c.mu.Lock()
	if c.stream != nil && c.handle == s.Audio {
		err := c.resumeLocked()
		c.mu.Unlock()
		c.emit()
		return err
	}

	if err := c.disposeLocked(); err != nil {
		logrus.WithError(err).Warn("Failed to close previous playback stream")
	}

	c.gen++
	gen := c.gen
	stream, err := c.backend.Open(s.Audio, func(ev Event) { c.handleEvent(gen, ev) })
	if err != nil {
		c.mu.Unlock()
		c.emit()
		return fmt.Errorf("failed to open audio %s: %w", s.Audio.ID, err)
	}
	c.stream = stream
	c.handle = s.Audio

	err = c.resumeLocked()
	c.mu.Unlock()
	c.emit()
	return err
}

// Toggle flips between playing and paused. Without a stream it does nothing.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	if c.stream == nil {
		c.mu.Unlock()
		return nil
	}

	var err error
	if c.playing {
		if err = c.stream.Pause(); err == nil {
			c.playing = false
		}
	} else {
		err = c.resumeLocked()
	}
	c.mu.Unlock()
	c.emit()
	return err
}

// Dispose closes the current stream, if any.
func (c *Controller) Dispose() error {
	c.mu.Lock()
	err := c.disposeLocked()
	c.mu.Unlock()
	c.emit()
	return err
}

func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{HasResource: c.stream != nil, IsPlaying: c.playing}
}

func (c *Controller) resumeLocked() error {
	if c.playing {
		return nil
	}
	if err := c.stream.Play(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	c.playing = true
	return nil
}

func (c *Controller) disposeLocked() error {
	if c.stream == nil {
		return nil
	}
	// bump first so a late end event from the old stream is ignored
	c.gen++
	err := c.stream.Close()
	c.stream = nil
	c.handle = nil
	c.playing = false
	return err
}

func (c *Controller) handleEvent(gen uint64, ev Event) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		logrus.WithField("event", ev).Debug("Ignoring event from disposed stream")
		return
	}
	switch ev {
	case EventEnded:
		c.playing = false
	}
	c.mu.Unlock()
	c.emit()
}

func (c *Controller) emit() {
	c.mu.Lock()
	state := c.stateLocked()
	listeners := append([]func(State){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}
