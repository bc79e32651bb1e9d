// Package session holds per-session state that must never outlive the process.
package session

import (
	"strings"
	"sync"
)

// Credentials keeps the user's voice-synthesis API key in memory for the
// lifetime of a session. It is never written to disk or logged.
type Credentials struct {
	mu    sync.RWMutex
	value string
}

func NewCredentials(initial string) *Credentials {
	c := &Credentials{}
	c.Set(initial)
	return c
}

// Set replaces the held credential. Blank input clears it.
func (c *Credentials) Set(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = strings.TrimSpace(value)
}

// Get returns the credential and whether one is present.
func (c *Credentials) Get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.value != ""
}

func (c *Credentials) Clear() {
	c.Set("")
}

// Masked renders the credential for display, keeping only the last four characters.
func (c *Credentials) Masked() string {
	value, ok := c.Get()
	if !ok {
		return "(not set)"
	}
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", 8) + string(runes[len(runes)-4:])
}
