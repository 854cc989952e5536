// Package clipboard abstracts the system clipboard so transcripts can be
// delivered where the user will paste them.
package clipboard

import (
	"sync"

	"github.com/atotto/clipboard"

	"github.com/kbukum/voicetap/internal/apperr"
)

// Writer delivers transcript text. Successive writes overwrite each other;
// only the most recent transcript is retained.
type Writer interface {
	// Write replaces the clipboard contents with text.
	Write(text string) error
	// Read returns the current clipboard contents.
	Read() (string, error)
}

// System writes to the OS clipboard.
type System struct{}

// NewSystem returns the OS clipboard writer. It fails when no clipboard
// backend is available, such as a headless session without xclip or wl-copy.
func NewSystem() (*System, error) {
	if clipboard.Unsupported {
		return nil, apperr.Clipboard(nil).WithDetail("reason", "no clipboard backend available")
	}
	return &System{}, nil
}

// Write replaces the OS clipboard contents.
func (s *System) Write(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return apperr.Clipboard(err)
	}
	return nil
}

// Read returns the OS clipboard contents.
func (s *System) Read() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", apperr.Clipboard(err)
	}
	return text, nil
}

// Memory is an in-process Writer used when the OS clipboard is unavailable
// and in tests.
type Memory struct {
	mu   sync.Mutex
	text string
}

// NewMemory returns an empty in-memory clipboard.
func NewMemory() *Memory { return &Memory{} }

// Write replaces the stored text.
func (m *Memory) Write(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}

// Read returns the stored text.
func (m *Memory) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}
