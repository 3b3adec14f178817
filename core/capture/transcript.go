package capture

import (
	"strings"
	"sync"
)

// transcript accumulates the text of every capture cycle. Segments are only
// ever appended; a failed transcription leaves it untouched.
type transcript struct {
	mu       sync.Mutex
	segments []string
}

func (t *transcript) Append(segment string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.segments = append(t.segments, segment)
	return strings.Join(t.segments, " ")
}

func (t *transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.segments, " ")
}

func (t *transcript) Segments() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.segments...)
}

func (t *transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.segments = nil
}
