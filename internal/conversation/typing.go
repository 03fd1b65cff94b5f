package conversation

import (
	"sync"
	"time"
)

const defaultTypingWindow = time.Second

// typingTracker turns a stream of keystrokes into at most one started and
// one stopped broadcast per burst. The started signal fires on the first
// keystroke; a trailing timer emits the stopped signal once the window
// elapses with no further keystrokes. Clearing the composer stops
// immediately. After Close no signal is ever emitted again.
type typingTracker struct {
	mu     sync.Mutex
	emit   func(isTyping bool)
	window time.Duration
	timer  *time.Timer
	typing bool
	closed bool
}

func newTypingTracker(window time.Duration, emit func(bool)) *typingTracker {
	if window <= 0 {
		window = defaultTypingWindow
	}
	if emit == nil {
		emit = func(bool) {}
	}
	return &typingTracker{emit: emit, window: window}
}

// Keystroke registers one non-empty composer keystroke.
func (t *typingTracker) Keystroke() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	if !t.typing {
		t.typing = true
		t.emit(true)
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.window, t.expire)
}

func (t *typingTracker) expire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || !t.typing {
		return
	}
	t.typing = false
	t.emit(false)
}

// Clear reports that the composer was emptied. An active burst ends
// immediately instead of waiting out the window.
func (t *typingTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.typing {
		t.typing = false
		t.emit(false)
	}
}

// Close ends the tracker for good, emitting a final stopped signal if a
// burst was still active.
func (t *typingTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.typing {
		t.typing = false
		t.emit(false)
	}
}
