package conversation

import "sync"

// Status is the connection state of a conversation channel.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// statusTracker records the channel status and decides when a transition is
// worth telling the user about. Recovering to connected after a break
// reports success once; the very first connect is silent. Going down
// notifies only when leaving a healthy connection, so an already-broken
// channel degrading further stays quiet. Connecting is transient and does
// not count as a settled state, otherwise every retry cycle would mask the
// break it is recovering from.
type statusTracker struct {
	mu      sync.Mutex
	current Status
	// settled is the last status other than connecting. It starts as
	// connecting so the initial connect stays silent.
	settled  Status
	notifier Notifier
}

func newStatusTracker(notifier Notifier) *statusTracker {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &statusTracker{current: StatusConnecting, settled: StatusConnecting, notifier: notifier}
}

func (t *statusTracker) Current() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// shutdown records a deliberate teardown without a notification.
func (t *statusTracker) shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = StatusDisconnected
	t.settled = StatusDisconnected
}

func (t *statusTracker) Set(next Status) {
	t.mu.Lock()
	prev := t.settled
	t.current = next
	if next != StatusConnecting {
		t.settled = next
	}
	t.mu.Unlock()

	if prev == next {
		return
	}
	switch next {
	case StatusConnected:
		if prev == StatusError || prev == StatusDisconnected {
			t.notifier.Success("conversation reconnected")
		}
	case StatusError, StatusDisconnected:
		if prev == StatusConnected {
			t.notifier.Warning("conversation connection lost")
		}
	}
}
