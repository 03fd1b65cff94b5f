package conversation

import (
	"sort"
	"sync"

	"portal-service/internal/models"
)

// typingRoster tracks who is currently composing in a conversation. Signals
// are last-write-wins per user and signals from the local user are dropped,
// so a user never sees their own indicator.
type typingRoster struct {
	mu     sync.Mutex
	selfID int
	active map[int]models.TypingSignal
}

func newTypingRoster(selfID int) *typingRoster {
	return &typingRoster{selfID: selfID, active: map[int]models.TypingSignal{}}
}

// Apply folds one signal into the roster.
func (r *typingRoster) Apply(sig models.TypingSignal) {
	if sig.UserID == r.selfID {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if sig.IsTyping {
		r.active[sig.UserID] = sig
	} else {
		delete(r.active, sig.UserID)
	}
}

// Typing returns the users currently composing, ordered by id for stable
// rendering.
func (r *typingRoster) Typing() []models.TypingSignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.TypingSignal, 0, len(r.active))
	for _, sig := range r.active {
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Reset clears the roster, used when a subscription is torn down.
func (r *typingRoster) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = map[int]models.TypingSignal{}
}
