package models

import "time"

// RequestStatus is the lifecycle state of a service request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusInProgress RequestStatus = "in_progress"
	StatusCompleted  RequestStatus = "completed"
	StatusClosed     RequestStatus = "closed"
)

var statusOrder = []RequestStatus{StatusPending, StatusInProgress, StatusCompleted, StatusClosed}

// statusLabels are the user-facing names reported on successful transitions.
var statusLabels = map[RequestStatus]string{
	StatusPending:    "Pending",
	StatusInProgress: "In Progress",
	StatusCompleted:  "Completed",
	StatusClosed:     "Closed",
}

// Index returns the position of the status in the forward-only lifecycle,
// or -1 for an unknown status.
func (s RequestStatus) Index() int {
	for i, status := range statusOrder {
		if status == s {
			return i
		}
	}
	return -1
}

// Valid reports whether the status is a known lifecycle state.
func (s RequestStatus) Valid() bool {
	return s.Index() >= 0
}

// Label returns the display name for the status.
func (s RequestStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// CanTransitionTo reports whether next is exactly one step forward.
// Skipping states and moving backward are both rejected.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	current := s.Index()
	target := next.Index()
	return current >= 0 && target == current+1
}

// Request is a client-submitted unit of work.
type Request struct {
	ID          int           `db:"id" json:"id"`
	ClientID    int           `db:"client_id" json:"client_id"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	Status      RequestStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}
