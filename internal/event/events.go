// Package event publishes and consumes domain events over AMQP so the
// notification worker can react to invites and expense activity.
package event

import (
	"encoding/json"
	"time"
)

// Event types routed through the notification queue.
const (
	TypeInviteCreated  = "invite.created"
	TypeExpenseCreated = "expense.created"
	TypeExpenseDeleted = "expense.deleted"
)

// Event is a lightweight notification message. It carries identifiers
// only; consumers fetch full records from storage when they need them.
type Event struct {
	Type      string    `json:"type"`
	PlaceID   int64     `json:"place_id"`
	ActorID   int64     `json:"actor_id"`
	SubjectID int64     `json:"subject_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType string, placeID, actorID, subjectID int64) *Event {
	return &Event{
		Type:      eventType,
		PlaceID:   placeID,
		ActorID:   actorID,
		SubjectID: subjectID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON creates an event from JSON bytes
func FromJSON(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
