package twopc

import (
	"fmt"

	"github.com/scabbardhq/consensus-store/ids"
)

// EventType is the stable, on-disk discriminator string for an Event
// variant (spec §4.1).
type EventType string

const (
	EventAlarm   EventType = "ALARM"
	EventStart   EventType = "START"
	EventVote    EventType = "VOTE"
	EventDeliver EventType = "DELIVER"
)

// Event is a single observed stimulus to the consensus state machine. Only
// the fields relevant to Type are populated:
//   - Start carries Value.
//   - Vote carries Vote.
//   - Deliver carries Receiver and Message.
//   - Alarm carries neither.
type Event struct {
	Type     EventType
	Value    []byte
	Vote     bool
	Receiver ids.ServiceId
	Message  Message
}

// Alarm records that a timer fired.
func Alarm() Event {
	return Event{Type: EventAlarm}
}

// Start records that the application submitted a new value. Coordinator
// role only — see store.BuildDetail for the role-legality check (C3).
func Start(value []byte) Event {
	return Event{Type: EventStart, Value: value}
}

// Vote records a local vote decision, legal for either role.
func Vote(vote bool) Event {
	return Event{Type: EventVote, Vote: vote}
}

// Deliver records an outgoing message to another service.
func Deliver(receiver ids.ServiceId, message Message) Event {
	return Event{Type: EventDeliver, Receiver: receiver, Message: message}
}

func (e Event) String() string {
	switch e.Type {
	case EventStart:
		return fmt.Sprintf("%s(%d bytes)", e.Type, len(e.Value))
	case EventVote:
		return fmt.Sprintf("%s(%v)", e.Type, e.Vote)
	case EventDeliver:
		return fmt.Sprintf("%s(%s, %s)", e.Type, e.Receiver, e.Message)
	default:
		return string(e.Type)
	}
}
