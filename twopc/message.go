// Package twopc holds the tagged-variant message and event model of the 2PC
// protocol (spec §4.1): the wire messages exchanged between coordinator and
// participant, and the local events that drive one service's state machine.
//
// Both variants are closed sum types. Go has no native sum type, so each is
// modeled as a struct carrying a discriminator plus the union of possible
// payload fields, with constructors that only ever populate the fields legal
// for that discriminator. Reach for the constructors, never build the
// struct literal directly.
package twopc

import "fmt"

// MessageType is the stable, on-disk discriminator string for a Message
// variant (spec §4.1). These strings are persisted and must never change.
type MessageType string

const (
	MessageVoteRequest     MessageType = "VOTE_REQUEST"
	MessageVoteResponse    MessageType = "VOTE_RESPONSE"
	MessageCommit          MessageType = "COMMIT"
	MessageAbort           MessageType = "ABORT"
	MessageDecisionRequest MessageType = "DECISION_REQUEST"
)

// Message is one wire message flowing between a coordinator and a
// participant. Only the fields relevant to Type are populated:
//   - VoteRequest carries Value.
//   - VoteResponse carries Vote.
//   - Commit, Abort, DecisionRequest carry neither.
type Message struct {
	Type  MessageType
	Value []byte
	Vote  bool
}

// VoteRequest is sent coordinator -> participant, carrying the value to vote on.
func VoteRequest(value []byte) Message {
	return Message{Type: MessageVoteRequest, Value: value}
}

// VoteResponse is sent participant -> coordinator.
func VoteResponse(vote bool) Message {
	return Message{Type: MessageVoteResponse, Vote: vote}
}

// Commit is sent coordinator -> participant.
func Commit() Message {
	return Message{Type: MessageCommit}
}

// Abort is sent coordinator -> participant.
func Abort() Message {
	return Message{Type: MessageAbort}
}

// DecisionRequest is sent participant -> coordinator, asking to be told the
// outcome again.
func DecisionRequest() Message {
	return Message{Type: MessageDecisionRequest}
}

func (m Message) String() string {
	switch m.Type {
	case MessageVoteRequest:
		return fmt.Sprintf("%s(%d bytes)", m.Type, len(m.Value))
	case MessageVoteResponse:
		return fmt.Sprintf("%s(%v)", m.Type, m.Vote)
	default:
		return string(m.Type)
	}
}

// VoteString encodes a vote as the literal uppercase string the store
// persists (spec §4.1, §6.3). New vote outcomes (e.g. ABSTAIN) must not
// reuse these two literals for anything but true/false.
func VoteString(vote bool) string {
	if vote {
		return "TRUE"
	}
	return "FALSE"
}

// ParseVoteString is the inverse of VoteString. Any literal other than the
// two accepted strings is rejected — the store never infers a vote from,
// say, "1"/"0" or lowercase forms.
func ParseVoteString(s string) (bool, error) {
	switch s {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	default:
		return false, fmt.Errorf("invalid vote literal %q, want TRUE or FALSE", s)
	}
}
