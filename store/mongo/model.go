package mongo

import (
	"time"

	"github.com/scabbardhq/consensus-store/ids"
	"github.com/scabbardhq/consensus-store/twopc"
)

// contextDoc is the document shape for both the coordinator_context and
// participant_context collections; the role is implicit in which
// collection a document lives in, matching the two-table split of the
// Postgres schema.
type contextDoc struct {
	ServiceID string    `bson:"service_id"`
	Epoch     int64     `bson:"epoch"`
	CreatedAt time.Time `bson:"created_at"`
}

// eventDoc is the single-collection representation of an EventRecord, using
// a detail_kind discriminator plus embedded nullable detail fields, the
// alternative the spec names for document stores that don't want a join
// across collections for every read.
type eventDoc struct {
	EventID    int64      `bson:"_id"`
	ServiceID  string     `bson:"service_id"`
	Epoch      int64      `bson:"epoch"`
	Position   int64      `bson:"position"`
	EventType  string     `bson:"event_type"`
	ExecutedAt *time.Time `bson:"executed_at"`

	DetailKind string `bson:"detail_kind"`

	Value          []byte  `bson:"value,omitempty"`
	Vote           string  `bson:"vote,omitempty"`
	ReceiverID     string  `bson:"receiver_service_id,omitempty"`
	MessageType    string  `bson:"message_type,omitempty"`
	VoteResponse   *string `bson:"vote_response,omitempty"`
	VoteRequest    []byte  `bson:"vote_request,omitempty"`
}

func (h eventDoc) toEvent() (twopc.Event, error) {
	switch h.EventType {
	case string(twopc.EventAlarm):
		return twopc.Alarm(), nil
	case string(twopc.EventStart):
		return twopc.Start(h.Value), nil
	case string(twopc.EventVote):
		v, err := twopc.ParseVoteString(h.Vote)
		if err != nil {
			return twopc.Event{}, err
		}
		return twopc.Vote(v), nil
	case string(twopc.EventDeliver):
		receiverID, err := ids.NewServiceId(h.ReceiverID)
		if err != nil {
			return twopc.Event{}, err
		}
		msg, err := h.toMessage()
		if err != nil {
			return twopc.Event{}, err
		}
		return twopc.Deliver(receiverID, msg), nil
	default:
		return twopc.Event{}, unknownEventType(h.EventType)
	}
}

func (h eventDoc) toMessage() (twopc.Message, error) {
	switch twopc.MessageType(h.MessageType) {
	case twopc.MessageVoteRequest:
		return twopc.VoteRequest(h.VoteRequest), nil
	case twopc.MessageVoteResponse:
		if h.VoteResponse == nil {
			return twopc.Message{}, missingVoteResponse{}
		}
		v, err := twopc.ParseVoteString(*h.VoteResponse)
		if err != nil {
			return twopc.Message{}, err
		}
		return twopc.VoteResponse(v), nil
	case twopc.MessageCommit:
		return twopc.Commit(), nil
	case twopc.MessageAbort:
		return twopc.Abort(), nil
	case twopc.MessageDecisionRequest:
		return twopc.DecisionRequest(), nil
	default:
		return twopc.Message{}, unknownMessageType(h.MessageType)
	}
}

type unknownEventType string

func (e unknownEventType) Error() string { return "unknown stored event_type: " + string(e) }

type unknownMessageType string

func (e unknownMessageType) Error() string { return "unknown stored message_type: " + string(e) }

type missingVoteResponse struct{}

func (missingVoteResponse) Error() string { return "vote_response missing for VOTE_RESPONSE deliver event" }
