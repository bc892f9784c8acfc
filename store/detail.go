package store

import (
	"github.com/scabbardhq/consensus-store/ids"
	"github.com/scabbardhq/consensus-store/twopc"
)

// DetailKind identifies which child row (or, for the document backend,
// which embedded fields) a committed event requires — spec §4.3's
// "detail-row schemas" and the §6.2 note that a single detail_kind column
// plus nullable fields is an acceptable alternative to three child tables.
type DetailKind int

const (
	// DetailNone is Alarm's detail: no child row at all.
	DetailNone DetailKind = iota
	DetailStart
	DetailVote
	DetailDeliver
)

func (k DetailKind) String() string {
	switch k {
	case DetailNone:
		return "NONE"
	case DetailStart:
		return "START"
	case DetailVote:
		return "VOTE"
	case DetailDeliver:
		return "DELIVER"
	default:
		return "UNKNOWN"
	}
}

// Detail is the backend-agnostic, fully-validated payload to persist
// alongside an event header row. Only the fields relevant to Kind are
// populated; backends should never need to re-derive legality from the
// raw Event once they hold a Detail.
type Detail struct {
	Kind DetailKind

	// DetailStart
	Value []byte

	// DetailVote
	Vote string // "TRUE" / "FALSE", per §6.3

	// DetailDeliver
	Receiver     ids.ServiceId
	MessageType  twopc.MessageType
	VoteResponse *string // coordinator branch only; nil unless message is VoteResponse
	VoteRequest  []byte  // participant branch only; nil unless message is VoteRequest
}

// BuildDetail implements the role-dispatched legality and detail-row
// construction of spec §4.3 step 8. It is pure: no I/O, no position
// assignment, nothing backend-specific — every AppendEvent implementation
// calls this once it has determined the bound role and before it writes
// anything, so that C3 is enforced identically regardless of backend.
func BuildDetail(role Role, event twopc.Event) (Detail, error) {
	switch role {
	case RoleCoordinator:
		return buildCoordinatorDetail(event)
	case RoleParticipant:
		return buildParticipantDetail(event)
	default:
		return Detail{}, InvalidState("unknown role %v", role)
	}
}

func buildCoordinatorDetail(event twopc.Event) (Detail, error) {
	switch event.Type {
	case twopc.EventAlarm:
		return Detail{Kind: DetailNone}, nil

	case twopc.EventStart:
		return Detail{Kind: DetailStart, Value: event.Value}, nil

	case twopc.EventVote:
		return Detail{Kind: DetailVote, Vote: twopc.VoteString(event.Vote)}, nil

	case twopc.EventDeliver:
		if !coordinatorAcceptsMessage(event.Message.Type) {
			return Detail{}, InvalidState(
				"failed to add consensus deliver event, invalid coordinator message type %s",
				event.Message.Type)
		}
		d := Detail{
			Kind:        DetailDeliver,
			Receiver:    event.Receiver,
			MessageType: event.Message.Type,
		}
		if event.Message.Type == twopc.MessageVoteResponse {
			s := twopc.VoteString(event.Message.Vote)
			d.VoteResponse = &s
		}
		return d, nil

	default:
		return Detail{}, InvalidState("invalid coordinator event type %s", event.Type)
	}
}

func buildParticipantDetail(event twopc.Event) (Detail, error) {
	switch event.Type {
	case twopc.EventAlarm:
		return Detail{Kind: DetailNone}, nil

	case twopc.EventStart:
		// Participant never originates a Start event (spec §3, C3).
		return Detail{}, InvalidState("invalid participant event type %s", event.Type)

	case twopc.EventVote:
		return Detail{Kind: DetailVote, Vote: twopc.VoteString(event.Vote)}, nil

	case twopc.EventDeliver:
		if !participantAcceptsMessage(event.Message.Type) {
			return Detail{}, InvalidState(
				"failed to add consensus deliver event, invalid participant message type %s",
				event.Message.Type)
		}
		d := Detail{
			Kind:        DetailDeliver,
			Receiver:    event.Receiver,
			MessageType: event.Message.Type,
		}
		if event.Message.Type == twopc.MessageVoteRequest {
			d.VoteRequest = event.Message.Value
		}
		return d, nil

	default:
		return Detail{}, InvalidState("invalid participant event type %s", event.Type)
	}
}
