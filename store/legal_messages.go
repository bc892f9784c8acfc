package store

import (
	mapset "github.com/deckarep/golang-set"

	"github.com/scabbardhq/consensus-store/twopc"
)

// The two role-legal Deliver message sets of invariant C3 (spec §3, §4.3
// step 8). Expressed as sets (rather than a switch with a catch-all arm)
// so that membership is a single Contains call and the illegal-for-role
// cases are never accidentally accepted by falling through a case label —
// the bug the spec's second Open Question (§9) calls out in the original.
var (
	coordinatorDeliverMessages = mapset.NewSetWith(
		ifc(twopc.MessageDecisionRequest),
		ifc(twopc.MessageVoteResponse),
	)
	participantDeliverMessages = mapset.NewSetWith(
		ifc(twopc.MessageDecisionRequest),
		ifc(twopc.MessageCommit),
		ifc(twopc.MessageAbort),
		ifc(twopc.MessageVoteRequest),
	)
)

func ifc(t twopc.MessageType) interface{} { return t }

func coordinatorAcceptsMessage(t twopc.MessageType) bool {
	return coordinatorDeliverMessages.Contains(ifc(t))
}

func participantAcceptsMessage(t twopc.MessageType) bool {
	return participantDeliverMessages.Contains(ifc(t))
}
