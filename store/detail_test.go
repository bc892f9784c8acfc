package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scabbardhq/consensus-store/twopc"
)

func TestBuildDetailCoordinatorLegalEvents(t *testing.T) {
	d, err := BuildDetail(RoleCoordinator, twopc.Alarm())
	require.NoError(t, err)
	require.Equal(t, DetailNone, d.Kind)

	d, err = BuildDetail(RoleCoordinator, twopc.Start([]byte{1, 2}))
	require.NoError(t, err)
	require.Equal(t, DetailStart, d.Kind)
	require.Equal(t, []byte{1, 2}, d.Value)

	d, err = BuildDetail(RoleCoordinator, twopc.Vote(true))
	require.NoError(t, err)
	require.Equal(t, DetailVote, d.Kind)
	require.Equal(t, "TRUE", d.Vote)

	d, err = BuildDetail(RoleCoordinator, twopc.Deliver("svc-B", twopc.DecisionRequest()))
	require.NoError(t, err)
	require.Equal(t, DetailDeliver, d.Kind)
	require.Equal(t, twopc.MessageDecisionRequest, d.MessageType)
	require.Nil(t, d.VoteResponse)

	d, err = BuildDetail(RoleCoordinator, twopc.Deliver("svc-B", twopc.VoteResponse(true)))
	require.NoError(t, err)
	require.Equal(t, twopc.MessageVoteResponse, d.MessageType)
	require.NotNil(t, d.VoteResponse)
	require.Equal(t, "TRUE", *d.VoteResponse)
}

// P5: a participant context rejects Start.
func TestBuildDetailParticipantRejectsStart(t *testing.T) {
	_, err := BuildDetail(RoleParticipant, twopc.Start(nil))
	require.Error(t, err)
	require.True(t, IsInvalidState(err))
}

// P6: coordinator rejects participant-only Deliver messages and vice versa.
func TestBuildDetailRoleIllegalMessages(t *testing.T) {
	for _, msg := range []twopc.Message{twopc.Commit(), twopc.Abort(), twopc.VoteRequest([]byte("v"))} {
		_, err := BuildDetail(RoleCoordinator, twopc.Deliver("svc-B", msg))
		require.Errorf(t, err, "coordinator should reject %s", msg.Type)
		require.True(t, IsInvalidState(err))
	}

	_, err := BuildDetail(RoleParticipant, twopc.Deliver("svc-A", twopc.VoteResponse(true)))
	require.Error(t, err)
	require.True(t, IsInvalidState(err))
}

func TestBuildDetailParticipantLegalEvents(t *testing.T) {
	d, err := BuildDetail(RoleParticipant, twopc.Alarm())
	require.NoError(t, err)
	require.Equal(t, DetailNone, d.Kind)

	d, err = BuildDetail(RoleParticipant, twopc.Vote(false))
	require.NoError(t, err)
	require.Equal(t, "FALSE", d.Vote)

	for _, msg := range []twopc.Message{twopc.DecisionRequest(), twopc.Commit(), twopc.Abort()} {
		d, err = BuildDetail(RoleParticipant, twopc.Deliver("svc-A", msg))
		require.NoError(t, err)
		require.Equal(t, DetailDeliver, d.Kind)
		require.Nil(t, d.VoteRequest)
	}

	d, err = BuildDetail(RoleParticipant, twopc.Deliver("svc-A", twopc.VoteRequest([]byte("value"))))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), d.VoteRequest)
}

func TestErrorTaxonomy(t *testing.T) {
	err := InvalidState("a context for %s epoch %d does not exist", "svc-E::g", 0)
	require.True(t, IsInvalidState(err))
	require.False(t, IsInternal(err))

	err = Internal(nil, "epoch overflow")
	require.True(t, IsInternal(err))
	require.False(t, IsInvalidState(err))
}
