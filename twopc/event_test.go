package twopc

import (
	"testing"

	"github.com/magiconair/properties/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteStringRoundTrip(t *testing.T) {
	assert.Equal(t, VoteString(true), "TRUE")
	assert.Equal(t, VoteString(false), "FALSE")

	v, err := ParseVoteString("TRUE")
	require.NoError(t, err)
	require.True(t, v)

	v, err = ParseVoteString("FALSE")
	require.NoError(t, err)
	require.False(t, v)

	_, err = ParseVoteString("true")
	require.Error(t, err)
	_, err = ParseVoteString("1")
	require.Error(t, err)
}

func TestEventConstructorsTagOnly(t *testing.T) {
	require.Equal(t, EventAlarm, Alarm().Type)

	s := Start([]byte{0x01, 0x02})
	require.Equal(t, EventStart, s.Type)
	require.Equal(t, []byte{0x01, 0x02}, s.Value)

	v := Vote(true)
	require.Equal(t, EventVote, v.Type)
	require.True(t, v.Vote)

	d := Deliver("svc-B::group", DecisionRequest())
	require.Equal(t, EventDeliver, d.Type)
	require.Equal(t, MessageDecisionRequest, d.Message.Type)
}

func TestMessageConstructorsTagOnly(t *testing.T) {
	vr := VoteRequest([]byte("payload"))
	require.Equal(t, MessageVoteRequest, vr.Type)
	require.Equal(t, []byte("payload"), vr.Value)

	resp := VoteResponse(false)
	require.Equal(t, MessageVoteResponse, resp.Type)
	require.False(t, resp.Vote)

	require.Equal(t, MessageCommit, Commit().Type)
	require.Equal(t, MessageAbort, Abort().Type)
	require.Equal(t, MessageDecisionRequest, DecisionRequest().Type)
}
