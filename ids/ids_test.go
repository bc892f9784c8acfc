package ids

import (
	"math"
	"testing"

	"github.com/magiconair/properties/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceId(t *testing.T) {
	id, err := NewServiceId("svc-A::group")
	require.NoError(t, err)
	assert.Equal(t, id.String(), "svc-A::group")

	_, err = NewServiceId("")
	require.Error(t, err)
}

func TestEpochInt64(t *testing.T) {
	v, ok := Epoch(7).Int64()
	assert.Equal(t, ok, true)
	assert.Equal(t, v, int64(7))

	_, ok = Epoch(math.MaxUint64).Int64()
	assert.Equal(t, ok, false)
}

func TestEpochFromInt64(t *testing.T) {
	require.Equal(t, Epoch(42), EpochFromInt64(42))
	require.Equal(t, Epoch(0), EpochFromInt64(-1))
}
