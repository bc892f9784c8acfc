package mongo_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scabbardhq/consensus-store/store"
	mongostore "github.com/scabbardhq/consensus-store/store/mongo"
	"github.com/scabbardhq/consensus-store/twopc"
)

// newTestStore connects to a Mongo replica set reachable at
// SCABBARD_MONGO_TEST_URI. Skipped unless RUN_MONGO_INTEGRATION=1 is set, as
// transactions require a real replica set rather than a lone mongod.
func newTestStore(t *testing.T) (*mongostore.Store, func()) {
	t.Helper()
	if os.Getenv("RUN_MONGO_INTEGRATION") == "" {
		t.Skip("set RUN_MONGO_INTEGRATION=1 and a reachable replica set to run Mongo-backed integration tests")
	}

	ctx := context.Background()
	cfg := mongostore.DefaultConfig()
	if uri := os.Getenv("SCABBARD_MONGO_TEST_URI"); uri != "" {
		cfg.URI = uri
	}

	s, err := mongostore.New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))

	cleanup := func() {
		_ = s.Close(ctx)
	}
	return s, cleanup
}

func TestMongoScenario1StartThenList(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.PutContext(ctx, store.CoordinatorContext("svc-A::group", 7)))
	_, err := s.AppendEvent(ctx, "svc-A::group", 7, twopc.Start([]byte{0x01, 0x02}))
	require.NoError(t, err)

	recs, err := s.ListEvents(ctx, "svc-A::group", 7, store.FilterAll)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, int64(1), recs[0].Position)
	require.Equal(t, []byte{0x01, 0x02}, recs[0].Event.Value)
}

func TestMongoScenario4BothContextsRejectedOnRead(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.PutContext(ctx, store.CoordinatorContext("svc-D::g", 9)))
	require.NoError(t, s.PutContext(ctx, store.ParticipantContext("svc-D::g", 9)))

	_, _, err := s.GetContext(ctx, "svc-D::g", 9)
	require.Error(t, err)
	require.True(t, store.IsInvalidState(err))
}

func TestMongoMarkExecutedOnceThenRejects(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.PutContext(ctx, store.CoordinatorContext("svc-exec", 1)))
	id, err := s.AppendEvent(ctx, "svc-exec", 1, twopc.Alarm())
	require.NoError(t, err)

	require.NoError(t, s.MarkExecuted(ctx, id, time.Now()))
	err = s.MarkExecuted(ctx, id, time.Now())
	require.Error(t, err)
	require.True(t, store.IsInvalidState(err))
}
