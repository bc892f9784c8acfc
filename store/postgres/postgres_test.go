package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/scabbardhq/consensus-store/store"
	"github.com/scabbardhq/consensus-store/store/postgres"
	"github.com/scabbardhq/consensus-store/twopc"
)

// newTestStore spins up a disposable Postgres container via testcontainers-go
// and returns a Store pointed at it. Skipped unless RUN_PG_INTEGRATION=1 is
// set, since it needs a working Docker daemon.
func newTestStore(t *testing.T) (*postgres.Store, func()) {
	t.Helper()
	if os.Getenv("RUN_PG_INTEGRATION") == "" {
		t.Skip("set RUN_PG_INTEGRATION=1 to run Postgres-backed integration tests")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "scabbard",
			"POSTGRES_PASSWORD": "scabbard",
			"POSTGRES_DB":       "scabbard",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := postgres.DefaultConfig()
	cfg.DSN = "postgres://scabbard:scabbard@" + host + ":" + port.Port() + "/scabbard?sslmode=disable"

	s, err := postgres.New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))

	cleanup := func() {
		s.Close()
		_ = container.Terminate(ctx)
	}
	return s, cleanup
}

func TestPostgresScenario1StartThenList(t *testing.T) {
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

func TestPostgresScenario4BothContextsRejectedOnRead(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.PutContext(ctx, store.CoordinatorContext("svc-D::g", 9)))
	require.NoError(t, s.PutContext(ctx, store.ParticipantContext("svc-D::g", 9)))

	_, _, err := s.GetContext(ctx, "svc-D::g", 9)
	require.Error(t, err)
	require.True(t, store.IsInvalidState(err))

	_, err = s.AppendEvent(ctx, "svc-D::g", 9, twopc.Alarm())
	require.Error(t, err)
	require.True(t, store.IsInvalidState(err))
}

func TestPostgresSequentialPositionsUnderRetry(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.PutContext(ctx, store.CoordinatorContext("svc-concurrent", 1)))

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := s.AppendEvent(ctx, "svc-concurrent", 1, twopc.Alarm())
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	recs, err := s.ListEvents(ctx, "svc-concurrent", 1, store.FilterAll)
	require.NoError(t, err)
	require.Len(t, recs, n)
	seen := make(map[int64]bool)
	for _, r := range recs {
		require.False(t, seen[r.Position])
		seen[r.Position] = true
	}
}

func TestPostgresMarkExecuted(t *testing.T) {
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
