package postgres

import (
	"context"

	"github.com/scabbardhq/consensus-store/store"
)

// schemaDDL creates the six logical tables of spec §6.2. Names and columns
// match the spec exactly so that an operator reading a dump recognizes the
// model immediately. Schema migration tooling is explicitly out of scope
// (spec §1); this is a single idempotent "create if missing" statement
// meant for tests and first-run bootstrapping, not a migration framework.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS consensus_2pc_coordinator_context (
	service_id TEXT NOT NULL,
	epoch      BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (service_id, epoch)
);

CREATE TABLE IF NOT EXISTS consensus_2pc_participant_context (
	service_id TEXT NOT NULL,
	epoch      BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (service_id, epoch)
);

CREATE TABLE IF NOT EXISTS two_pc_consensus_event (
	id          BIGSERIAL PRIMARY KEY,
	service_id  TEXT NOT NULL,
	epoch       BIGINT NOT NULL,
	position    INTEGER NOT NULL,
	event_type  TEXT NOT NULL,
	executed_at TIMESTAMPTZ,
	UNIQUE (service_id, epoch, position)
);

CREATE TABLE IF NOT EXISTS two_pc_consensus_deliver_event (
	event_id           BIGINT PRIMARY KEY REFERENCES two_pc_consensus_event (id),
	service_id         TEXT NOT NULL,
	epoch              BIGINT NOT NULL,
	receiver_service_id TEXT NOT NULL,
	message_type       TEXT NOT NULL,
	vote_response      TEXT,
	vote_request       BYTEA
);

CREATE TABLE IF NOT EXISTS two_pc_consensus_start_event (
	event_id   BIGINT PRIMARY KEY REFERENCES two_pc_consensus_event (id),
	service_id TEXT NOT NULL,
	epoch      BIGINT NOT NULL,
	value      BYTEA NOT NULL
);

CREATE TABLE IF NOT EXISTS two_pc_consensus_vote_event (
	event_id   BIGINT PRIMARY KEY REFERENCES two_pc_consensus_event (id),
	service_id TEXT NOT NULL,
	epoch      BIGINT NOT NULL,
	vote       TEXT NOT NULL
);
`

// EnsureSchema creates the logical tables if they do not already exist. It
// is idempotent and safe to call on every process start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaDDL)
	if err != nil {
		return store.Internal(err, "failed to ensure schema")
	}
	return nil
}
