package store

import (
	"context"
	"time"

	"github.com/scabbardhq/consensus-store/ids"
	"github.com/scabbardhq/consensus-store/twopc"
)

// ContextStore is the per-(service, epoch) role binding surface (spec §4.2).
type ContextStore interface {
	// PutContext creates the role binding. Placing the same role twice is a
	// no-op, never an error. Where C1 is checked depends on the backend:
	// memstore fails with InvalidState here if a context already exists for
	// (c.ServiceID, c.Epoch) in the opposite role, while store/postgres and
	// store/mongo accept the opposite-role placement and report the conflict
	// as InvalidState from GetContext and AppendEvent.
	PutContext(ctx context.Context, c Context) error

	// GetContext looks up whichever role exists for (serviceID, epoch). It
	// returns (nil, false) when no context exists (NotFound is
	// Option-shaped, never an error, per §7). Finding both roles bound is
	// a hard invariant violation and surfaces as InvalidState rather than
	// as a false "not found".
	GetContext(ctx context.Context, serviceID ids.ServiceId, epoch ids.Epoch) (*Context, bool, error)
}

// EventStore is the append-only, position-sequenced consensus event log and
// its transactional writer (spec §4.3, §4.4).
type EventStore interface {
	// AppendEvent is the primary operation (spec §4.3): it validates the
	// event against the bound role (C3), assigns the next position for
	// (serviceID, epoch) (C2), and writes the header row plus, for Start,
	// Vote and Deliver, exactly one role-appropriate detail row (Alarm has
	// none) as a single atomic fact (C4), guarded by
	// context precedence (C5). It returns the store-assigned event id.
	AppendEvent(ctx context.Context, serviceID ids.ServiceId, epoch ids.Epoch, event twopc.Event) (int64, error)

	// ListEvents replays a single (service_id, epoch)'s events in position
	// order, optionally filtered to pending or executed-only.
	ListEvents(ctx context.Context, serviceID ids.ServiceId, epoch ids.Epoch, filter ListFilter) ([]EventRecord, error)

	// ListAllEvents replays every event recorded for a service across all
	// epochs, ordered epoch ascending then position ascending (spec §4.4).
	ListAllEvents(ctx context.Context, serviceID ids.ServiceId, filter ListFilter) ([]EventRecord, error)

	// MarkExecuted transitions executed_at from NULL to at, exactly once.
	// A second call for the same event id fails with InvalidState.
	MarkExecuted(ctx context.Context, eventID int64, at time.Time) error
}

// Store is the full surface the enclosing consensus engine depends on.
type Store interface {
	ContextStore
	EventStore
}
