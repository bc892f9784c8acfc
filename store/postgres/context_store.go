package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"

	"github.com/scabbardhq/consensus-store/ids"
	"github.com/scabbardhq/consensus-store/store"
)

// PutContext implements store.ContextStore. Placement is idempotent for the
// same role (ON CONFLICT DO NOTHING) and, unlike memstore, is not itself
// where C1 is enforced: coordinator and participant contexts live in
// separate tables, so both a coordinator and a participant row can be
// inserted independently. The violation surfaces on read, in GetContext,
// exactly as scenario 4 of the spec describes.
func (s *Store) PutContext(ctx context.Context, c store.Context) error {
	table, err := contextTable(c.Role)
	if err != nil {
		return err
	}

	epoch, ok := c.Epoch.Int64()
	if !ok {
		return store.Internal(nil, "epoch %d overflows int64", c.Epoch)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+table+` (service_id, epoch) VALUES ($1, $2)
		 ON CONFLICT (service_id, epoch) DO NOTHING`,
		c.ServiceID.String(), epoch)
	if err != nil {
		return store.Internal(err, "failed to put %s context for service_id: %s epoch: %d", c.Role, c.ServiceID, c.Epoch)
	}
	return nil
}

// GetContext implements store.ContextStore. It looks in both the
// coordinator and participant tables; finding a row in both is the
// same contradiction scenario 4 names and is surfaced as InvalidState
// rather than silently picking one.
func (s *Store) GetContext(ctx context.Context, serviceID ids.ServiceId, epoch ids.Epoch) (*store.Context, bool, error) {
	e, ok := epoch.Int64()
	if !ok {
		return nil, false, store.Internal(nil, "epoch %d overflows int64", epoch)
	}

	coordFound, err := existsInTable(ctx, s.pool, "consensus_2pc_coordinator_context", serviceID, e)
	if err != nil {
		return nil, false, store.Internal(err, "failed to look up coordinator context")
	}
	partFound, err := existsInTable(ctx, s.pool, "consensus_2pc_participant_context", serviceID, e)
	if err != nil {
		return nil, false, store.Internal(err, "failed to look up participant context")
	}

	switch {
	case coordFound && partFound:
		return nil, false, store.InvalidState(
			"contexts found for participant and coordinator with service_id: %s epoch: %d", serviceID, epoch)
	case coordFound:
		c := store.CoordinatorContext(serviceID, epoch)
		return &c, true, nil
	case partFound:
		c := store.ParticipantContext(serviceID, epoch)
		return &c, true, nil
	default:
		return nil, false, nil
	}
}

func existsInTable(ctx context.Context, q pgxQuerier, table string, serviceID ids.ServiceId, epoch int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE service_id = $1 AND epoch = $2)`,
		serviceID.String(), epoch).Scan(&exists)
	if err != nil && err != pgx.ErrNoRows {
		return false, err
	}
	return exists, nil
}

func contextTable(role store.Role) (string, error) {
	switch role {
	case store.RoleCoordinator:
		return "consensus_2pc_coordinator_context", nil
	case store.RoleParticipant:
		return "consensus_2pc_participant_context", nil
	default:
		return "", store.Internal(nil, "unknown role %d", role)
	}
}
