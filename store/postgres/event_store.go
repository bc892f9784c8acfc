package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/scabbardhq/consensus-store/ids"
	"github.com/scabbardhq/consensus-store/store"
	"github.com/scabbardhq/consensus-store/twopc"
)

// pgSerializationFailure and pgDeadlockDetected are the Postgres error codes
// that make a SERIALIZABLE append worth retrying rather than surfacing to
// the caller; see https://www.postgresql.org/docs/current/errcodes-appendix.html.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// AppendEvent implements store.EventStore. It takes the in-process striped
// lock for (serviceID, epoch) first, then runs the insert in a SERIALIZABLE
// transaction, retrying on conflict up to cfg.MaxAppendRetries times. The
// position is computed as max(position)+1 inside the same transaction that
// inserts the row, so C2 (monotonic positions) holds even under contention.
func (s *Store) AppendEvent(ctx context.Context, serviceID ids.ServiceId, epoch ids.Epoch, event twopc.Event) (int64, error) {
	release := s.locks.acquire(serviceID, epoch)
	defer release()

	epochInt, ok := epoch.Int64()
	if !ok {
		return 0, store.Internal(nil, "epoch %d overflows int64", epoch)
	}

	var eventID int64
	var position int64
	var lastErr error

	for attempt := 0; attempt <= s.cfg.MaxAppendRetries; attempt++ {
		eventID, position, lastErr = s.appendEventOnce(ctx, serviceID, epochInt, epoch, event)
		if lastErr == nil {
			break
		}
		if !isRetryable(lastErr) {
			return 0, lastErr
		}
	}
	if lastErr != nil {
		return 0, store.Internal(lastErr, "exhausted %d retries appending event for service_id: %s epoch: %d", s.cfg.MaxAppendRetries, serviceID, epoch)
	}

	if s.shadow != nil {
		if err := s.shadow.append(serviceID, epoch, position, eventID, event.Type); err != nil {
			s.logger.Warn().Err(err).Int64("event_id", eventID).Msg("failed to append to shadow log")
		}
	}

	return eventID, nil
}

func (s *Store) appendEventOnce(ctx context.Context, serviceID ids.ServiceId, epochInt int64, epoch ids.Epoch, event twopc.Event) (eventID int64, position int64, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, 0, store.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	role, roleErr := s.lookupRole(ctx, tx, serviceID, epochInt, epoch)
	if roleErr != nil {
		return 0, 0, roleErr
	}

	detail, detailErr := store.BuildDetail(role, event)
	if detailErr != nil {
		return 0, 0, detailErr
	}

	var maxPos *int64
	if qErr := tx.QueryRow(ctx,
		`SELECT MAX(position) FROM two_pc_consensus_event WHERE service_id = $1 AND epoch = $2`,
		serviceID.String(), epochInt).Scan(&maxPos); qErr != nil {
		return 0, 0, store.Internal(qErr, "failed to compute next position")
	}
	position = 1
	if maxPos != nil {
		position = *maxPos + 1
	}

	if iErr := tx.QueryRow(ctx,
		`INSERT INTO two_pc_consensus_event (service_id, epoch, position, event_type)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		serviceID.String(), epochInt, position, string(event.Type)).Scan(&eventID); iErr != nil {
		return 0, 0, store.Internal(iErr, "failed to insert event header")
	}

	if dErr := insertDetail(ctx, tx, serviceID, epochInt, eventID, detail); dErr != nil {
		return 0, 0, dErr
	}

	if cErr := tx.Commit(ctx); cErr != nil {
		return 0, 0, store.Internal(cErr, "failed to commit event append")
	}
	return eventID, position, nil
}

func (s *Store) lookupRole(ctx context.Context, tx pgx.Tx, serviceID ids.ServiceId, epochInt int64, epoch ids.Epoch) (store.Role, error) {
	coordFound, err := existsInTable(ctx, tx, "consensus_2pc_coordinator_context", serviceID, epochInt)
	if err != nil {
		return 0, store.Internal(err, "failed to look up coordinator context")
	}
	partFound, err := existsInTable(ctx, tx, "consensus_2pc_participant_context", serviceID, epochInt)
	if err != nil {
		return 0, store.Internal(err, "failed to look up participant context")
	}
	switch {
	case coordFound && partFound:
		return 0, store.InvalidState(
			"contexts found for participant and coordinator with service_id: %s epoch: %d", serviceID, epoch)
	case coordFound:
		return store.RoleCoordinator, nil
	case partFound:
		return store.RoleParticipant, nil
	default:
		return 0, store.InvalidState(
			"failed to add consensus event, a context with service_id: %s and epoch: %d does not exist", serviceID, epoch)
	}
}

func insertDetail(ctx context.Context, tx pgx.Tx, serviceID ids.ServiceId, epochInt int64, eventID int64, d store.Detail) error {
	switch d.Kind {
	case store.DetailNone:
		return nil
	case store.DetailStart:
		_, err := tx.Exec(ctx,
			`INSERT INTO two_pc_consensus_start_event (event_id, service_id, epoch, value) VALUES ($1, $2, $3, $4)`,
			eventID, serviceID.String(), epochInt, d.Value)
		if err != nil {
			return store.Internal(err, "failed to insert start detail")
		}
		return nil
	case store.DetailVote:
		_, err := tx.Exec(ctx,
			`INSERT INTO two_pc_consensus_vote_event (event_id, service_id, epoch, vote) VALUES ($1, $2, $3, $4)`,
			eventID, serviceID.String(), epochInt, d.Vote)
		if err != nil {
			return store.Internal(err, "failed to insert vote detail")
		}
		return nil
	case store.DetailDeliver:
		_, err := tx.Exec(ctx,
			`INSERT INTO two_pc_consensus_deliver_event
			 (event_id, service_id, epoch, receiver_service_id, message_type, vote_response, vote_request)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			eventID, serviceID.String(), epochInt, d.Receiver.String(), string(d.MessageType), d.VoteResponse, d.VoteRequest)
		if err != nil {
			return store.Internal(err, "failed to insert deliver detail")
		}
		return nil
	default:
		return store.Internal(nil, "unknown detail kind %d", d.Kind)
	}
}

// MarkExecuted implements store.EventStore.
func (s *Store) MarkExecuted(ctx context.Context, eventID int64, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE two_pc_consensus_event SET executed_at = $2 WHERE id = $1 AND executed_at IS NULL`,
		eventID, at)
	if err != nil {
		return store.Internal(err, "failed to mark event %d executed", eventID)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		qErr := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM two_pc_consensus_event WHERE id = $1)`, eventID).Scan(&exists)
		if qErr != nil {
			return store.Internal(qErr, "failed to check event %d existence", eventID)
		}
		if !exists {
			return store.InvalidState("event %d does not exist", eventID)
		}
		return store.InvalidState("event %d has already been marked executed", eventID)
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return false
}
