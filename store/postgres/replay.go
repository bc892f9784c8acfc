package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"

	"github.com/scabbardhq/consensus-store/ids"
	"github.com/scabbardhq/consensus-store/store"
	"github.com/scabbardhq/consensus-store/twopc"
)

// ListEvents implements store.EventStore.
func (s *Store) ListEvents(ctx context.Context, serviceID ids.ServiceId, epoch ids.Epoch, filter store.ListFilter) ([]store.EventRecord, error) {
	epochInt, ok := epoch.Int64()
	if !ok {
		return nil, store.Internal(nil, "epoch %d overflows int64", epoch)
	}

	where, args := filterClause(filter, "service_id = $1 AND epoch = $2", serviceID.String(), epochInt)
	rows, err := s.pool.Query(ctx,
		`SELECT id, service_id, epoch, position, event_type, executed_at
		 FROM two_pc_consensus_event WHERE `+where+` ORDER BY position ASC`, args...)
	if err != nil {
		return nil, store.Internal(err, "failed to list events for service_id: %s epoch: %d", serviceID, epoch)
	}
	defer rows.Close()

	headers, err := scanHeaders(rows)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, headers)
}

// ListAllEvents implements store.EventStore, ordering across every epoch of
// a service by epoch then position, per the log replay order the spec
// describes.
func (s *Store) ListAllEvents(ctx context.Context, serviceID ids.ServiceId, filter store.ListFilter) ([]store.EventRecord, error) {
	where, args := filterClause(filter, "service_id = $1", serviceID.String())
	rows, err := s.pool.Query(ctx,
		`SELECT id, service_id, epoch, position, event_type, executed_at
		 FROM two_pc_consensus_event WHERE `+where+` ORDER BY epoch ASC, position ASC`, args...)
	if err != nil {
		return nil, store.Internal(err, "failed to list all events for service_id: %s", serviceID)
	}
	defer rows.Close()

	headers, err := scanHeaders(rows)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, headers)
}

func filterClause(filter store.ListFilter, base string, args ...interface{}) (string, []interface{}) {
	switch filter {
	case store.FilterPendingOnly:
		return base + " AND executed_at IS NULL", args
	case store.FilterExecutedOnly:
		return base + " AND executed_at IS NOT NULL", args
	default:
		return base, args
	}
}

type eventHeader struct {
	rec       store.EventRecord
	eventType twopc.EventType
}

func scanHeaders(rows pgx.Rows) ([]eventHeader, error) {
	var out []eventHeader
	for rows.Next() {
		var h eventHeader
		var serviceID string
		var epoch int64
		if err := rows.Scan(&h.rec.EventID, &serviceID, &epoch, &h.rec.Position, &h.eventType, &h.rec.ExecutedAt); err != nil {
			return nil, store.Internal(err, "failed to scan event header")
		}
		sid, err := ids.NewServiceId(serviceID)
		if err != nil {
			return nil, store.Internal(err, "invalid service_id %q in stored event", serviceID)
		}
		h.rec.ServiceID = sid
		h.rec.Epoch = ids.EpochFromInt64(epoch)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Internal(err, "error iterating event rows")
	}
	return out, nil
}

// hydrate fills in each header's twopc.Event by reading the matching detail
// row for event types that carry one (Start, Vote, Deliver); Alarm carries
// no detail row at all.
func (s *Store) hydrate(ctx context.Context, headers []eventHeader) ([]store.EventRecord, error) {
	out := make([]store.EventRecord, 0, len(headers))
	for _, h := range headers {
		event, err := s.hydrateOne(ctx, h)
		if err != nil {
			return nil, err
		}
		h.rec.Event = event
		out = append(out, h.rec)
	}
	return out, nil
}

func (s *Store) hydrateOne(ctx context.Context, h eventHeader) (twopc.Event, error) {
	switch h.eventType {
	case twopc.EventAlarm:
		return twopc.Alarm(), nil
	case twopc.EventStart:
		var value []byte
		err := s.pool.QueryRow(ctx, `SELECT value FROM two_pc_consensus_start_event WHERE event_id = $1`, h.rec.EventID).Scan(&value)
		if err != nil {
			return twopc.Event{}, store.Internal(err, "failed to load start detail for event %d", h.rec.EventID)
		}
		return twopc.Start(value), nil
	case twopc.EventVote:
		var vote string
		err := s.pool.QueryRow(ctx, `SELECT vote FROM two_pc_consensus_vote_event WHERE event_id = $1`, h.rec.EventID).Scan(&vote)
		if err != nil {
			return twopc.Event{}, store.Internal(err, "failed to load vote detail for event %d", h.rec.EventID)
		}
		v, err := twopc.ParseVoteString(vote)
		if err != nil {
			return twopc.Event{}, store.Internal(err, "invalid stored vote string %q for event %d", vote, h.rec.EventID)
		}
		return twopc.Vote(v), nil
	case twopc.EventDeliver:
		return s.hydrateDeliver(ctx, h.rec.EventID)
	default:
		return twopc.Event{}, store.Internal(nil, "unknown stored event_type %q for event %d", h.eventType, h.rec.EventID)
	}
}

func (s *Store) hydrateDeliver(ctx context.Context, eventID int64) (twopc.Event, error) {
	var receiver string
	var messageType twopc.MessageType
	var voteResponse *string
	var voteRequest []byte
	err := s.pool.QueryRow(ctx,
		`SELECT receiver_service_id, message_type, vote_response, vote_request
		 FROM two_pc_consensus_deliver_event WHERE event_id = $1`, eventID).
		Scan(&receiver, &messageType, &voteResponse, &voteRequest)
	if err != nil {
		return twopc.Event{}, store.Internal(err, "failed to load deliver detail for event %d", eventID)
	}

	receiverID, err := ids.NewServiceId(receiver)
	if err != nil {
		return twopc.Event{}, store.Internal(err, "invalid receiver_service_id %q for event %d", receiver, eventID)
	}

	var msg twopc.Message
	switch messageType {
	case twopc.MessageVoteRequest:
		msg = twopc.VoteRequest(voteRequest)
	case twopc.MessageVoteResponse:
		if voteResponse == nil {
			return twopc.Event{}, store.Internal(nil, "vote_response missing for VOTE_RESPONSE deliver event %d", eventID)
		}
		v, vErr := twopc.ParseVoteString(*voteResponse)
		if vErr != nil {
			return twopc.Event{}, store.Internal(vErr, "invalid stored vote_response %q for event %d", *voteResponse, eventID)
		}
		msg = twopc.VoteResponse(v)
	case twopc.MessageCommit:
		msg = twopc.Commit()
	case twopc.MessageAbort:
		msg = twopc.Abort()
	case twopc.MessageDecisionRequest:
		msg = twopc.DecisionRequest()
	default:
		return twopc.Event{}, store.Internal(nil, "unknown stored message_type %q for event %d", messageType, eventID)
	}

	return twopc.Deliver(receiverID, msg), nil
}
