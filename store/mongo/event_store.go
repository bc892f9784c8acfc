package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/scabbardhq/consensus-store/ids"
	"github.com/scabbardhq/consensus-store/store"
	"github.com/scabbardhq/consensus-store/twopc"
)

// AppendEvent implements store.EventStore using a multi-document ACID
// transaction (client.StartSession + WithTransaction), the approach the
// spec names as the Mongo alternative to a single SQL transaction. Retries
// on TransientTransactionError labels, which mongo-driver attaches to
// errors worth retrying the whole transaction for (write conflicts,
// primary stepdowns), up to cfg.MaxAppendRetries times.
func (s *Store) AppendEvent(ctx context.Context, serviceID ids.ServiceId, epoch ids.Epoch, event twopc.Event) (int64, error) {
	epochInt, ok := epoch.Int64()
	if !ok {
		return 0, store.Internal(nil, "epoch %d overflows int64", epoch)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return 0, store.Internal(err, "failed to start mongo session")
	}
	defer session.EndSession(ctx)

	var eventID int64
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxAppendRetries; attempt++ {
		eventID, lastErr = s.appendEventOnce(ctx, session, serviceID, epochInt, epoch, event)
		if lastErr == nil {
			break
		}
		if !hasErrorLabel(lastErr, "TransientTransactionError") {
			return 0, lastErr
		}
	}
	if lastErr != nil {
		return 0, store.Internal(lastErr, "exhausted %d retries appending event for service_id: %s epoch: %d", s.cfg.MaxAppendRetries, serviceID, epoch)
	}
	return eventID, nil
}

func (s *Store) appendEventOnce(ctx context.Context, session mongo.Session, serviceID ids.ServiceId, epochInt int64, epoch ids.Epoch, event twopc.Event) (int64, error) {
	var eventID int64

	_, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		role, rErr := s.lookupRole(sc, serviceID, epochInt, epoch)
		if rErr != nil {
			return nil, rErr
		}

		detail, dErr := store.BuildDetail(role, event)
		if dErr != nil {
			return nil, dErr
		}

		n, cErr := s.db.Collection(collEvents).CountDocuments(sc,
			bson.M{"service_id": serviceID.String(), "epoch": epochInt})
		if cErr != nil {
			return nil, store.Internal(cErr, "failed to compute next position")
		}
		position := n + 1

		id, idErr := s.nextEventID(sc)
		if idErr != nil {
			return nil, idErr
		}
		eventID = id

		doc := documentFromDetail(eventID, serviceID, epochInt, position, event, detail)
		if _, iErr := s.db.Collection(collEvents).InsertOne(sc, doc); iErr != nil {
			return nil, store.Internal(iErr, "failed to insert event document")
		}
		return nil, nil
	})
	if err != nil {
		if storeErr, ok := asStoreError(err); ok {
			return 0, storeErr
		}
		return 0, err
	}
	return eventID, nil
}

func (s *Store) lookupRole(ctx context.Context, serviceID ids.ServiceId, epochInt int64, epoch ids.Epoch) (store.Role, error) {
	coordFound, err := s.contextExists(ctx, collCoordinatorContext, serviceID, epochInt)
	if err != nil {
		return 0, store.Internal(err, "failed to look up coordinator context")
	}
	partFound, err := s.contextExists(ctx, collParticipantContext, serviceID, epochInt)
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

func documentFromDetail(eventID int64, serviceID ids.ServiceId, epochInt int64, position int64, event twopc.Event, d store.Detail) eventDoc {
	doc := eventDoc{
		EventID:   eventID,
		ServiceID: serviceID.String(),
		Epoch:     epochInt,
		Position:  position,
		EventType: string(event.Type),
	}
	switch d.Kind {
	case store.DetailNone:
		doc.DetailKind = "none"
	case store.DetailStart:
		doc.DetailKind = "start"
		doc.Value = d.Value
	case store.DetailVote:
		doc.DetailKind = "vote"
		doc.Vote = d.Vote
	case store.DetailDeliver:
		doc.DetailKind = "deliver"
		doc.ReceiverID = d.Receiver.String()
		doc.MessageType = string(d.MessageType)
		doc.VoteResponse = d.VoteResponse
		doc.VoteRequest = d.VoteRequest
	}
	return doc
}

// MarkExecuted implements store.EventStore. eventID is the value this
// backend's nextEventID counter assigned at AppendEvent time and that
// ListEvents/ListAllEvents echo back, giving Mongo documents the same
// globally unique int64 identity Postgres' BIGSERIAL gives rows.
func (s *Store) MarkExecuted(ctx context.Context, eventID int64, at time.Time) error {
	filter := eventIDFilter(eventID)
	filter["executed_at"] = nil

	res, err := s.db.Collection(collEvents).UpdateOne(ctx, filter, bson.M{"$set": bson.M{"executed_at": at}})
	if err != nil {
		return store.Internal(err, "failed to mark event %d executed", eventID)
	}
	if res.MatchedCount == 0 {
		n, cErr := s.db.Collection(collEvents).CountDocuments(ctx, eventIDFilter(eventID))
		if cErr != nil {
			return store.Internal(cErr, "failed to check event %d existence", eventID)
		}
		if n == 0 {
			return store.InvalidState("event %d does not exist", eventID)
		}
		return store.InvalidState("event %d has already been marked executed", eventID)
	}
	return nil
}

func hasErrorLabel(err error, label string) bool {
	type labeled interface {
		HasErrorLabel(string) bool
	}
	var le labeled
	if errors.As(err, &le) {
		return le.HasErrorLabel(label)
	}
	return false
}

func asStoreError(err error) (error, bool) {
	if store.IsInvalidState(err) || store.IsInternal(err) {
		return err, true
	}
	return nil, false
}
