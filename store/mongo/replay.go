package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/scabbardhq/consensus-store/ids"
	"github.com/scabbardhq/consensus-store/store"
)

// ListEvents implements store.EventStore.
func (s *Store) ListEvents(ctx context.Context, serviceID ids.ServiceId, epoch ids.Epoch, filter store.ListFilter) ([]store.EventRecord, error) {
	epochInt, ok := epoch.Int64()
	if !ok {
		return nil, store.Internal(nil, "epoch %d overflows int64", epoch)
	}

	query := filterQuery(bson.M{"service_id": serviceID.String(), "epoch": epochInt}, filter)
	cur, err := s.db.Collection(collEvents).Find(ctx, query, options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, store.Internal(err, "failed to list events for service_id: %s epoch: %d", serviceID, epoch)
	}
	defer cur.Close(ctx)
	return decodeEvents(ctx, cur)
}

// ListAllEvents implements store.EventStore, ordering across every epoch of
// a service by epoch then position.
func (s *Store) ListAllEvents(ctx context.Context, serviceID ids.ServiceId, filter store.ListFilter) ([]store.EventRecord, error) {
	query := filterQuery(bson.M{"service_id": serviceID.String()}, filter)
	cur, err := s.db.Collection(collEvents).Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "epoch", Value: 1}, {Key: "position", Value: 1}}))
	if err != nil {
		return nil, store.Internal(err, "failed to list all events for service_id: %s", serviceID)
	}
	defer cur.Close(ctx)
	return decodeEvents(ctx, cur)
}

func filterQuery(base bson.M, filter store.ListFilter) bson.M {
	switch filter {
	case store.FilterPendingOnly:
		base["executed_at"] = nil
	case store.FilterExecutedOnly:
		base["executed_at"] = bson.M{"$ne": nil}
	}
	return base
}

func decodeEvents(ctx context.Context, cur interface {
	Next(context.Context) bool
	Decode(interface{}) error
	Err() error
}) ([]store.EventRecord, error) {
	var out []store.EventRecord
	for cur.Next(ctx) {
		var doc eventDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, store.Internal(err, "failed to decode event document")
		}
		sid, err := ids.NewServiceId(doc.ServiceID)
		if err != nil {
			return nil, store.Internal(err, "invalid service_id %q in stored event", doc.ServiceID)
		}
		event, err := doc.toEvent()
		if err != nil {
			return nil, store.Internal(err, "failed to reconstruct event %d", doc.EventID)
		}
		out = append(out, store.EventRecord{
			EventID:    doc.EventID,
			ServiceID:  sid,
			Epoch:      ids.EpochFromInt64(doc.Epoch),
			Position:   doc.Position,
			Event:      event,
			ExecutedAt: doc.ExecutedAt,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, store.Internal(err, "error iterating event documents")
	}
	return out, nil
}
