package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/scabbardhq/consensus-store/store"
)

const collCounters = "counters"

// nextEventID atomically increments and returns the global event_id
// counter, giving Mongo documents the same monotonically increasing,
// globally unique int64 identity that Postgres' BIGSERIAL gives rows. It
// must be called inside the same transaction as the event insert it backs,
// so a retried or aborted transaction does not burn an id.
func (s *Store) nextEventID(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(collCounters).FindOneAndUpdate(
		ctx,
		bson.M{"_id": "event_id"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, store.Internal(err, "failed to allocate event id")
	}
	return doc.Seq, nil
}

func eventIDFilter(eventID int64) bson.M {
	return bson.M{"_id": eventID}
}
