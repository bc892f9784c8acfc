package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/scabbardhq/consensus-store/ids"
	"github.com/scabbardhq/consensus-store/store"
)

// PutContext implements store.ContextStore. As with the Postgres backend,
// placement only touches one collection (coordinator_context or
// participant_context) and does not itself detect the opposite role having
// already been placed; that contradiction surfaces on GetContext, matching
// scenario 4 of the spec.
func (s *Store) PutContext(ctx context.Context, c store.Context) error {
	coll, err := s.contextCollection(c.Role)
	if err != nil {
		return err
	}

	epoch, ok := c.Epoch.Int64()
	if !ok {
		return store.Internal(nil, "epoch %d overflows int64", c.Epoch)
	}

	_, err = coll.InsertOne(ctx, contextDoc{
		ServiceID: c.ServiceID.String(),
		Epoch:     epoch,
		CreatedAt: time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil // idempotent placement of the same role
	}
	if err != nil {
		return store.Internal(err, "failed to put %s context for service_id: %s epoch: %d", c.Role, c.ServiceID, c.Epoch)
	}
	return nil
}

// GetContext implements store.ContextStore.
func (s *Store) GetContext(ctx context.Context, serviceID ids.ServiceId, epoch ids.Epoch) (*store.Context, bool, error) {
	e, ok := epoch.Int64()
	if !ok {
		return nil, false, store.Internal(nil, "epoch %d overflows int64", epoch)
	}

	coordFound, err := s.contextExists(ctx, collCoordinatorContext, serviceID, e)
	if err != nil {
		return nil, false, store.Internal(err, "failed to look up coordinator context")
	}
	partFound, err := s.contextExists(ctx, collParticipantContext, serviceID, e)
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

func (s *Store) contextExists(ctx context.Context, collName string, serviceID ids.ServiceId, epoch int64) (bool, error) {
	n, err := s.db.Collection(collName).CountDocuments(ctx,
		bson.M{"service_id": serviceID.String(), "epoch": epoch})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) contextCollection(role store.Role) (*mongo.Collection, error) {
	switch role {
	case store.RoleCoordinator:
		return s.db.Collection(collCoordinatorContext), nil
	case store.RoleParticipant:
		return s.db.Collection(collParticipantContext), nil
	default:
		return nil, store.Internal(nil, "unknown role %d", role)
	}
}
