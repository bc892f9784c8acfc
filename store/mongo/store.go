// Package mongo implements store.Store against MongoDB, grounded on the
// teacher repository's storage.MongoDB client (storage/mongo.go): the same
// mongo.Connect/Ping bootstrap and mongo-driver/bson idiom, generalized from
// that package's single flat YCSB collection into the multi-collection
// model this domain needs, and moved off single-document operations onto
// multi-document ACID transactions so C1-C4 hold the same way they do
// against Postgres.
package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/scabbardhq/consensus-store/store"
)

const (
	collCoordinatorContext = "coordinator_context"
	collParticipantContext = "participant_context"
	collEvents             = "events"
)

// Store is a store.Store backed by a MongoDB database reached through a
// single mongo.Client. AppendEvent runs inside a client-side-driven
// multi-document transaction, which requires the target deployment to be a
// replica set (or sharded cluster) rather than a standalone mongod.
// PutContext is a single-document insert outside any transaction.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    Config
}

// New connects to cfg.URI and pings the primary, mirroring the teacher's
// MongoDB.init. It does not create indexes; call EnsureSchema for that.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, store.Internal(err, "failed to connect to mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, store.Internal(err, "failed to ping mongo primary")
	}
	return &Store{
		client: client,
		db:     client.Database(cfg.Database),
		cfg:    cfg,
	}, nil
}

// EnsureSchema creates the unique indexes that back C1/C2: one context per
// (service_id, epoch) per role, and one event per (service_id, epoch,
// position).
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctxColl := func(name string) error {
		_, err := s.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "service_id", Value: 1}, {Key: "epoch", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		return err
	}
	if err := ctxColl(collCoordinatorContext); err != nil {
		return store.Internal(err, "failed to create coordinator context index")
	}
	if err := ctxColl(collParticipantContext); err != nil {
		return store.Internal(err, "failed to create participant context index")
	}
	_, err := s.db.Collection(collEvents).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "service_id", Value: 1},
			{Key: "epoch", Value: 1},
			{Key: "position", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return store.Internal(err, "failed to create event position index")
	}
	return nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
