package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection  = "users"
	itemsCollection  = "items"
	offersCollection = "offers"

	connectTimeout = 10 * time.Second
)

type Storage struct {
	client       *mongo.Client
	users        *mongo.Collection
	items        *mongo.Collection
	offers       *mongo.Collection
	transactions bool
}

// New connects to uri, pings the primary and makes sure the indexes the
// queries rely on exist. Transactions require a replica set.
func New(ctx context.Context, uri, dbName string, transactions bool) (*Storage, error) {
	const op = "storage.mongodb.New"

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := NewWithDatabase(client.Database(dbName), transactions)
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func NewWithDatabase(db *mongo.Database, transactions bool) *Storage {
	return &Storage{
		client:       db.Client(),
		users:        db.Collection(usersCollection),
		items:        db.Collection(itemsCollection),
		offers:       db.Collection(offersCollection),
		transactions: transactions,
	}
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}

	if _, err := s.items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "public", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user", Value: 1}}},
	}); err != nil {
		return err
	}

	_, err := s.offers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "offerforid", Value: 1}}},
		{Keys: bson.D{{Key: "offereditems", Value: 1}}},
		{Keys: bson.D{{Key: "sentby", Value: 1}}},
		{Keys: bson.D{{Key: "sendtouser", Value: 1}}},
	})
	return err
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Storage) Stop(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// objectID parses a hex id. Malformed ids cannot match a document, so
// callers turn the error into storage.ErrNotFound or a no-op.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, ok := objectID(id); ok {
			out = append(out, oid)
		}
	}
	return out
}

func notFound(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func expectMatch(op string, res *mongo.UpdateResult) error {
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}
