package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Password  string             `bson:"password"`
	Bio       string             `bson:"bio"`
	Pic       string             `bson:"pic"`
	Friends   []string           `bson:"friends"`
	Items     []string           `bson:"items"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d *userDoc) model() *models.User {
	u := &models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		PasswordHash: d.Password,
		Bio:          d.Bio,
		Pic:          d.Pic,
		Friends:      d.Friends,
		Items:        d.Items,
		CreatedAt:    d.CreatedAt,
	}
	if u.Friends == nil {
		u.Friends = []string{}
	}
	if u.Items == nil {
		u.Items = []string{}
	}
	return u
}

func (s *Storage) SaveUser(ctx context.Context, user *models.User) (string, error) {
	const op = "storage.mongodb.SaveUser"

	doc := userDoc{
		Username:  user.Username,
		Password:  user.PasswordHash,
		Bio:       user.Bio,
		Pic:       user.Pic,
		Friends:   append([]string{}, user.Friends...),
		Items:     append([]string{}, user.Items...),
		CreatedAt: user.CreatedAt,
	}

	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (s *Storage) findUser(ctx context.Context, op string, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, notFound(op, err)
	}
	return doc.model(), nil
}

func (s *Storage) UserByName(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, "storage.mongodb.UserByName", bson.M{"username": username})
}

func (s *Storage) UserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.mongodb.UserByID"

	oid, ok := objectID(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return s.findUser(ctx, op, bson.M{"_id": oid})
}

func (s *Storage) UsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	const op = "storage.mongodb.UsersByIDs"

	users := make([]models.User, 0, len(ids))
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return users, nil
	}

	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": oids}},
		options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, *doc.model())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func (s *Storage) UpdateProfile(ctx context.Context, id, bio, pic string) error {
	const op = "storage.mongodb.UpdateProfile"

	oid, ok := objectID(id)
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"bio": bio, "pic": pic}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectMatch(op, res)
}

func (s *Storage) AddFriend(ctx context.Context, userID, friendID string) error {
	const op = "storage.mongodb.AddFriend"

	oid, ok := objectID(userID)
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$addToSet": bson.M{"friends": friendID}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectMatch(op, res)
}
