package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/storage"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type itemDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	User        string               `bson:"user"`
	Username    string               `bson:"username"`
	ImageURL    string               `bson:"image_url"`
	Price       primitive.Decimal128 `bson:"price"`
	CreatedAt   time.Time            `bson:"created_at"`
	Public      bool                 `bson:"public"`
}

func (d *itemDoc) model() (*models.Item, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return nil, fmt.Errorf("item %s price: %w", d.ID.Hex(), err)
	}

	return &models.Item{
		ID:            d.ID.Hex(),
		Name:          d.Name,
		Description:   d.Description,
		ImageURL:      d.ImageURL,
		Price:         price,
		OwnerID:       d.User,
		OwnerUsername: d.Username,
		CreatedAt:     d.CreatedAt,
		Public:        d.Public,
	}, nil
}

func decimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.StringFixed(2))
}

var itemSort = map[models.SortOrder]bson.D{
	models.SortNewest:  {{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}},
	models.SortOldest:  {{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
	models.SortLowest:  {{Key: "price", Value: 1}, {Key: "_id", Value: 1}},
	models.SortHighest: {{Key: "price", Value: -1}, {Key: "_id", Value: 1}},
}

func (s *Storage) SaveItem(ctx context.Context, item *models.Item) (string, error) {
	const op = "storage.mongodb.SaveItem"

	price, err := decimal128(item.Price)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.items.InsertOne(ctx, itemDoc{
		Name:        item.Name,
		Description: item.Description,
		User:        item.OwnerID,
		Username:    item.OwnerUsername,
		ImageURL:    item.ImageURL,
		Price:       price,
		CreatedAt:   item.CreatedAt,
		Public:      item.Public,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (s *Storage) ItemByID(ctx context.Context, id string) (*models.Item, error) {
	const op = "storage.mongodb.ItemByID"

	oid, ok := objectID(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc itemDoc
	if err := s.items.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(op, err)
	}

	item, err := doc.model()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

func (s *Storage) findItems(ctx context.Context, op string, filter bson.M, sort bson.D) ([]models.Item, error) {
	cur, err := s.items.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	items := make([]models.Item, 0)
	for cur.Next(ctx) {
		var doc itemDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		item, err := doc.model()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, *item)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (s *Storage) PublicItems(ctx context.Context, sort models.SortOrder) ([]models.Item, error) {
	order, ok := itemSort[sort]
	if !ok {
		order = itemSort[models.SortNewest]
	}

	return s.findItems(ctx, "storage.mongodb.PublicItems", bson.M{"public": true}, order)
}

func (s *Storage) ItemsByOwner(ctx context.Context, ownerID string) ([]models.Item, error) {
	return s.findItems(ctx, "storage.mongodb.ItemsByOwner", bson.M{"user": ownerID}, itemSort[models.SortOldest])
}

func (s *Storage) UpdateItem(ctx context.Context, id string, upd models.ItemUpdate) error {
	const op = "storage.mongodb.UpdateItem"

	oid, ok := objectID(id)
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	price, err := decimal128(upd.Price)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.items.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"name":        upd.Name,
		"description": upd.Description,
		"image_url":   upd.ImageURL,
		"price":       price,
	}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectMatch(op, res)
}

func (s *Storage) SetItemVisibility(ctx context.Context, id string, public bool) error {
	const op = "storage.mongodb.SetItemVisibility"

	oid, ok := objectID(id)
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := s.items.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"public": public}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectMatch(op, res)
}

func (s *Storage) DeleteItem(ctx context.Context, id string) error {
	const op = "storage.mongodb.DeleteItem"

	oid, ok := objectID(id)
	if !ok {
		return nil
	}

	if _, err := s.items.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteItemCascade removes the item and purges its offers. With
// transactions enabled both writes commit together; otherwise they run
// back to back.
func (s *Storage) DeleteItemCascade(ctx context.Context, itemID string) (int64, error) {
	const op = "storage.mongodb.DeleteItemCascade"

	oid, ok := objectID(itemID)
	if !ok {
		return 0, nil
	}

	cascade := func(ctx context.Context) (int64, error) {
		if _, err := s.items.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
			return 0, err
		}
		res, err := s.offers.DeleteMany(ctx, purgeFilter(itemID))
		if err != nil {
			return 0, err
		}
		return res.DeletedCount, nil
	}

	if !s.transactions {
		n, err := cascade(ctx)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		return n, nil
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer sess.EndSession(ctx)

	res, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return cascade(sc)
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.(int64), nil
}

func (s *Storage) ItemSnapshots(ctx context.Context, ids []string) (map[string]models.ItemSnapshot, error) {
	const op = "storage.mongodb.ItemSnapshots"

	oids := objectIDs(ids)
	snaps := make(map[string]models.ItemSnapshot, len(oids))
	if len(oids) == 0 {
		return snaps, nil
	}

	cur, err := s.items.Find(ctx, bson.M{"_id": bson.M{"$in": oids}},
		options.Find().SetProjection(bson.M{"name": 1, "username": 1, "user": 1, "image_url": 1}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc itemDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		id := doc.ID.Hex()
		snaps[id] = models.ItemSnapshot{
			ID:            id,
			Name:          doc.Name,
			OwnerUsername: doc.Username,
			OwnerID:       doc.User,
			ImageURL:      doc.ImageURL,
		}
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return snaps, nil
}
