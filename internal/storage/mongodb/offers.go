package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type offerDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	OfferForID   string             `bson:"offerforid"`
	OfferedItems []string           `bson:"offereditems"`
	SentBy       string             `bson:"sentby"`
	SendToUser   string             `bson:"sendtouser"`
	Status       string             `bson:"status"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func (d *offerDoc) model() *models.Offer {
	o := &models.Offer{
		ID:              d.ID.Hex(),
		RequestedItemID: d.OfferForID,
		OfferedItemIDs:  d.OfferedItems,
		SenderID:        d.SentBy,
		RecipientID:     d.SendToUser,
		Status:          models.OfferStatus(d.Status),
		CreatedAt:       d.CreatedAt,
	}
	if o.OfferedItemIDs == nil {
		o.OfferedItemIDs = []string{}
	}
	return o
}

// purgeFilter matches every offer that names itemID on either side.
func purgeFilter(itemID string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"offerforid": itemID},
		bson.M{"offereditems": itemID},
	}}
}

func (s *Storage) SaveOffer(ctx context.Context, offer *models.Offer) (string, error) {
	const op = "storage.mongodb.SaveOffer"

	res, err := s.offers.InsertOne(ctx, offerDoc{
		OfferForID:   offer.RequestedItemID,
		OfferedItems: append([]string{}, offer.OfferedItemIDs...),
		SentBy:       offer.SenderID,
		SendToUser:   offer.RecipientID,
		Status:       string(offer.Status),
		CreatedAt:    offer.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (s *Storage) OfferByID(ctx context.Context, id string) (*models.Offer, error) {
	const op = "storage.mongodb.OfferByID"

	oid, ok := objectID(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc offerDoc
	if err := s.offers.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(op, err)
	}

	return doc.model(), nil
}

func (s *Storage) findOffers(ctx context.Context, op string, filter bson.M) ([]models.Offer, error) {
	cur, err := s.offers.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	offers := make([]models.Offer, 0)
	for cur.Next(ctx) {
		var doc offerDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		offers = append(offers, *doc.model())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return offers, nil
}

func (s *Storage) OffersBySender(ctx context.Context, userID string) ([]models.Offer, error) {
	return s.findOffers(ctx, "storage.mongodb.OffersBySender", bson.M{"sentby": userID})
}

func (s *Storage) OffersByRecipient(ctx context.Context, userID string) ([]models.Offer, error) {
	return s.findOffers(ctx, "storage.mongodb.OffersByRecipient", bson.M{"sendtouser": userID})
}

func (s *Storage) SetOfferStatus(ctx context.Context, id string, from, to models.OfferStatus) error {
	const op = "storage.mongodb.SetOfferStatus"

	oid, ok := objectID(id)
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := s.offers.UpdateOne(ctx,
		bson.M{"_id": oid, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to)}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectMatch(op, res)
}

func (s *Storage) DeleteOffer(ctx context.Context, id string) error {
	const op = "storage.mongodb.DeleteOffer"

	oid, ok := objectID(id)
	if !ok {
		return nil
	}

	if _, err := s.offers.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) PurgeOffersForItem(ctx context.Context, itemID string) (int64, error) {
	const op = "storage.mongodb.PurgeOffersForItem"

	res, err := s.offers.DeleteMany(ctx, purgeFilter(itemID))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.DeletedCount, nil
}
