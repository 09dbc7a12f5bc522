package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func TestSaveUserDuplicateName(t *testing.T) {
	mt := newMock(t)

	mt.Run("duplicate", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		_, err := s.SaveUser(context.Background(), &models.User{Username: "marc1"})
		assert.ErrorIs(mt, err, storage.ErrUserExists)
	})

	mt.Run("inserted", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		id, err := s.SaveUser(context.Background(), &models.User{Username: "marc1"})
		require.NoError(mt, err)
		_, err = primitive.ObjectIDFromHex(id)
		assert.NoError(mt, err)
	})
}

func TestUserLookups(t *testing.T) {
	mt := newMock(t)
	oid := primitive.NewObjectID()
	friend := primitive.NewObjectID().Hex()

	mt.Run("by name", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "barter.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "username", Value: "marc1"},
			{Key: "password", Value: "hash"},
			{Key: "bio", Value: "hello"},
			{Key: "pic", Value: models.DefaultPic},
			{Key: "friends", Value: bson.A{friend}},
		}))

		u, err := s.UserByName(context.Background(), "marc1")
		require.NoError(mt, err)
		assert.Equal(mt, oid.Hex(), u.ID)
		assert.Equal(mt, "hash", u.PasswordHash)
		assert.Equal(mt, []string{friend}, u.Friends)
		assert.NotNil(mt, u.Items)
	})

	mt.Run("missing", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "barter.users", mtest.FirstBatch))

		_, err := s.UserByName(context.Background(), "ghost")
		assert.ErrorIs(mt, err, storage.ErrNotFound)
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)

		_, err := s.UserByID(context.Background(), "not-an-object-id")
		assert.ErrorIs(mt, err, storage.ErrNotFound)
	})
}

func TestUpdatesReportMissingDocuments(t *testing.T) {
	mt := newMock(t)
	id := primitive.NewObjectID().Hex()
	noMatch := mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0})

	mt.Run("profile", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)
		mt.AddMockResponses(noMatch)

		assert.ErrorIs(mt, s.UpdateProfile(context.Background(), id, "", models.DefaultPic), storage.ErrNotFound)
	})

	mt.Run("offer status", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)
		mt.AddMockResponses(noMatch)

		err := s.SetOfferStatus(context.Background(), id, models.OfferSent, models.OfferRejected)
		assert.ErrorIs(mt, err, storage.ErrNotFound)
	})

	mt.Run("friend added", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		assert.NoError(mt, s.AddFriend(context.Background(), id, primitive.NewObjectID().Hex()))
	})
}

func TestItemPriceRoundTrip(t *testing.T) {
	mt := newMock(t)
	oid := primitive.NewObjectID()
	price, err := primitive.ParseDecimal128("19.99")
	require.NoError(t, err)

	mt.Run("item by id", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "barter.items", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "name", Value: "Bike"},
			{Key: "description", Value: "Red"},
			{Key: "user", Value: "owner"},
			{Key: "username", Value: "marc1"},
			{Key: "image_url", Value: ""},
			{Key: "price", Value: price},
			{Key: "created_at", Value: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
			{Key: "public", Value: true},
		}))

		it, err := s.ItemByID(context.Background(), oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, "19.99", it.Price.StringFixed(2))
		assert.Equal(mt, "owner", it.OwnerID)
		assert.Equal(mt, "marc1", it.OwnerUsername)
		assert.True(mt, it.Public)
	})

	mt.Run("public feed", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "barter.items", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: oid}, {Key: "name", Value: "Bike"}, {Key: "price", Value: price}, {Key: "public", Value: true}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "Lamp"}, {Key: "price", Value: price}, {Key: "public", Value: true}},
		))

		items, err := s.PublicItems(context.Background(), models.SortLowest)
		require.NoError(mt, err)
		require.Len(mt, items, 2)
		assert.Equal(mt, "Bike", items[0].Name)
		assert.Equal(mt, "Lamp", items[1].Name)
	})
}

func TestItemSnapshots(t *testing.T) {
	mt := newMock(t)
	present := primitive.NewObjectID()
	missing := primitive.NewObjectID()

	mt.Run("skips missing", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "barter.items", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: present},
			{Key: "name", Value: "Bike"},
			{Key: "username", Value: "marc1"},
			{Key: "user", Value: "owner"},
		}))

		snaps, err := s.ItemSnapshots(context.Background(), []string{present.Hex(), missing.Hex(), "junk"})
		require.NoError(mt, err)
		require.Len(mt, snaps, 1)
		assert.Equal(mt, "Bike", snaps[present.Hex()].Name)
	})

	mt.Run("nothing to look up", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)

		snaps, err := s.ItemSnapshots(context.Background(), []string{"junk"})
		require.NoError(mt, err)
		assert.Empty(mt, snaps)
	})
}

func TestOffersBySender(t *testing.T) {
	mt := newMock(t)

	mt.Run("decodes", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "barter.offers", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "offerforid", Value: "bike"},
				{Key: "offereditems", Value: bson.A{"lamp", "book"}},
				{Key: "sentby", Value: "b"},
				{Key: "sendtouser", Value: "a"},
				{Key: "status", Value: "sent"},
			},
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "offerforid", Value: "bike"},
				{Key: "sentby", Value: "b"},
				{Key: "sendtouser", Value: "a"},
				{Key: "status", Value: "accepted"},
			},
		))

		offers, err := s.OffersBySender(context.Background(), "b")
		require.NoError(mt, err)
		require.Len(mt, offers, 2)
		assert.Equal(mt, []string{"lamp", "book"}, offers[0].OfferedItemIDs)
		assert.Equal(mt, models.OfferSent, offers[0].Status)
		assert.NotNil(mt, offers[1].OfferedItemIDs)
		assert.True(mt, offers[1].Status.Terminal())
	})
}

func TestPurgeAndCascade(t *testing.T) {
	mt := newMock(t)
	itemID := primitive.NewObjectID().Hex()

	mt.Run("purge", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 4}))

		n, err := s.PurgeOffersForItem(context.Background(), itemID)
		require.NoError(mt, err)
		assert.Equal(mt, int64(4), n)
	})

	mt.Run("cascade", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}),
		)

		n, err := s.DeleteItemCascade(context.Background(), itemID)
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		s := NewWithDatabase(mt.DB, false)

		n, err := s.DeleteItemCascade(context.Background(), "junk")
		require.NoError(mt, err)
		assert.Zero(mt, n)
		assert.NoError(mt, s.DeleteItem(context.Background(), "junk"))
	})
}

func TestPurgeFilterMatchesBothSides(t *testing.T) {
	f := purgeFilter("bike")

	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	assert.Equal(t, bson.A{bson.M{"offerforid": "bike"}, bson.M{"offereditems": "bike"}}, or)
}
