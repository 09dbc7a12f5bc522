package market

import (
	"context"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
)

// UserStore is the identity store. Lookups return storage.ErrNotFound when
// the user is absent.
type UserStore interface {
	SaveUser(ctx context.Context, user *models.User) (string, error)
	UserByName(ctx context.Context, username string) (*models.User, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
	UsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	UpdateProfile(ctx context.Context, id, bio, pic string) error
	AddFriend(ctx context.Context, userID, friendID string) error
}

type ItemStore interface {
	SaveItem(ctx context.Context, item *models.Item) (string, error)
	ItemByID(ctx context.Context, id string) (*models.Item, error)
	PublicItems(ctx context.Context, sort models.SortOrder) ([]models.Item, error)
	ItemsByOwner(ctx context.Context, ownerID string) ([]models.Item, error)
	UpdateItem(ctx context.Context, id string, upd models.ItemUpdate) error
	SetItemVisibility(ctx context.Context, id string, public bool) error
	// DeleteItem removes the item. Deleting a missing id is not an error.
	DeleteItem(ctx context.Context, id string) error
	// ItemSnapshots resolves ids in bulk. Unknown ids are absent from the map.
	ItemSnapshots(ctx context.Context, ids []string) (map[string]models.ItemSnapshot, error)
}

type OfferStore interface {
	SaveOffer(ctx context.Context, offer *models.Offer) (string, error)
	OfferByID(ctx context.Context, id string) (*models.Offer, error)
	OffersBySender(ctx context.Context, userID string) ([]models.Offer, error)
	OffersByRecipient(ctx context.Context, userID string) ([]models.Offer, error)
	// SetOfferStatus moves the offer from one status to another. It returns
	// storage.ErrNotFound when no offer with that id is in status from.
	SetOfferStatus(ctx context.Context, id string, from, to models.OfferStatus) error
	DeleteOffer(ctx context.Context, id string) error
	// PurgeOffersForItem deletes every offer that requests or offers itemID
	// in a single operation.
	PurgeOffersForItem(ctx context.Context, itemID string) (int64, error)
}

// CascadeDeleter is implemented by stores that can delete an item and purge
// its offers as one unit of work.
type CascadeDeleter interface {
	DeleteItemCascade(ctx context.Context, itemID string) (int64, error)
}

// Store is everything the market needs from a backend.
type Store interface {
	UserStore
	ItemStore
	OfferStore
}
