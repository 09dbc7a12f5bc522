// Package memory is an in-process store for local runs and tests. It keeps
// everything in maps guarded by one lock and loses it on exit.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/storage"
	"github.com/google/uuid"
)

type Storage struct {
	mu     sync.RWMutex
	users  map[string]models.User
	names  map[string]string
	items  map[string]models.Item
	offers map[string]models.Offer
}

func New() *Storage {
	return &Storage{
		users:  make(map[string]models.User),
		names:  make(map[string]string),
		items:  make(map[string]models.Item),
		offers: make(map[string]models.Offer),
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

func (s *Storage) Stop(ctx context.Context) error {
	return nil
}

func cloneUser(u models.User) models.User {
	u.Friends = slices.Clone(u.Friends)
	u.Items = slices.Clone(u.Items)
	return u
}

func cloneOffer(o models.Offer) models.Offer {
	o.OfferedItemIDs = slices.Clone(o.OfferedItemIDs)
	return o
}

func (s *Storage) SaveUser(ctx context.Context, user *models.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.names[user.Username]; ok {
		return "", storage.ErrUserExists
	}

	u := cloneUser(*user)
	u.ID = uuid.NewString()
	s.users[u.ID] = u
	s.names[u.Username] = u.ID

	return u.ID, nil
}

func (s *Storage) UserByName(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.names[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u := cloneUser(s.users[id])
	return &u, nil
}

func (s *Storage) UserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

func (s *Storage) UsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (s *Storage) UpdateProfile(ctx context.Context, id, bio, pic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Bio = bio
	u.Pic = pic
	s.users[id] = u
	return nil
}

func (s *Storage) AddFriend(ctx context.Context, userID, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	if !slices.Contains(u.Friends, friendID) {
		u.Friends = append(slices.Clone(u.Friends), friendID)
		s.users[userID] = u
	}
	return nil
}

func (s *Storage) SaveItem(ctx context.Context, item *models.Item) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := *item
	it.ID = uuid.NewString()
	s.items[it.ID] = it
	return it.ID, nil
}

func (s *Storage) ItemByID(ctx context.Context, id string) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &it, nil
}

func (s *Storage) PublicItems(ctx context.Context, order models.SortOrder) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Item, 0, len(s.items))
	for _, it := range s.items {
		if it.Public {
			out = append(out, it)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var c int
		switch order {
		case models.SortOldest:
			c = a.CreatedAt.Compare(b.CreatedAt)
		case models.SortLowest:
			c = a.Price.Cmp(b.Price)
		case models.SortHighest:
			c = b.Price.Cmp(a.Price)
		default:
			c = b.CreatedAt.Compare(a.CreatedAt)
		}
		if c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})

	return out, nil
}

func (s *Storage) ItemsByOwner(ctx context.Context, ownerID string) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Item, 0)
	for _, it := range s.items {
		if it.OwnerID == ownerID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Storage) UpdateItem(ctx context.Context, id string, upd models.ItemUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return storage.ErrNotFound
	}
	it.Name = upd.Name
	it.Description = upd.Description
	it.ImageURL = upd.ImageURL
	it.Price = upd.Price
	s.items[id] = it
	return nil
}

func (s *Storage) SetItemVisibility(ctx context.Context, id string, public bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return storage.ErrNotFound
	}
	it.Public = public
	s.items[id] = it
	return nil
}

func (s *Storage) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, id)
	return nil
}

// DeleteItemCascade removes the item and its offers under one lock.
func (s *Storage) DeleteItemCascade(ctx context.Context, itemID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, itemID)
	return s.purgeLocked(itemID), nil
}

func (s *Storage) ItemSnapshots(ctx context.Context, ids []string) (map[string]models.ItemSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.ItemSnapshot, len(ids))
	for _, id := range ids {
		if it, ok := s.items[id]; ok {
			out[id] = it.Snapshot()
		}
	}
	return out, nil
}

func (s *Storage) SaveOffer(ctx context.Context, offer *models.Offer) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := cloneOffer(*offer)
	o.ID = uuid.NewString()
	s.offers[o.ID] = o
	return o.ID, nil
}

func (s *Storage) OfferByID(ctx context.Context, id string) (*models.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.offers[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	o = cloneOffer(o)
	return &o, nil
}

func (s *Storage) offersWhere(match func(models.Offer) bool) []models.Offer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Offer, 0)
	for _, o := range s.offers {
		if match(o) {
			out = append(out, cloneOffer(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Storage) OffersBySender(ctx context.Context, userID string) ([]models.Offer, error) {
	return s.offersWhere(func(o models.Offer) bool { return o.SenderID == userID }), nil
}

func (s *Storage) OffersByRecipient(ctx context.Context, userID string) ([]models.Offer, error) {
	return s.offersWhere(func(o models.Offer) bool { return o.RecipientID == userID }), nil
}

func (s *Storage) SetOfferStatus(ctx context.Context, id string, from, to models.OfferStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offers[id]
	if !ok || o.Status != from {
		return storage.ErrNotFound
	}
	o.Status = to
	s.offers[id] = o
	return nil
}

func (s *Storage) DeleteOffer(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.offers, id)
	return nil
}

func (s *Storage) PurgeOffersForItem(ctx context.Context, itemID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.purgeLocked(itemID), nil
}

func (s *Storage) purgeLocked(itemID string) int64 {
	var n int64
	for id, o := range s.offers {
		if o.References(itemID) {
			delete(s.offers, id)
			n++
		}
	}
	return n
}
