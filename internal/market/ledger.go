package market

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/metrics"
	"github.com/IlyasAtabaev731/barter-market/internal/storage"
)

type Ledger struct {
	log    *slog.Logger
	items  ItemStore
	offers OfferStore
	now    func() time.Time
}

func NewLedger(log *slog.Logger, items ItemStore, offers OfferStore) *Ledger {
	return &Ledger{
		log:    log,
		items:  items,
		offers: offers,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// OfferForm is what a user sees when proposing a trade: the item they want
// and the items they could give for it.
type OfferForm struct {
	Requested *models.Item
	Own       []models.Item
}

// requestable loads an item userID may make an offer on. Private items are
// reported as missing to everyone but their owner.
func (l *Ledger) requestable(ctx context.Context, itemID, userID string) (*models.Item, error) {
	item, err := l.items.ItemByID(ctx, itemID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound("item", itemID)
	}
	if err != nil {
		return nil, err
	}
	if !item.Public && item.OwnerID != userID {
		return nil, notFound("item", itemID)
	}
	return item, nil
}

func (l *Ledger) OfferForm(ctx context.Context, requestedID, userID string) (*OfferForm, error) {
	item, err := l.requestable(ctx, requestedID, userID)
	if err != nil {
		return nil, err
	}

	own, err := l.items.ItemsByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &OfferForm{Requested: item, Own: own}, nil
}

// Create records a proposal of offeredIDs in exchange for requestedID. The
// recipient is the requested item's owner at this moment and is never
// updated afterwards. An empty offered set is accepted; every offered item
// must exist and belong to the sender.
func (l *Ledger) Create(ctx context.Context, requestedID string, offeredIDs []string, senderID string) (*models.Offer, error) {
	requested, err := l.requestable(ctx, requestedID, senderID)
	if err != nil {
		return nil, err
	}

	offered := dedupe(offeredIDs)
	if err := l.checkOffered(ctx, offered, senderID); err != nil {
		return nil, err
	}

	offer := &models.Offer{
		RequestedItemID: requested.ID,
		OfferedItemIDs:  offered,
		SenderID:        senderID,
		RecipientID:     requested.OwnerID,
		Status:          models.OfferSent,
		CreatedAt:       l.now(),
	}

	id, err := l.offers.SaveOffer(ctx, offer)
	if err != nil {
		return nil, err
	}
	offer.ID = id

	metrics.RecordOfferTransition(string(models.OfferSent))
	l.log.Info("Offer sent",
		slog.String("offer", id),
		slog.String("item", requested.ID),
		slog.Int("offered", len(offer.OfferedItemIDs)),
	)

	return offer, nil
}

func (l *Ledger) checkOffered(ctx context.Context, ids []string, senderID string) error {
	if len(ids) == 0 {
		return nil
	}

	snaps, err := l.items.ItemSnapshots(ctx, ids)
	if err != nil {
		return err
	}

	for _, id := range ids {
		snap, ok := snaps[id]
		if !ok {
			return notFound("item", id)
		}
		if snap.OwnerID != senderID {
			return invalid("offered", "you can only offer items you own")
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (l *Ledger) ListSent(ctx context.Context, userID string) ([]models.HydratedOffer, error) {
	offers, err := l.offers.OffersBySender(ctx, userID)
	if err != nil {
		return nil, err
	}
	return l.hydrate(ctx, offers)
}

func (l *Ledger) ListReceived(ctx context.Context, userID string) ([]models.HydratedOffer, error) {
	offers, err := l.offers.OffersByRecipient(ctx, userID)
	if err != nil {
		return nil, err
	}
	return l.hydrate(ctx, offers)
}

// hydrate attaches item snapshots to offers with one bulk lookup. Items that
// no longer exist leave a nil slot and a warning; they never fail the call.
func (l *Ledger) hydrate(ctx context.Context, offers []models.Offer) ([]models.HydratedOffer, error) {
	if len(offers) == 0 {
		return []models.HydratedOffer{}, nil
	}

	var ids []string
	for _, o := range offers {
		ids = append(ids, o.RequestedItemID)
		ids = append(ids, o.OfferedItemIDs...)
	}

	snaps, err := l.items.ItemSnapshots(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}

	resolve := func(offerID, itemID string) *models.ItemSnapshot {
		s, ok := snaps[itemID]
		if !ok {
			metrics.RecordDanglingReference()
			l.log.Warn("Offer references missing item",
				slog.String("offer", offerID),
				slog.String("item", itemID),
			)
			return nil
		}
		return &s
	}

	out := make([]models.HydratedOffer, 0, len(offers))
	for _, o := range offers {
		h := models.HydratedOffer{
			Offer:     o,
			Requested: resolve(o.ID, o.RequestedItemID),
			Offered:   make([]*models.ItemSnapshot, 0, len(o.OfferedItemIDs)),
		}
		for _, id := range o.OfferedItemIDs {
			h.Offered = append(h.Offered, resolve(o.ID, id))
		}
		out = append(out, h)
	}

	return out, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (*models.Offer, error) {
	offer, err := l.offers.OfferByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound("offer", id)
	}
	return offer, err
}

func (l *Ledger) Accept(ctx context.Context, actorID, offerID string) (*models.Offer, error) {
	return l.transition(ctx, actorID, offerID, models.OfferAccepted)
}

func (l *Ledger) Reject(ctx context.Context, actorID, offerID string) (*models.Offer, error) {
	return l.transition(ctx, actorID, offerID, models.OfferRejected)
}

// transition moves a sent offer to a terminal status. Only the recipient may
// do so. Terminal offers are returned unchanged.
func (l *Ledger) transition(ctx context.Context, actorID, offerID string, to models.OfferStatus) (*models.Offer, error) {
	offer, err := l.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.RecipientID != actorID {
		return nil, ErrForbidden
	}
	if offer.Status.Terminal() {
		return offer, nil
	}

	err = l.offers.SetOfferStatus(ctx, offerID, models.OfferSent, to)
	if errors.Is(err, storage.ErrNotFound) {
		// Lost a race with another transition or a delete; report what is stored now.
		return l.Get(ctx, offerID)
	}
	if err != nil {
		return nil, err
	}

	offer.Status = to
	metrics.RecordOfferTransition(string(to))
	l.log.Info("Offer status changed", slog.String("offer", offerID), slog.String("status", string(to)))

	return offer, nil
}

// Delete removes an offer in any status. The sender or the recipient may
// delete it; a missing offer is a no-op.
func (l *Ledger) Delete(ctx context.Context, actorID, offerID string) error {
	offer, err := l.Get(ctx, offerID)
	if IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if offer.SenderID != actorID && offer.RecipientID != actorID {
		return ErrForbidden
	}

	if err := l.offers.DeleteOffer(ctx, offerID); err != nil {
		return err
	}

	l.log.Info("Offer deleted", slog.String("offer", offerID))
	return nil
}

// PurgeForItem removes every offer that names itemID on either side.
func (l *Ledger) PurgeForItem(ctx context.Context, itemID string) (int64, error) {
	n, err := l.offers.PurgeOffersForItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	metrics.RecordOffersPurged(n)
	return n, nil
}
