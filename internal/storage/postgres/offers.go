package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/storage"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	offerColumns = "id, requested_item_id, offered_item_ids, sender_id, recipient_id, status, created_at"

	purgeOffersQuery = "DELETE FROM offers WHERE requested_item_id = $1 OR $1 = ANY(offered_item_ids)"
)

func scanOffer(row scanner) (*models.Offer, error) {
	var (
		o      models.Offer
		status string
	)
	if err := row.Scan(&o.ID, &o.RequestedItemID, pq.Array(&o.OfferedItemIDs), &o.SenderID,
		&o.RecipientID, &status, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.Status = models.OfferStatus(status)
	if o.OfferedItemIDs == nil {
		o.OfferedItemIDs = []string{}
	}
	return &o, nil
}

// SaveOffer stores the offer. Offered ids that are not UUIDs cannot name an
// item in this backend and are dropped.
func (s *Storage) SaveOffer(ctx context.Context, offer *models.Offer) (string, error) {
	const op = "storage.postgres.SaveOffer"

	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO offers ("+offerColumns+") VALUES($1, $2, $3, $4, $5, $6, $7)")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	id := uuid.NewString()
	_, err = stmt.ExecContext(ctx, id, offer.RequestedItemID, pq.Array(validIDs(offer.OfferedItemIDs)),
		offer.SenderID, offer.RecipientID, string(offer.Status), offer.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) OfferByID(ctx context.Context, id string) (*models.Offer, error) {
	const op = "storage.postgres.OfferByID"

	if !validID(id) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	stmt, err := s.db.PrepareContext(ctx, "SELECT "+offerColumns+" FROM offers WHERE id = $1")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	offer, err := scanOffer(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return offer, nil
}

func (s *Storage) queryOffers(ctx context.Context, op, column, userID string) ([]models.Offer, error) {
	offers := make([]models.Offer, 0)
	if !validID(userID) {
		return offers, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+offerColumns+" FROM offers WHERE "+column+" = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		offers = append(offers, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return offers, nil
}

func (s *Storage) OffersBySender(ctx context.Context, userID string) ([]models.Offer, error) {
	return s.queryOffers(ctx, "storage.postgres.OffersBySender", "sender_id", userID)
}

func (s *Storage) OffersByRecipient(ctx context.Context, userID string) ([]models.Offer, error) {
	return s.queryOffers(ctx, "storage.postgres.OffersByRecipient", "recipient_id", userID)
}

func (s *Storage) SetOfferStatus(ctx context.Context, id string, from, to models.OfferStatus) error {
	const op = "storage.postgres.SetOfferStatus"

	if !validID(id) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := s.db.ExecContext(ctx, "UPDATE offers SET status = $1 WHERE id = $2 AND status = $3",
		string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectOne(op, res)
}

func (s *Storage) DeleteOffer(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteOffer"

	if !validID(id) {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM offers WHERE id = $1", id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) PurgeOffersForItem(ctx context.Context, itemID string) (int64, error) {
	const op = "storage.postgres.PurgeOffersForItem"

	if !validID(itemID) {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, purgeOffersQuery, itemID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}
