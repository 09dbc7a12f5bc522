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

const itemColumns = "id, owner_id, owner_username, name, description, image_url, price, public, created_at"

var itemOrder = map[models.SortOrder]string{
	models.SortNewest:  "created_at DESC, id",
	models.SortOldest:  "created_at ASC, id",
	models.SortLowest:  "price ASC, id",
	models.SortHighest: "price DESC, id",
}

func scanItem(row scanner) (*models.Item, error) {
	var it models.Item
	if err := row.Scan(&it.ID, &it.OwnerID, &it.OwnerUsername, &it.Name, &it.Description,
		&it.ImageURL, &it.Price, &it.Public, &it.CreatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Storage) queryItems(ctx context.Context, op, query string, args ...any) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := make([]models.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (s *Storage) SaveItem(ctx context.Context, item *models.Item) (string, error) {
	const op = "storage.postgres.SaveItem"

	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO items ("+itemColumns+") VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	id := uuid.NewString()
	_, err = stmt.ExecContext(ctx, id, item.OwnerID, item.OwnerUsername, item.Name, item.Description,
		item.ImageURL, item.Price, item.Public, item.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) ItemByID(ctx context.Context, id string) (*models.Item, error) {
	const op = "storage.postgres.ItemByID"

	if !validID(id) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	stmt, err := s.db.PrepareContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = $1")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	item, err := scanItem(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

func (s *Storage) PublicItems(ctx context.Context, sort models.SortOrder) ([]models.Item, error) {
	order, ok := itemOrder[sort]
	if !ok {
		order = itemOrder[models.SortNewest]
	}

	return s.queryItems(ctx, "storage.postgres.PublicItems",
		"SELECT "+itemColumns+" FROM items WHERE public = TRUE ORDER BY "+order)
}

func (s *Storage) ItemsByOwner(ctx context.Context, ownerID string) ([]models.Item, error) {
	if !validID(ownerID) {
		return []models.Item{}, nil
	}

	return s.queryItems(ctx, "storage.postgres.ItemsByOwner",
		"SELECT "+itemColumns+" FROM items WHERE owner_id = $1 ORDER BY created_at", ownerID)
}

func (s *Storage) UpdateItem(ctx context.Context, id string, upd models.ItemUpdate) error {
	const op = "storage.postgres.UpdateItem"

	if !validID(id) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET name = $1, description = $2, image_url = $3, price = $4 WHERE id = $5",
		upd.Name, upd.Description, upd.ImageURL, upd.Price, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectOne(op, res)
}

func (s *Storage) SetItemVisibility(ctx context.Context, id string, public bool) error {
	const op = "storage.postgres.SetItemVisibility"

	if !validID(id) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := s.db.ExecContext(ctx, "UPDATE items SET public = $1 WHERE id = $2", public, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectOne(op, res)
}

func (s *Storage) DeleteItem(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteItem"

	if !validID(id) {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = $1", id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteItemCascade deletes the item and every offer naming it in one
// transaction.
func (s *Storage) DeleteItemCascade(ctx context.Context, itemID string) (int64, error) {
	const op = "storage.postgres.DeleteItemCascade"

	if !validID(itemID) {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE id = $1", itemID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, purgeOffersQuery, itemID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return purged, nil
}

func (s *Storage) ItemSnapshots(ctx context.Context, ids []string) (map[string]models.ItemSnapshot, error) {
	const op = "storage.postgres.ItemSnapshots"

	ids = validIDs(ids)
	snaps := make(map[string]models.ItemSnapshot, len(ids))
	if len(ids) == 0 {
		return snaps, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, owner_username, owner_id, image_url FROM items WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var snap models.ItemSnapshot
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.OwnerUsername, &snap.OwnerID, &snap.ImageURL); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		snaps[snap.ID] = snap
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return snaps, nil
}
