package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/lib/sanitize"
	"github.com/IlyasAtabaev731/barter-market/internal/metrics"
	"github.com/IlyasAtabaev731/barter-market/internal/storage"
	"github.com/shopspring/decimal"
)

const maxPriceDigits = 2

// maxPrice fits the storage column, NUMERIC(12, 2).
var maxPrice = decimal.RequireFromString("9999999999.99")

// ItemInput is the listing form as submitted. Price stays a string until it
// is parsed into a decimal here.
type ItemInput struct {
	Name        string
	Description string
	Price       string
	ImageURL    string
}

type Catalog struct {
	log    *slog.Logger
	users  UserStore
	items  ItemStore
	ledger *Ledger
	now    func() time.Time
}

func NewCatalog(log *slog.Logger, users UserStore, items ItemStore, ledger *Ledger) *Catalog {
	return &Catalog{
		log:    log,
		users:  users,
		items:  items,
		ledger: ledger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ParsePrice parses a price string into an exact decimal.
func ParsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, invalid("price", "price is required")
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, invalid("price", fmt.Sprintf("%q is not a valid amount", raw))
	}
	if price.IsNegative() {
		return decimal.Decimal{}, invalid("price", "price cannot be negative")
	}
	if -price.Exponent() > maxPriceDigits && !price.Equal(price.Round(maxPriceDigits)) {
		return decimal.Decimal{}, invalid("price", "price can have at most two decimal places")
	}
	price = price.Round(maxPriceDigits)
	if price.GreaterThan(maxPrice) {
		return decimal.Decimal{}, invalid("price", "price cannot exceed "+maxPrice.StringFixed(maxPriceDigits))
	}

	return price, nil
}

func validateItem(in ItemInput) (models.ItemUpdate, error) {
	name := sanitize.Text(in.Name)
	if name == "" {
		return models.ItemUpdate{}, invalid("name", "name is required")
	}

	price, err := ParsePrice(in.Price)
	if err != nil {
		return models.ItemUpdate{}, err
	}

	url := strings.TrimSpace(in.ImageURL)
	if url != "" && !sanitize.URL(url) {
		return models.ItemUpdate{}, invalid("url", "image URL must start with http:// or https://")
	}

	return models.ItemUpdate{
		Name:        name,
		Description: sanitize.Text(in.Description),
		ImageURL:    url,
		Price:       price,
	}, nil
}

func (c *Catalog) ListPublic(ctx context.Context, sort models.SortOrder) ([]models.Item, error) {
	return c.items.PublicItems(ctx, sort)
}

func (c *Catalog) ListByOwner(ctx context.Context, ownerID string) ([]models.Item, error) {
	return c.items.ItemsByOwner(ctx, ownerID)
}

func (c *Catalog) ListPublicByOwner(ctx context.Context, ownerID string) ([]models.Item, error) {
	all, err := c.items.ItemsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	public := make([]models.Item, 0, len(all))
	for _, it := range all {
		if it.Public {
			public = append(public, it)
		}
	}
	return public, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (*models.Item, error) {
	item, err := c.items.ItemByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound("item", id)
	}
	return item, err
}

// View returns an item as seen by viewerID. Private items are only visible
// to their owner.
func (c *Catalog) View(ctx context.Context, viewerID, id string) (*models.Item, error) {
	item, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.Public && item.OwnerID != viewerID {
		return nil, notFound("item", id)
	}
	return item, nil
}

// ForEdit loads an item for its owner's edit form.
func (c *Catalog) ForEdit(ctx context.Context, actorID, id string) (*models.Item, error) {
	return c.owned(ctx, actorID, id)
}

func (c *Catalog) Create(ctx context.Context, ownerID string, in ItemInput) (*models.Item, error) {
	fields, err := validateItem(in)
	if err != nil {
		return nil, err
	}

	owner, err := c.users.UserByID(ctx, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound("user", ownerID)
	}
	if err != nil {
		return nil, err
	}

	item := &models.Item{
		Name:          fields.Name,
		Description:   fields.Description,
		ImageURL:      fields.ImageURL,
		Price:         fields.Price,
		OwnerID:       owner.ID,
		OwnerUsername: owner.Username,
		CreatedAt:     c.now(),
		Public:        true,
	}

	id, err := c.items.SaveItem(ctx, item)
	if err != nil {
		return nil, err
	}
	item.ID = id

	c.log.Info("Item listed", slog.String("item", id), slog.String("owner", owner.Username))

	return item, nil
}

// owned loads an item and checks that actorID owns it.
func (c *Catalog) owned(ctx context.Context, actorID, itemID string) (*models.Item, error) {
	item, err := c.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != actorID {
		return nil, ErrForbidden
	}
	return item, nil
}

func (c *Catalog) Edit(ctx context.Context, actorID, itemID string, in ItemInput) error {
	fields, err := validateItem(in)
	if err != nil {
		return err
	}
	if _, err := c.owned(ctx, actorID, itemID); err != nil {
		return err
	}

	err = c.items.UpdateItem(ctx, itemID, fields)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound("item", itemID)
	}
	return err
}

func (c *Catalog) SetVisibility(ctx context.Context, actorID, itemID string, public bool) error {
	if _, err := c.owned(ctx, actorID, itemID); err != nil {
		return err
	}

	err := c.items.SetItemVisibility(ctx, itemID, public)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound("item", itemID)
	}
	return err
}

// Delete removes an item and every offer that references it. A missing item
// is not an error; the offer purge still runs so that a retry finishes a
// cleanup interrupted earlier.
func (c *Catalog) Delete(ctx context.Context, actorID, itemID string) error {
	if _, err := c.owned(ctx, actorID, itemID); err != nil && !IsNotFound(err) {
		return err
	}

	var (
		purged int64
		err    error
	)
	if cd, ok := c.items.(CascadeDeleter); ok {
		purged, err = cd.DeleteItemCascade(ctx, itemID)
		if err != nil {
			return err
		}
		metrics.RecordOffersPurged(purged)
	} else {
		if err := c.items.DeleteItem(ctx, itemID); err != nil {
			return err
		}
		purged, err = c.ledger.PurgeForItem(ctx, itemID)
		if err != nil {
			return err
		}
	}

	c.log.Info("Item deleted", slog.String("item", itemID), slog.Int64("offers_purged", purged))

	return nil
}
