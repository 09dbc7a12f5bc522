package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	ImageURL      string          `json:"image_url"`
	Price         decimal.Decimal `json:"price"`
	OwnerID       string          `json:"user"`
	OwnerUsername string          `json:"username"`
	CreatedAt     time.Time       `json:"created_at"`
	Public        bool            `json:"public"`
}

// ItemUpdate holds the fields an owner may replace on an existing item.
type ItemUpdate struct {
	Name        string
	Description string
	ImageURL    string
	Price       decimal.Decimal
}

// ItemSnapshot is the read-time view of an item attached to an offer.
type ItemSnapshot struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	OwnerUsername string `json:"username"`
	OwnerID       string `json:"user"`
	ImageURL      string `json:"image_url"`
}

func (i *Item) Snapshot() ItemSnapshot {
	return ItemSnapshot{
		ID:            i.ID,
		Name:          i.Name,
		OwnerUsername: i.OwnerUsername,
		OwnerID:       i.OwnerID,
		ImageURL:      i.ImageURL,
	}
}

type SortOrder string

const (
	SortNewest  SortOrder = "newest"
	SortOldest  SortOrder = "oldest"
	SortLowest  SortOrder = "lowest"
	SortHighest SortOrder = "highest"
)

// ParseSortOrder maps a query value to a SortOrder, falling back to newest.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case SortOldest, SortLowest, SortHighest:
		return SortOrder(s)
	default:
		return SortNewest
	}
}
