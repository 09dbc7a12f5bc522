package models

import "time"

type OfferStatus string

const (
	OfferSent     OfferStatus = "sent"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

func (s OfferStatus) Terminal() bool {
	return s == OfferAccepted || s == OfferRejected
}

type Offer struct {
	ID              string      `json:"id"`
	RequestedItemID string      `json:"offerforid"`
	OfferedItemIDs  []string    `json:"offereditems"`
	SenderID        string      `json:"sentby"`
	RecipientID     string      `json:"sendtouser"`
	Status          OfferStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
}

// References reports whether the offer names itemID as requested or offered.
func (o *Offer) References(itemID string) bool {
	if o.RequestedItemID == itemID {
		return true
	}
	for _, id := range o.OfferedItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// HydratedOffer is an offer with its item references resolved. A nil slot
// means the referenced item no longer exists.
type HydratedOffer struct {
	Offer
	Requested *ItemSnapshot   `json:"requested"`
	Offered   []*ItemSnapshot `json:"offered"`
}
