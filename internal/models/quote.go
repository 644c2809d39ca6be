package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateQuote is one priced shipping option from one carrier, already margined
// when it leaves the quote service.
type RateQuote struct {
	ID                 string          `json:"id"`
	Provider           string          `json:"provider"`
	ServiceLevelName   string          `json:"serviceLevelName"`
	TotalPricing       decimal.Decimal `json:"totalPricing"`
	Currency           string          `json:"currency"`
	Days               int             `json:"days"`
	AvailableForPickup bool            `json:"availableForPickup"`
}

type QuoteRequest struct {
	OriginZip     string
	DestZip       string
	OriginColonia string
	DestColonia   string
	Parcel        Parcel
}

// Quote is the ephemeral record of one rate-shopping request. Shipments
// never consume a stored quote by id; purchases re-quote.
type Quote struct {
	ID        int64
	UserID    int64
	OriginZip string
	DestZip   string
	WeightKg  decimal.Decimal
	Rates     []RateQuote
	CreatedAt time.Time
}
