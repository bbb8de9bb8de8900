package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawPrice is the scaled-integer form returned by the price provider:
// value = Mantissa * 10^Exponent.
type RawPrice struct {
	Mantissa    string
	Exponent    int32
	PublishTime int64 // unix seconds, 0 if unknown
}

// PriceUpdate is one decoded observation. Price is an exact decimal string.
type PriceUpdate struct {
	Symbol        string `json:"symbol"`
	QuoteCurrency string `json:"quoteCurrency"`
	Price         string `json:"price"`
	FeedID        string `json:"feedId"`
	Ts            int64  `json:"timestamp"` // unix ms
}

func NewPriceUpdate(symbol, quote, price, feedID string, observedAt time.Time) PriceUpdate {
	return PriceUpdate{
		Symbol:        symbol,
		QuoteCurrency: quote,
		Price:         price,
		FeedID:        feedID,
		Ts:            observedAt.UnixMilli(),
	}
}

func (p PriceUpdate) ObservedAt() time.Time {
	return time.UnixMilli(p.Ts)
}

// Value parses Price without going through float64.
func (p PriceUpdate) Value() (decimal.Decimal, error) {
	return decimal.NewFromString(p.Price)
}
