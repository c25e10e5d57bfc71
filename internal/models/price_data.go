package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceDataDaily represents one daily OHLCV bar for a provider symbol
type PriceDataDaily struct {
	ID        int             `json:"id,omitempty"`
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}
