package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/virfolio/internal/currency"
)

// Exchange constants
const (
	ExchangeUS  = "US"
	ExchangeNSE = "NS"
	ExchangeBSE = "BO"
)

// Country allocation buckets
const (
	CountryUS    = "US"
	CountryIndia = "India"
)

// SectorUnknown is used when the provider has no sector for a stock
const SectorUnknown = "Unknown"

var hundred = decimal.NewFromInt(100)

// Position represents a stock holding inside a portfolio. Prices are in the
// native currency of the position's exchange.
type Position struct {
	ID           int                 `json:"id"`
	PortfolioID  int                 `json:"portfolio_id"`
	Ticker       string              `json:"ticker"`
	Exchange     string              `json:"exchange"`
	Quantity     decimal.Decimal     `json:"quantity"`
	BuyPrice     decimal.Decimal     `json:"buy_price"`
	BuyDate      time.Time           `json:"buy_date"`
	CurrentPrice decimal.NullDecimal `json:"current_price"`
	LastUpdated  *time.Time          `json:"last_updated,omitempty"`
	Sector       string              `json:"sector,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ValidExchange reports whether exchange is one of the supported markets.
func ValidExchange(exchange string) bool {
	switch exchange {
	case ExchangeUS, ExchangeNSE, ExchangeBSE:
		return true
	}
	return false
}

// IsIndian reports whether the position trades on NSE or BSE.
func (p *Position) IsIndian() bool {
	return p.Exchange == ExchangeNSE || p.Exchange == ExchangeBSE
}

// Currency returns the native currency of the position's exchange.
func (p *Position) Currency() string {
	if p.IsIndian() {
		return currency.INR
	}
	return currency.USD
}

// Country returns the country allocation bucket for the position.
func (p *Position) Country() string {
	if p.IsIndian() {
		return CountryIndia
	}
	return CountryUS
}

// SectorOrUnknown returns the sector, or SectorUnknown when it is not set.
func (p *Position) SectorOrUnknown() string {
	if p.Sector == "" {
		return SectorUnknown
	}
	return p.Sector
}

// HasLivePrice reports whether a live price has been fetched. A zero price
// counts as no price.
func (p *Position) HasLivePrice() bool {
	return p.CurrentPrice.Valid && !p.CurrentPrice.Decimal.IsZero()
}

// SetCurrentPrice records a freshly fetched price.
func (p *Position) SetCurrentPrice(price decimal.Decimal, at time.Time) {
	p.CurrentPrice = decimal.NewNullDecimal(price)
	p.LastUpdated = &at
}

// LatestPrice returns the live price, falling back to the buy price.
func (p *Position) LatestPrice() decimal.Decimal {
	if p.HasLivePrice() {
		return p.CurrentPrice.Decimal
	}
	return p.BuyPrice
}

// MarketValue returns quantity times the latest price, in the given currency.
func (p *Position) MarketValue(displayCurrency string) decimal.Decimal {
	value := p.Quantity.Mul(p.LatestPrice())
	return currency.Convert(value, p.Currency(), displayCurrency)
}

// CostBasis returns quantity times the buy price, in the given currency.
func (p *Position) CostBasis(displayCurrency string) decimal.Decimal {
	value := p.Quantity.Mul(p.BuyPrice)
	return currency.Convert(value, p.Currency(), displayCurrency)
}

// GainLoss returns the unrealized gain or loss in the given currency. Without
// a live price there is no gain signal and the result is zero.
func (p *Position) GainLoss(displayCurrency string) decimal.Decimal {
	if !p.HasLivePrice() {
		return decimal.Zero
	}
	gain := p.CurrentPrice.Decimal.Sub(p.BuyPrice).Mul(p.Quantity)
	return currency.Convert(gain, p.Currency(), displayCurrency)
}

// GainLossPercent returns the percentage return against the buy price.
func (p *Position) GainLossPercent() decimal.Decimal {
	if !p.HasLivePrice() || !p.BuyPrice.IsPositive() {
		return decimal.Zero
	}
	return p.CurrentPrice.Decimal.Sub(p.BuyPrice).Div(p.BuyPrice).Mul(hundred)
}
