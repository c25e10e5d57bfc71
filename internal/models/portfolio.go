package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/virfolio/internal/currency"
)

// Portfolio is a named collection of positions owned by one user.
type Portfolio struct {
	ID           int         `json:"id"`
	UserID       int         `json:"user_id"`
	Name         string      `json:"name"`
	BaseCurrency string      `json:"base_currency"`
	Description  string      `json:"description,omitempty"`
	Positions    []*Position `json:"positions"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TotalValue sums the market value of every position in the given currency.
// Each position is converted once from its native currency; the sum is not
// converted again.
func (p *Portfolio) TotalValue(displayCurrency string) decimal.Decimal {
	total := decimal.Zero
	for _, pos := range p.Positions {
		total = total.Add(pos.MarketValue(displayCurrency))
	}
	return total
}

// TotalCost sums the cost basis of every position in the given currency.
func (p *Portfolio) TotalCost(displayCurrency string) decimal.Decimal {
	total := decimal.Zero
	for _, pos := range p.Positions {
		total = total.Add(pos.CostBasis(displayCurrency))
	}
	return total
}

// TotalReturn returns the percentage return measured in the base currency.
// A portfolio with no cost reports 0.
func (p *Portfolio) TotalReturn() decimal.Decimal {
	base := p.baseCurrency()
	cost := p.TotalCost(base)
	if !cost.IsPositive() {
		return decimal.Zero
	}
	value := p.TotalValue(base)
	return value.Sub(cost).Div(cost).Mul(hundred)
}

// GainLoss returns total value minus total cost in the given currency.
func (p *Portfolio) GainLoss(displayCurrency string) decimal.Decimal {
	return p.TotalValue(displayCurrency).Sub(p.TotalCost(displayCurrency))
}

// Holdings returns the number of positions.
func (p *Portfolio) Holdings() int {
	return len(p.Positions)
}

func (p *Portfolio) baseCurrency() string {
	if p.BaseCurrency == "" {
		return currency.USD
	}
	return p.BaseCurrency
}
