// Package analytics aggregates valuation figures across all of a user's
// portfolios in one display currency.
package analytics

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/trogers1052/virfolio/internal/models"
)

// TopN is the length of the gainer and loser rankings
const TopN = 5

var hundred = decimal.NewFromInt(100)

// Refresher refreshes position prices in place and returns the updated ones
type Refresher interface {
	RefreshPrices(ctx context.Context, positions []*models.Position) []*models.Position
}

// StockPerformance is one position's contribution to the rankings
type StockPerformance struct {
	Ticker string          `json:"ticker"`
	Return decimal.Decimal `json:"return"`
	Value  decimal.Decimal `json:"value"`
}

// Report holds account-level analytics in a single display currency
type Report struct {
	Currency          string                     `json:"currency"`
	TotalValue        decimal.Decimal            `json:"total_value"`
	TotalInvested     decimal.Decimal            `json:"total_invested"`
	TotalGainLoss     decimal.Decimal            `json:"total_gain_loss"`
	TotalReturn       decimal.Decimal            `json:"total_return"`
	SectorAllocation  map[string]decimal.Decimal `json:"sector_allocation"`
	CountryAllocation map[string]decimal.Decimal `json:"country_allocation"`
	TopGainers        []StockPerformance         `json:"top_gainers"`
	TopLosers         []StockPerformance         `json:"top_losers"`

	// Refreshed lists the positions whose price changed during Compute
	Refreshed []*models.Position `json:"-"`
}

// Engine computes account analytics
type Engine struct {
	refresher Refresher
	log       zerolog.Logger
}

// NewEngine creates an analytics engine
func NewEngine(refresher Refresher, log zerolog.Logger) *Engine {
	return &Engine{
		refresher: refresher,
		log:       log.With().Str("component", "analytics").Logger(),
	}
}

// Compute refreshes every position of every portfolio, waits for all fetches
// to settle, then aggregates.
func (e *Engine) Compute(ctx context.Context, portfolios []*models.Portfolio, displayCurrency string) *Report {
	var positions []*models.Position
	for _, p := range portfolios {
		positions = append(positions, p.Positions...)
	}

	var refreshed []*models.Position
	if e.refresher != nil && len(positions) > 0 {
		refreshed = e.refresher.RefreshPrices(ctx, positions)
	}

	report := Summarize(portfolios, displayCurrency)
	report.Refreshed = refreshed

	e.log.Debug().
		Int("portfolios", len(portfolios)).
		Int("positions", len(positions)).
		Int("refreshed", len(refreshed)).
		Str("currency", displayCurrency).
		Msg("Computed analytics")
	return report
}

// Summarize aggregates the portfolios as they are, without refreshing prices.
func Summarize(portfolios []*models.Portfolio, displayCurrency string) *Report {
	report := &Report{
		Currency:         displayCurrency,
		TotalValue:       decimal.Zero,
		TotalInvested:    decimal.Zero,
		SectorAllocation: make(map[string]decimal.Decimal),
		CountryAllocation: map[string]decimal.Decimal{
			models.CountryUS:    decimal.Zero,
			models.CountryIndia: decimal.Zero,
		},
	}

	var performance []StockPerformance
	for _, portfolio := range portfolios {
		for _, pos := range portfolio.Positions {
			marketValue := pos.MarketValue(displayCurrency)
			costBasis := pos.CostBasis(displayCurrency)
			report.TotalValue = report.TotalValue.Add(marketValue)
			report.TotalInvested = report.TotalInvested.Add(costBasis)

			sector := pos.SectorOrUnknown()
			report.SectorAllocation[sector] = report.SectorAllocation[sector].Add(marketValue)

			country := pos.Country()
			report.CountryAllocation[country] = report.CountryAllocation[country].Add(marketValue)

			performance = append(performance, StockPerformance{
				Ticker: pos.Ticker,
				Return: pos.GainLossPercent(),
				Value:  marketValue,
			})
		}
	}

	report.TotalGainLoss = report.TotalValue.Sub(report.TotalInvested)
	report.TotalReturn = decimal.Zero
	if report.TotalInvested.IsPositive() {
		report.TotalReturn = report.TotalGainLoss.Div(report.TotalInvested).Mul(hundred)
	}

	report.TopGainers = rank(performance, func(a, b StockPerformance) bool { return a.Return.GreaterThan(b.Return) })
	report.TopLosers = rank(performance, func(a, b StockPerformance) bool { return a.Return.LessThan(b.Return) })
	return report
}

// rank returns the first TopN records ordered by less, keeping input order
// among equal returns. The same record may appear in both rankings.
func rank(records []StockPerformance, less func(a, b StockPerformance) bool) []StockPerformance {
	sorted := make([]StockPerformance, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if len(sorted) > TopN {
		sorted = sorted[:TopN]
	}
	return sorted
}
