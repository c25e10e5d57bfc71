package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trogers1052/virfolio/internal/models"
)

// PerformanceDays is the length of the synthetic performance series
const PerformanceDays = 30

// ChartData is the sector and country breakdown of a set of positions
type ChartData struct {
	Sectors    map[string]decimal.Decimal `json:"sectors"`
	Countries  map[string]decimal.Decimal `json:"countries"`
	TotalValue decimal.Decimal            `json:"total_value"`
}

// PortfolioAllocation is one slice of the per-portfolio allocation chart
type PortfolioAllocation struct {
	PortfolioID int             `json:"portfolio_id"`
	Name        string          `json:"name"`
	Value       decimal.Decimal `json:"value"`
}

// PerformancePoint is one day of the synthetic performance series
type PerformancePoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// Dashboard summarizes all portfolios without refreshing prices
type Dashboard struct {
	Currency      string                `json:"currency"`
	TotalValue    decimal.Decimal       `json:"total_value"`
	TotalInvested decimal.Decimal       `json:"total_invested"`
	TotalGainLoss decimal.Decimal       `json:"total_gain_loss"`
	TotalReturn   decimal.Decimal       `json:"total_return"`
	TotalHoldings int                   `json:"total_holdings"`
	Allocation    []PortfolioAllocation `json:"allocation"`
	Performance   []PerformancePoint    `json:"performance"`
}

// BuildChartData breaks positions down by sector and country.
func BuildChartData(positions []*models.Position, displayCurrency string) ChartData {
	data := ChartData{
		Sectors: make(map[string]decimal.Decimal),
		Countries: map[string]decimal.Decimal{
			models.CountryUS:    decimal.Zero,
			models.CountryIndia: decimal.Zero,
		},
		TotalValue: decimal.Zero,
	}

	for _, pos := range positions {
		value := pos.MarketValue(displayCurrency)
		data.TotalValue = data.TotalValue.Add(value)

		sector := pos.SectorOrUnknown()
		data.Sectors[sector] = data.Sectors[sector].Add(value)

		country := pos.Country()
		data.Countries[country] = data.Countries[country].Add(value)
	}
	return data
}

// BuildDashboard computes dashboard totals, the per-portfolio allocation and
// a synthetic linear performance series ending the day before now.
// TODO: replace the synthetic series once daily portfolio snapshots are persisted.
func BuildDashboard(portfolios []*models.Portfolio, displayCurrency string, now time.Time) *Dashboard {
	d := &Dashboard{
		Currency:      displayCurrency,
		TotalValue:    decimal.Zero,
		TotalInvested: decimal.Zero,
		TotalReturn:   decimal.Zero,
		Allocation:    []PortfolioAllocation{},
	}

	for _, p := range portfolios {
		value := p.TotalValue(displayCurrency)
		d.TotalValue = d.TotalValue.Add(value)
		d.TotalInvested = d.TotalInvested.Add(p.TotalCost(displayCurrency))
		d.TotalHoldings += p.Holdings()

		if p.Holdings() > 0 {
			d.Allocation = append(d.Allocation, PortfolioAllocation{
				PortfolioID: p.ID,
				Name:        p.Name,
				Value:       value,
			})
		}
	}

	d.TotalGainLoss = d.TotalValue.Sub(d.TotalInvested)
	if d.TotalInvested.IsPositive() {
		d.TotalReturn = d.TotalGainLoss.Div(d.TotalInvested).Mul(hundred)
	}

	days := decimal.NewFromInt(PerformanceDays)
	d.Performance = make([]PerformancePoint, PerformanceDays)
	for i := 0; i < PerformanceDays; i++ {
		step := d.TotalGainLoss.Mul(decimal.NewFromInt(int64(i))).Div(days)
		d.Performance[i] = PerformancePoint{
			Date:  now.AddDate(0, 0, i-PerformanceDays).Format("2006-01-02"),
			Value: d.TotalInvested.Add(step),
		}
	}
	return d
}
