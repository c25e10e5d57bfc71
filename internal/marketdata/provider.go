// Package marketdata fetches prices and stock metadata from an external
// provider and refreshes position prices. Provider failures never leave this
// package: they are logged and reported as "no data".
package marketdata

import (
	"context"
	"strings"
	"time"

	"github.com/trogers1052/virfolio/internal/models"
)

// Supported history periods
const (
	Period1D  = "1d"
	Period5D  = "5d"
	Period1M  = "1mo"
	Period3M  = "3mo"
	Period6M  = "6mo"
	Period1Y  = "1y"
	PeriodDef = Period1M
)

// ValidPeriod reports whether period is a supported history period.
func ValidPeriod(period string) bool {
	switch period {
	case Period1D, Period5D, Period1M, Period3M, Period6M, Period1Y:
		return true
	}
	return false
}

// PeriodStart returns the first day covered by period when counting back
// from now. Unknown periods fall back to PeriodDef.
func PeriodStart(period string, now time.Time) time.Time {
	day := now.UTC().Truncate(24 * time.Hour)
	switch period {
	case Period1D:
		return day.AddDate(0, 0, -1)
	case Period5D:
		return day.AddDate(0, 0, -5)
	case Period3M:
		return day.AddDate(0, -3, 0)
	case Period6M:
		return day.AddDate(0, -6, 0)
	case Period1Y:
		return day.AddDate(-1, 0, 0)
	default:
		return day.AddDate(0, -1, 0)
	}
}

// Provider is the external market data source. Implementations may fail or
// return an empty history for invalid or delisted symbols.
type Provider interface {
	History(ctx context.Context, symbol, period string) ([]models.PriceDataDaily, error)
	Info(ctx context.Context, symbol string) (*Quote, error)
}

// Quote is the raw metadata bag returned by a provider. Nil pointers and empty
// strings mean the provider omitted the field.
type Quote struct {
	LongName           string   `json:"long_name,omitempty"`
	Sector             string   `json:"sector,omitempty"`
	Industry           string   `json:"industry,omitempty"`
	Currency           string   `json:"currency,omitempty"`
	CurrentPrice       *float64 `json:"current_price,omitempty"`
	RegularMarketPrice *float64 `json:"regular_market_price,omitempty"`
	DayHigh            *float64 `json:"day_high,omitempty"`
	DayLow             *float64 `json:"day_low,omitempty"`
	Volume             *float64 `json:"volume,omitempty"`
	MarketCap          *float64 `json:"market_cap,omitempty"`
	ForwardPE          *float64 `json:"forward_pe,omitempty"`
	TrailingPE         *float64 `json:"trailing_pe,omitempty"`
	FiftyTwoWeekHigh   *float64 `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow    *float64 `json:"fifty_two_week_low,omitempty"`
}

// QualifiedSymbol returns the provider symbol for a ticker on an exchange:
// ".NS" for NSE, ".BO" for BSE and no suffix for US markets.
func QualifiedSymbol(ticker, exchange string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	switch exchange {
	case models.ExchangeNSE:
		return ticker + ".NS"
	case models.ExchangeBSE:
		return ticker + ".BO"
	}
	return ticker
}
