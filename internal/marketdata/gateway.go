package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/trogers1052/virfolio/internal/currency"
	"github.com/trogers1052/virfolio/internal/models"
)

const (
	DefaultConcurrency  = 4
	DefaultFetchTimeout = 10 * time.Second
)

// Publisher receives positions whose prices were refreshed
type Publisher interface {
	PublishPriceUpdated(ctx context.Context, positions []*models.Position) error
}

// Gateway wraps a Provider with the "never fail outward" contract used by the
// rest of the service
type Gateway struct {
	provider     Provider
	publisher    Publisher
	concurrency  int
	fetchTimeout time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

// Option configures the gateway
type Option func(*Gateway)

// WithConcurrency bounds the number of parallel fetches during a refresh
func WithConcurrency(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// WithFetchTimeout sets the per-symbol fetch timeout
func WithFetchTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.fetchTimeout = d
		}
	}
}

// WithPublisher publishes refreshed positions after every refresh
func WithPublisher(p Publisher) Option {
	return func(g *Gateway) {
		g.publisher = p
	}
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(g *Gateway) {
		g.log = log.With().Str("component", "marketdata").Logger()
	}
}

// WithClock overrides the clock used for LastUpdated
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// NewGateway creates a gateway over provider
func NewGateway(provider Provider, opts ...Option) *Gateway {
	g := &Gateway{
		provider:     provider,
		concurrency:  DefaultConcurrency,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GetCurrentPrice returns the most recent daily close. The boolean is false
// when the provider failed or had no usable data.
func (g *Gateway) GetCurrentPrice(ctx context.Context, ticker, exchange string) (decimal.Decimal, bool) {
	symbol := QualifiedSymbol(ticker, exchange)

	ctx, cancel := context.WithTimeout(ctx, g.fetchTimeout)
	defer cancel()

	bars, err := g.provider.History(ctx, symbol, Period1D)
	if err != nil {
		g.log.Warn().Err(err).Str("symbol", symbol).Msg("Error fetching price")
		return decimal.Zero, false
	}
	if len(bars) == 0 {
		g.log.Debug().Str("symbol", symbol).Msg("No price data")
		return decimal.Zero, false
	}

	price := bars[len(bars)-1].Close
	if !price.IsPositive() {
		return decimal.Zero, false
	}
	return price, true
}

// GetStockInfo returns metadata for a stock with defaults filled in for any
// field the provider omitted. The boolean is false only when the provider
// call failed.
func (g *Gateway) GetStockInfo(ctx context.Context, ticker, exchange string) (*models.StockInfo, bool) {
	symbol := QualifiedSymbol(ticker, exchange)

	ctx, cancel := context.WithTimeout(ctx, g.fetchTimeout)
	defer cancel()

	q, err := g.provider.Info(ctx, symbol)
	if err != nil || q == nil {
		g.log.Warn().Err(err).Str("symbol", symbol).Msg("Error fetching info")
		return nil, false
	}

	info := &models.StockInfo{
		Symbol:       ticker,
		Name:         orDefault(q.LongName, ticker),
		Sector:       orDefault(q.Sector, models.SectorUnknown),
		Industry:     orDefault(q.Industry, models.SectorUnknown),
		Currency:     orDefault(q.Currency, currency.USD),
		CurrentPrice: firstOf(q.CurrentPrice, q.RegularMarketPrice),
		DayHigh:      firstOf(q.DayHigh),
		DayLow:       firstOf(q.DayLow),
		Volume:       int64(firstOf(q.Volume)),
		MarketCap:    int64(firstOf(q.MarketCap)),
		PERatio:      firstOf(q.ForwardPE, q.TrailingPE),
		Week52High:   firstOf(q.FiftyTwoWeekHigh),
		Week52Low:    firstOf(q.FiftyTwoWeekLow),
	}
	return info, true
}

// GetHistoricalData returns daily bars for a stock, or an empty slice when
// the provider failed.
func (g *Gateway) GetHistoricalData(ctx context.Context, ticker, exchange, period string) []models.PriceDataDaily {
	symbol := QualifiedSymbol(ticker, exchange)
	if !ValidPeriod(period) {
		period = PeriodDef
	}

	ctx, cancel := context.WithTimeout(ctx, g.fetchTimeout)
	defer cancel()

	bars, err := g.provider.History(ctx, symbol, period)
	if err != nil {
		g.log.Warn().Err(err).Str("symbol", symbol).Str("period", period).Msg("Error fetching historical data")
		return []models.PriceDataDaily{}
	}
	if bars == nil {
		return []models.PriceDataDaily{}
	}
	return bars
}

// RefreshPrices fetches the current price of every position concurrently.
// Positions with a new price get CurrentPrice and LastUpdated set; the rest
// are left untouched. The updated positions are returned in input order once
// every fetch has settled.
func (g *Gateway) RefreshPrices(ctx context.Context, positions []*models.Position) []*models.Position {
	updated := make([]bool, len(positions))

	var grp errgroup.Group
	grp.SetLimit(g.concurrency)
	for i, p := range positions {
		grp.Go(func() error {
			price, ok := g.GetCurrentPrice(ctx, p.Ticker, p.Exchange)
			if !ok {
				return nil
			}
			p.SetCurrentPrice(price, g.now())
			updated[i] = true
			return nil
		})
	}
	_ = grp.Wait()

	result := make([]*models.Position, 0, len(positions))
	for i, ok := range updated {
		if ok {
			result = append(result, positions[i])
		}
	}

	g.log.Debug().Int("requested", len(positions)).Int("updated", len(result)).Msg("Prices refreshed")

	if g.publisher != nil && len(result) > 0 {
		if err := g.publisher.PublishPriceUpdated(ctx, result); err != nil {
			g.log.Warn().Err(err).Msg("Failed to publish price updates")
		}
	}
	return result
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// firstOf returns the first non-nil value, or 0
func firstOf(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}
