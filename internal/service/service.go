// Package service implements the portfolio use cases on top of the store and
// the market data gateway. Every operation that touches a portfolio or a
// position checks that it belongs to the calling user.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/trogers1052/virfolio/internal/analytics"
	"github.com/trogers1052/virfolio/internal/models"
)

var (
	// ErrAccessDenied is returned when a user touches another user's data
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidInput wraps every validation failure
	ErrInvalidInput = errors.New("invalid input")
)

// Store is the persistence the service needs
type Store interface {
	CreateUser(u *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	DeleteUser(id int) error

	CreatePortfolio(p *models.Portfolio) error
	GetPortfolioByID(id int) (*models.Portfolio, error)
	GetPortfoliosByUser(userID int) ([]*models.Portfolio, error)
	UpdatePortfolio(p *models.Portfolio) error
	DeletePortfolio(id int) error

	CreatePosition(p *models.Position) error
	GetPositionByID(id int) (*models.Position, error)
	UpdatePosition(p *models.Position) error
	UpdatePositionPrices(positions []*models.Position) error
	DeletePosition(id int) error

	SavePriceHistory(prices []models.PriceDataDaily) error
	GetPriceHistory(symbol string, since time.Time) ([]models.PriceDataDaily, error)
}

// MarketData is the subset of the market data gateway the service uses
type MarketData interface {
	GetCurrentPrice(ctx context.Context, ticker, exchange string) (decimal.Decimal, bool)
	GetStockInfo(ctx context.Context, ticker, exchange string) (*models.StockInfo, bool)
	GetHistoricalData(ctx context.Context, ticker, exchange, period string) []models.PriceDataDaily
	RefreshPrices(ctx context.Context, positions []*models.Position) []*models.Position
}

// Service is the application layer
type Service struct {
	store     Store
	market    MarketData
	analytics *analytics.Engine
	now       func() time.Time
	log       zerolog.Logger
}

// New creates a service
func New(store Store, market MarketData, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		market:    market,
		analytics: analytics.NewEngine(market, log),
		now:       time.Now,
		log:       log.With().Str("component", "service").Logger(),
	}
}

// persistPrices writes refreshed prices back. A failure is logged and does
// not fail the request; the caller already holds the fresh values.
func (s *Service) persistPrices(positions []*models.Position) {
	if len(positions) == 0 {
		return
	}
	if err := s.store.UpdatePositionPrices(positions); err != nil {
		s.log.Error().Err(err).Int("positions", len(positions)).Msg("Failed to persist refreshed prices")
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
