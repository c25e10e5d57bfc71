package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trogers1052/virfolio/internal/models"
)

const maxTickerLength = 20

// PositionInput carries the user-editable position fields
type PositionInput struct {
	Ticker   string          `json:"ticker"`
	Exchange string          `json:"exchange"`
	Quantity decimal.Decimal `json:"quantity"`
	BuyPrice decimal.Decimal `json:"buy_price"`
	BuyDate  time.Time       `json:"buy_date"`
	Notes    string          `json:"notes"`
}

func (in PositionInput) validate() (PositionInput, error) {
	in.Ticker = strings.ToUpper(strings.TrimSpace(in.Ticker))
	if in.Ticker == "" {
		return in, invalid("ticker is required")
	}
	if len(in.Ticker) > maxTickerLength {
		return in, invalid("ticker must be at most %d characters", maxTickerLength)
	}

	in.Exchange = strings.ToUpper(strings.TrimSpace(in.Exchange))
	if in.Exchange == "" {
		in.Exchange = models.ExchangeUS
	}
	if !models.ValidExchange(in.Exchange) {
		return in, invalid("unsupported exchange %q", in.Exchange)
	}

	if !in.Quantity.IsPositive() {
		return in, invalid("quantity must be greater than zero")
	}
	if !in.BuyPrice.IsPositive() {
		return in, invalid("buy price must be greater than zero")
	}
	if in.BuyDate.IsZero() {
		return in, invalid("buy date is required")
	}
	return in, nil
}

// AddPosition validates the input, looks up sector and current price, and
// stores a new position in the portfolio
func (s *Service) AddPosition(ctx context.Context, userID, portfolioID int, in PositionInput) (*models.Position, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	if _, err := s.GetPortfolio(ctx, userID, portfolioID); err != nil {
		return nil, err
	}

	p := &models.Position{
		PortfolioID: portfolioID,
		Ticker:      in.Ticker,
		Exchange:    in.Exchange,
		Quantity:    in.Quantity,
		BuyPrice:    in.BuyPrice,
		BuyDate:     in.BuyDate,
		Notes:       in.Notes,
	}
	s.enrich(ctx, p)

	if err := s.store.CreatePosition(p); err != nil {
		return nil, err
	}

	s.log.Info().
		Int("portfolio_id", portfolioID).
		Int("position_id", p.ID).
		Str("ticker", p.Ticker).
		Str("exchange", p.Exchange).
		Msg("Position added")
	return p, nil
}

// EditPosition replaces the editable fields and re-reads sector and price
func (s *Service) EditPosition(ctx context.Context, userID, positionID int, in PositionInput) (*models.Position, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	p, err := s.ownedPosition(ctx, userID, positionID)
	if err != nil {
		return nil, err
	}

	if p.Ticker != in.Ticker || p.Exchange != in.Exchange {
		p.CurrentPrice = decimal.NullDecimal{}
		p.LastUpdated = nil
	}
	p.Ticker = in.Ticker
	p.Exchange = in.Exchange
	p.Quantity = in.Quantity
	p.BuyPrice = in.BuyPrice
	p.BuyDate = in.BuyDate
	p.Notes = in.Notes
	s.enrich(ctx, p)

	if err := s.store.UpdatePosition(p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePosition removes a position the user owns
func (s *Service) DeletePosition(ctx context.Context, userID, positionID int) error {
	if _, err := s.ownedPosition(ctx, userID, positionID); err != nil {
		return err
	}
	return s.store.DeletePosition(positionID)
}

// ownedPosition loads a position and checks ownership through its portfolio
func (s *Service) ownedPosition(ctx context.Context, userID, positionID int) (*models.Position, error) {
	p, err := s.store.GetPositionByID(positionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetPortfolio(ctx, userID, p.PortfolioID); err != nil {
		return nil, err
	}
	return p, nil
}

// enrich fills sector and current price from the market data gateway.
// Provider outages leave the fields as they were.
func (s *Service) enrich(ctx context.Context, p *models.Position) {
	if info, ok := s.market.GetStockInfo(ctx, p.Ticker, p.Exchange); ok {
		p.Sector = info.Sector
	}
	if price, ok := s.market.GetCurrentPrice(ctx, p.Ticker, p.Exchange); ok {
		p.SetCurrentPrice(price, s.now())
	}
}
