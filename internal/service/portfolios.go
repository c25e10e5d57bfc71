package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/trogers1052/virfolio/internal/analytics"
	"github.com/trogers1052/virfolio/internal/currency"
	"github.com/trogers1052/virfolio/internal/marketdata"
	"github.com/trogers1052/virfolio/internal/models"
)

const maxPortfolioName = 100

// PortfolioInput carries the user-editable portfolio fields
type PortfolioInput struct {
	Name         string `json:"name"`
	BaseCurrency string `json:"base_currency"`
	Description  string `json:"description"`
}

func (in PortfolioInput) validate() (PortfolioInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, invalid("portfolio name is required")
	}
	if len(in.Name) > maxPortfolioName {
		return in, invalid("portfolio name must be at most %d characters", maxPortfolioName)
	}

	in.BaseCurrency = strings.ToUpper(strings.TrimSpace(in.BaseCurrency))
	if in.BaseCurrency == "" {
		in.BaseCurrency = currency.USD
	}
	if !currency.IsSupported(in.BaseCurrency) {
		return in, invalid("unsupported base currency %q", in.BaseCurrency)
	}
	return in, nil
}

// PositionView is a position with its derived figures in the display currency
type PositionView struct {
	*models.Position
	Symbol          string          `json:"symbol"`
	NativeCurrency  string          `json:"native_currency"`
	MarketValue     decimal.Decimal `json:"market_value"`
	CostBasis       decimal.Decimal `json:"cost_basis"`
	GainLoss        decimal.Decimal `json:"gain_loss"`
	GainLossPercent decimal.Decimal `json:"gain_loss_percent"`
	MarketValueText string          `json:"market_value_text"`
}

// PortfolioView is a portfolio with its aggregates in the display currency
type PortfolioView struct {
	ID           int                 `json:"id"`
	Name         string              `json:"name"`
	BaseCurrency string              `json:"base_currency"`
	Description  string              `json:"description,omitempty"`
	Currency     string              `json:"currency"`
	TotalValue   decimal.Decimal     `json:"total_value"`
	TotalCost    decimal.Decimal     `json:"total_cost"`
	GainLoss     decimal.Decimal     `json:"gain_loss"`
	TotalReturn  decimal.Decimal     `json:"total_return"`
	ValueText    string              `json:"total_value_text"`
	Positions    []PositionView      `json:"positions"`
	Chart        analytics.ChartData `json:"chart"`
	Refreshed    int                 `json:"refreshed"`
}

func newPortfolioView(p *models.Portfolio, displayCurrency string) *PortfolioView {
	view := &PortfolioView{
		ID:           p.ID,
		Name:         p.Name,
		BaseCurrency: p.BaseCurrency,
		Description:  p.Description,
		Currency:     displayCurrency,
		TotalValue:   p.TotalValue(displayCurrency),
		TotalCost:    p.TotalCost(displayCurrency),
		GainLoss:     p.GainLoss(displayCurrency),
		TotalReturn:  p.TotalReturn(),
		Positions:    make([]PositionView, 0, len(p.Positions)),
		Chart:        analytics.BuildChartData(p.Positions, displayCurrency),
	}
	view.ValueText = currency.Format(view.TotalValue, displayCurrency)

	for _, pos := range p.Positions {
		value := pos.MarketValue(displayCurrency)
		view.Positions = append(view.Positions, PositionView{
			Position:        pos,
			Symbol:          marketdata.QualifiedSymbol(pos.Ticker, pos.Exchange),
			NativeCurrency:  pos.Currency(),
			MarketValue:     value,
			CostBasis:       pos.CostBasis(displayCurrency),
			GainLoss:        pos.GainLoss(displayCurrency),
			GainLossPercent: pos.GainLossPercent(),
			MarketValueText: currency.Format(value, displayCurrency),
		})
	}
	return view
}

// ListPortfolios returns the user's portfolios with positions, without
// refreshing prices
func (s *Service) ListPortfolios(ctx context.Context, userID int) ([]*models.Portfolio, error) {
	portfolios, err := s.store.GetPortfoliosByUser(userID)
	if err != nil {
		return nil, err
	}
	if portfolios == nil {
		portfolios = []*models.Portfolio{}
	}
	return portfolios, nil
}

// GetPortfolio loads a portfolio and checks ownership
func (s *Service) GetPortfolio(ctx context.Context, userID, id int) (*models.Portfolio, error) {
	p, err := s.store.GetPortfolioByID(id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrAccessDenied
	}
	return p, nil
}

// ViewPortfolio refreshes every position price, persists the ones that
// changed, and returns the valued portfolio
func (s *Service) ViewPortfolio(ctx context.Context, userID, id int, displayCurrency string) (*PortfolioView, error) {
	p, err := s.GetPortfolio(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	refreshed := s.market.RefreshPrices(ctx, p.Positions)
	s.persistPrices(refreshed)

	view := newPortfolioView(p, displayCurrency)
	view.Refreshed = len(refreshed)
	return view, nil
}

// RefreshPortfolio refreshes and persists prices of one portfolio. It
// returns how many positions got a new price.
func (s *Service) RefreshPortfolio(ctx context.Context, userID, portfolioID int) (int, error) {
	p, err := s.GetPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return 0, err
	}

	refreshed := s.market.RefreshPrices(ctx, p.Positions)
	s.persistPrices(refreshed)

	s.log.Info().
		Int("portfolio_id", portfolioID).
		Int("positions", len(p.Positions)).
		Int("refreshed", len(refreshed)).
		Msg("Portfolio refreshed")
	return len(refreshed), nil
}

// CreatePortfolio creates an empty portfolio owned by userID
func (s *Service) CreatePortfolio(ctx context.Context, userID int, in PortfolioInput) (*models.Portfolio, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	p := &models.Portfolio{
		UserID:       userID,
		Name:         in.Name,
		BaseCurrency: in.BaseCurrency,
		Description:  in.Description,
		Positions:    []*models.Position{},
	}
	if err := s.store.CreatePortfolio(p); err != nil {
		return nil, err
	}

	s.log.Info().Int("user_id", userID).Int("portfolio_id", p.ID).Msg("Portfolio created")
	return p, nil
}

// UpdatePortfolio changes name, base currency and description
func (s *Service) UpdatePortfolio(ctx context.Context, userID, id int, in PortfolioInput) (*models.Portfolio, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	p, err := s.GetPortfolio(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	p.Name = in.Name
	p.BaseCurrency = in.BaseCurrency
	p.Description = in.Description
	if err := s.store.UpdatePortfolio(p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePortfolio removes a portfolio and its positions
func (s *Service) DeletePortfolio(ctx context.Context, userID, id int) error {
	if _, err := s.GetPortfolio(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeletePortfolio(id); err != nil {
		return err
	}

	s.log.Info().Int("user_id", userID).Int("portfolio_id", id).Msg("Portfolio deleted")
	return nil
}
