package service

import (
	"context"
	"errors"
	"strings"

	"github.com/trogers1052/virfolio/internal/analytics"
	"github.com/trogers1052/virfolio/internal/database"
	"github.com/trogers1052/virfolio/internal/marketdata"
	"github.com/trogers1052/virfolio/internal/models"
)

const (
	minUsername = 3
	maxUsername = 80
	minPassword = 6
)

// RegisterInput carries the sign-up fields
type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterUser validates the input and creates a user with a bcrypt hash
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)

	if email == "" || !strings.Contains(email, "@") {
		return nil, invalid("a valid email is required")
	}
	if len(username) < minUsername || len(username) > maxUsername {
		return nil, invalid("username must be between %d and %d characters", minUsername, maxUsername)
	}
	if len(in.Password) < minPassword {
		return nil, invalid("password must be at least %d characters", minPassword)
	}

	_, err := s.store.GetUserByEmail(email)
	switch {
	case err == nil:
		return nil, invalid("email %s is already registered", email)
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}

	u := &models.User{Email: email, Username: username}
	if err := u.SetPassword(in.Password); err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(u); err != nil {
		return nil, err
	}

	s.log.Info().Int("user_id", u.ID).Msg("User registered")
	return u, nil
}

// DeleteAccount removes the user with all portfolios and positions
func (s *Service) DeleteAccount(ctx context.Context, userID int) error {
	if err := s.store.DeleteUser(userID); err != nil {
		return err
	}
	s.log.Info().Int("user_id", userID).Msg("User deleted")
	return nil
}

// Analytics refreshes every position of every portfolio of the user,
// persists the new prices and aggregates in displayCurrency
func (s *Service) Analytics(ctx context.Context, userID int, displayCurrency string) (*analytics.Report, error) {
	portfolios, err := s.store.GetPortfoliosByUser(userID)
	if err != nil {
		return nil, err
	}

	report := s.analytics.Compute(ctx, portfolios, displayCurrency)
	s.persistPrices(report.Refreshed)
	return report, nil
}

// Dashboard summarizes the user's portfolios from stored prices
func (s *Service) Dashboard(ctx context.Context, userID int, displayCurrency string) (*analytics.Dashboard, error) {
	portfolios, err := s.store.GetPortfoliosByUser(userID)
	if err != nil {
		return nil, err
	}
	return analytics.BuildDashboard(portfolios, displayCurrency, s.now()), nil
}

// StockQuote returns provider metadata for a ticker. The boolean is false
// when the provider could not be reached.
func (s *Service) StockQuote(ctx context.Context, ticker, exchange string) (*models.StockInfo, bool, error) {
	ticker, exchange, err := normalizeSymbol(ticker, exchange)
	if err != nil {
		return nil, false, err
	}
	info, ok := s.market.GetStockInfo(ctx, ticker, exchange)
	return info, ok, nil
}

// StockHistory returns daily bars for a ticker. Fresh bars are stored; when
// the provider has nothing the stored bars for the same window are served.
func (s *Service) StockHistory(ctx context.Context, ticker, exchange, period string) ([]models.PriceDataDaily, error) {
	ticker, exchange, err := normalizeSymbol(ticker, exchange)
	if err != nil {
		return nil, err
	}
	if !marketdata.ValidPeriod(period) {
		period = marketdata.PeriodDef
	}

	bars := s.market.GetHistoricalData(ctx, ticker, exchange, period)
	if len(bars) > 0 {
		if err := s.store.SavePriceHistory(bars); err != nil {
			s.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to store price history")
		}
		return bars, nil
	}

	symbol := marketdata.QualifiedSymbol(ticker, exchange)
	stored, err := s.store.GetPriceHistory(symbol, marketdata.PeriodStart(period, s.now()))
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func normalizeSymbol(ticker, exchange string) (string, string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", "", invalid("ticker is required")
	}
	exchange = strings.ToUpper(strings.TrimSpace(exchange))
	if exchange == "" {
		exchange = models.ExchangeUS
	}
	if !models.ValidExchange(exchange) {
		return "", "", invalid("unsupported exchange %q", exchange)
	}
	return ticker, exchange, nil
}
