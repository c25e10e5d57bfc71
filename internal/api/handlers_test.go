package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/virfolio/internal/analytics"
	"github.com/trogers1052/virfolio/internal/database"
	"github.com/trogers1052/virfolio/internal/models"
	"github.com/trogers1052/virfolio/internal/service"
)

// mockService records the arguments it was called with
type mockService struct {
	err error

	userID       int
	id           int
	currency     string
	portfolioIn  service.PortfolioInput
	positionIn   service.PositionInput
	registerIn   service.RegisterInput
	ticker       string
	exchange     string
	period       string
	quoteMissing bool
}

func (m *mockService) RegisterUser(ctx context.Context, in service.RegisterInput) (*models.User, error) {
	m.registerIn = in
	if m.err != nil {
		return nil, m.err
	}
	return &models.User{ID: 1, Email: in.Email, Username: in.Username, PasswordHash: "hash"}, nil
}

func (m *mockService) DeleteAccount(ctx context.Context, userID int) error {
	m.userID = userID
	return m.err
}

func (m *mockService) ListPortfolios(ctx context.Context, userID int) ([]*models.Portfolio, error) {
	m.userID = userID
	if m.err != nil {
		return nil, m.err
	}
	return []*models.Portfolio{{ID: 1, UserID: userID, Name: "Core", BaseCurrency: "USD"}}, nil
}

func (m *mockService) ViewPortfolio(ctx context.Context, userID, id int, displayCurrency string) (*service.PortfolioView, error) {
	m.userID, m.id, m.currency = userID, id, displayCurrency
	if m.err != nil {
		return nil, m.err
	}
	return &service.PortfolioView{ID: id, Name: "Core", Currency: displayCurrency, TotalValue: decimal.NewFromInt(88000)}, nil
}

func (m *mockService) CreatePortfolio(ctx context.Context, userID int, in service.PortfolioInput) (*models.Portfolio, error) {
	m.userID, m.portfolioIn = userID, in
	if m.err != nil {
		return nil, m.err
	}
	return &models.Portfolio{ID: 5, UserID: userID, Name: in.Name, BaseCurrency: in.BaseCurrency}, nil
}

func (m *mockService) UpdatePortfolio(ctx context.Context, userID, id int, in service.PortfolioInput) (*models.Portfolio, error) {
	m.userID, m.id, m.portfolioIn = userID, id, in
	if m.err != nil {
		return nil, m.err
	}
	return &models.Portfolio{ID: id, UserID: userID, Name: in.Name}, nil
}

func (m *mockService) DeletePortfolio(ctx context.Context, userID, id int) error {
	m.userID, m.id = userID, id
	return m.err
}

func (m *mockService) AddPosition(ctx context.Context, userID, portfolioID int, in service.PositionInput) (*models.Position, error) {
	m.userID, m.id, m.positionIn = userID, portfolioID, in
	if m.err != nil {
		return nil, m.err
	}
	return &models.Position{ID: 9, PortfolioID: portfolioID, Ticker: in.Ticker, Exchange: in.Exchange}, nil
}

func (m *mockService) EditPosition(ctx context.Context, userID, positionID int, in service.PositionInput) (*models.Position, error) {
	m.userID, m.id, m.positionIn = userID, positionID, in
	if m.err != nil {
		return nil, m.err
	}
	return &models.Position{ID: positionID, Ticker: in.Ticker}, nil
}

func (m *mockService) DeletePosition(ctx context.Context, userID, positionID int) error {
	m.userID, m.id = userID, positionID
	return m.err
}

func (m *mockService) Analytics(ctx context.Context, userID int, displayCurrency string) (*analytics.Report, error) {
	m.userID, m.currency = userID, displayCurrency
	if m.err != nil {
		return nil, m.err
	}
	return analytics.Summarize(nil, displayCurrency), nil
}

func (m *mockService) Dashboard(ctx context.Context, userID int, displayCurrency string) (*analytics.Dashboard, error) {
	m.userID, m.currency = userID, displayCurrency
	if m.err != nil {
		return nil, m.err
	}
	return &analytics.Dashboard{Currency: displayCurrency}, nil
}

func (m *mockService) StockQuote(ctx context.Context, ticker, exchange string) (*models.StockInfo, bool, error) {
	m.ticker, m.exchange = ticker, exchange
	if m.err != nil {
		return nil, false, m.err
	}
	if m.quoteMissing {
		return nil, false, nil
	}
	return &models.StockInfo{Symbol: ticker, Name: ticker, Sector: "Technology"}, true, nil
}

func (m *mockService) StockHistory(ctx context.Context, ticker, exchange, period string) ([]models.PriceDataDaily, error) {
	m.ticker, m.exchange, m.period = ticker, exchange, period
	if m.err != nil {
		return nil, m.err
	}
	return []models.PriceDataDaily{{Symbol: ticker, Close: decimal.NewFromInt(10)}}, nil
}

type mockPinger struct{ err error }

func (p mockPinger) Ping() error { return p.err }

func newTestRouter(svc *mockService) http.Handler {
	return SetupRoutes(NewHandler(svc, mockPinger{}, zerolog.Nop()))
}

func do(t *testing.T, h http.Handler, method, path, body string, userID int) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID > 0 {
		req.Header.Set(UserHeader, fmt.Sprint(userID))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	rec := do(t, newTestRouter(&mockService{}), "GET", "/health", "", 0)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	down := SetupRoutes(NewHandler(&mockService{}, mockPinger{err: errors.New("db down")}, zerolog.Nop()))
	rec = do(t, down, "GET", "/health", "", 0)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequiresUserHeader(t *testing.T) {
	router := newTestRouter(&mockService{})

	for _, path := range []string{"/api/v1/portfolios", "/api/v1/analytics", "/api/v1/dashboard"} {
		rec := do(t, router, "GET", path, "", 0)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	req := httptest.NewRequest("GET", "/api/v1/portfolios", nil)
	req.Header.Set(UserHeader, "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPortfolioRoutes(t *testing.T) {
	t.Run("view defaults to INR", func(t *testing.T) {
		svc := &mockService{}
		rec := do(t, newTestRouter(svc), "GET", "/api/v1/portfolios/3", "", 7)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 7, svc.userID)
		assert.Equal(t, 3, svc.id)
		assert.Equal(t, "INR", svc.currency)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "88000", body["total_value"])
	})

	t.Run("view honours currency parameter", func(t *testing.T) {
		svc := &mockService{}
		rec := do(t, newTestRouter(svc), "GET", "/api/v1/portfolios/3?currency=usd", "", 7)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "USD", svc.currency)
	})

	t.Run("create", func(t *testing.T) {
		svc := &mockService{}
		rec := do(t, newTestRouter(svc), "POST", "/api/v1/portfolios", `{"name":"Growth","base_currency":"INR"}`, 2)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "Growth", svc.portfolioIn.Name)
		assert.Equal(t, "INR", svc.portfolioIn.BaseCurrency)
	})

	t.Run("create with bad body", func(t *testing.T) {
		rec := do(t, newTestRouter(&mockService{}), "POST", "/api/v1/portfolios", `{`, 2)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update and delete", func(t *testing.T) {
		svc := &mockService{}
		router := newTestRouter(svc)

		rec := do(t, router, "PUT", "/api/v1/portfolios/4", `{"name":"Renamed"}`, 2)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 4, svc.id)

		rec = do(t, router, "DELETE", "/api/v1/portfolios/4", "", 2)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("non numeric id does not match", func(t *testing.T) {
		rec := do(t, newTestRouter(&mockService{}), "GET", "/api/v1/portfolios/abc", "", 2)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"access denied", service.ErrAccessDenied, http.StatusForbidden},
		{"not found", fmt.Errorf("portfolio %w: 3", database.ErrNotFound), http.StatusNotFound},
		{"invalid input", fmt.Errorf("%w: name is required", service.ErrInvalidInput), http.StatusBadRequest},
		{"unexpected", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestRouter(&mockService{err: tt.err}), "GET", "/api/v1/portfolios/3", "", 1)
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	rec := do(t, newTestRouter(&mockService{err: errors.New("pq: secret detail")}), "GET", "/api/v1/portfolios", "", 1)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestPositionRoutes(t *testing.T) {
	t.Run("add parses decimals and date", func(t *testing.T) {
		svc := &mockService{}
		body := `{"ticker":"infy","exchange":"NS","quantity":"10.5","buy_price":1450.25,"buy_date":"2025-11-03","notes":"sip"}`
		rec := do(t, newTestRouter(svc), "POST", "/api/v1/portfolios/2/positions", body, 1)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, 2, svc.id)
		assert.Equal(t, "infy", svc.positionIn.Ticker)
		assert.True(t, decimal.NewFromFloat(10.5).Equal(svc.positionIn.Quantity))
		assert.True(t, decimal.NewFromFloat(1450.25).Equal(svc.positionIn.BuyPrice))
		assert.Equal(t, "2025-11-03", svc.positionIn.BuyDate.Format(dateLayout))
		assert.Equal(t, "sip", svc.positionIn.Notes)
	})

	t.Run("bad date", func(t *testing.T) {
		body := `{"ticker":"AAPL","quantity":1,"buy_price":1,"buy_date":"03/11/2025"}`
		rec := do(t, newTestRouter(&mockService{}), "POST", "/api/v1/portfolios/2/positions", body, 1)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("edit and delete", func(t *testing.T) {
		svc := &mockService{}
		router := newTestRouter(svc)

		rec := do(t, router, "PUT", "/api/v1/positions/11", `{"ticker":"AAPL","quantity":2,"buy_price":100,"buy_date":"2025-01-02"}`, 1)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 11, svc.id)

		rec = do(t, router, "DELETE", "/api/v1/positions/11", "", 1)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestAccountRoutes(t *testing.T) {
	svc := &mockService{}
	router := newTestRouter(svc)

	rec := do(t, router, "GET", "/api/v1/analytics?currency=USD", "", 3)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "USD", svc.currency)

	rec = do(t, router, "GET", "/api/v1/dashboard?currency=GBP", "", 3)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "INR", svc.currency)

	rec = do(t, router, "GET", "/api/v1/currency/toggle?currency=INR", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"currency":"USD"}`, rec.Body.String())
}

func TestUserRoutes(t *testing.T) {
	svc := &mockService{}
	router := newTestRouter(svc)

	rec := do(t, router, "POST", "/api/v1/users", `{"email":"a@b.co","username":"abc","password":"secret1"}`, 0)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "a@b.co", svc.registerIn.Email)
	assert.NotContains(t, rec.Body.String(), "hash")

	rec = do(t, router, "DELETE", "/api/v1/users/me", "", 8)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 8, svc.userID)
}

func TestStockRoutes(t *testing.T) {
	svc := &mockService{}
	router := newTestRouter(svc)

	rec := do(t, router, "GET", "/api/v1/stocks/TCS?exchange=NS", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "TCS", svc.ticker)
	assert.Equal(t, "NS", svc.exchange)

	rec = do(t, router, "GET", "/api/v1/stocks/TCS/history?exchange=NS&period=3mo", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3mo", svc.period)

	svc.quoteMissing = true
	rec = do(t, router, "GET", "/api/v1/stocks/TCS", "", 0)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
