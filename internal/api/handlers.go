package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/trogers1052/virfolio/internal/analytics"
	"github.com/trogers1052/virfolio/internal/currency"
	"github.com/trogers1052/virfolio/internal/database"
	"github.com/trogers1052/virfolio/internal/models"
	"github.com/trogers1052/virfolio/internal/service"
)

// UserHeader carries the authenticated user id set by the upstream gateway
const UserHeader = "X-User-ID"

const dateLayout = "2006-01-02"

// Service is the application layer used by the handlers
type Service interface {
	RegisterUser(ctx context.Context, in service.RegisterInput) (*models.User, error)
	DeleteAccount(ctx context.Context, userID int) error

	ListPortfolios(ctx context.Context, userID int) ([]*models.Portfolio, error)
	ViewPortfolio(ctx context.Context, userID, id int, displayCurrency string) (*service.PortfolioView, error)
	CreatePortfolio(ctx context.Context, userID int, in service.PortfolioInput) (*models.Portfolio, error)
	UpdatePortfolio(ctx context.Context, userID, id int, in service.PortfolioInput) (*models.Portfolio, error)
	DeletePortfolio(ctx context.Context, userID, id int) error

	AddPosition(ctx context.Context, userID, portfolioID int, in service.PositionInput) (*models.Position, error)
	EditPosition(ctx context.Context, userID, positionID int, in service.PositionInput) (*models.Position, error)
	DeletePosition(ctx context.Context, userID, positionID int) error

	Analytics(ctx context.Context, userID int, displayCurrency string) (*analytics.Report, error)
	Dashboard(ctx context.Context, userID int, displayCurrency string) (*analytics.Dashboard, error)
	StockQuote(ctx context.Context, ticker, exchange string) (*models.StockInfo, bool, error)
	StockHistory(ctx context.Context, ticker, exchange, period string) ([]models.PriceDataDaily, error)
}

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping() error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc Service
	db  Pinger
	log zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(svc Service, db Pinger, log zerolog.Logger) *Handler {
	return &Handler{
		svc: svc,
		db:  db,
		log: log.With().Str("component", "api").Logger(),
	}
}

type positionRequest struct {
	Ticker   string          `json:"ticker"`
	Exchange string          `json:"exchange"`
	Quantity decimal.Decimal `json:"quantity"`
	BuyPrice decimal.Decimal `json:"buy_price"`
	BuyDate  string          `json:"buy_date"`
	Notes    string          `json:"notes"`
}

func (req positionRequest) input() (service.PositionInput, error) {
	in := service.PositionInput{
		Ticker:   req.Ticker,
		Exchange: req.Exchange,
		Quantity: req.Quantity,
		BuyPrice: req.BuyPrice,
		Notes:    req.Notes,
	}
	if req.BuyDate != "" {
		d, err := time.Parse(dateLayout, req.BuyDate)
		if err != nil {
			return in, err
		}
		in.BuyDate = d
	}
	return in, nil
}

// Register handles POST /users
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.svc.RegisterUser(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, u)
}

// DeleteAccount handles DELETE /users/me
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), userID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPortfolios handles GET /portfolios
func (h *Handler) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	portfolios, err := h.svc.ListPortfolios(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, portfolios)
}

// GetPortfolio handles GET /portfolios/{id}
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	view, err := h.svc.ViewPortfolio(r.Context(), userID, id, displayCurrency(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// CreatePortfolio handles POST /portfolios
func (h *Handler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req service.PortfolioInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.svc.CreatePortfolio(r.Context(), userID, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// UpdatePortfolio handles PUT /portfolios/{id}
func (h *Handler) UpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req service.PortfolioInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.svc.UpdatePortfolio(r.Context(), userID, id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DeletePortfolio handles DELETE /portfolios/{id}
func (h *Handler) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeletePortfolio(r.Context(), userID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddPosition handles POST /portfolios/{id}/positions
func (h *Handler) AddPosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	portfolioID, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := decodePosition(w, r)
	if !ok {
		return
	}

	p, err := h.svc.AddPosition(r.Context(), userID, portfolioID, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// EditPosition handles PUT /positions/{id}
func (h *Handler) EditPosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	positionID, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := decodePosition(w, r)
	if !ok {
		return
	}

	p, err := h.svc.EditPosition(r.Context(), userID, positionID, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DeletePosition handles DELETE /positions/{id}
func (h *Handler) DeletePosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	positionID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeletePosition(r.Context(), userID, positionID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Analytics handles GET /analytics
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	report, err := h.svc.Analytics(r.Context(), userID, displayCurrency(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Dashboard handles GET /dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	d, err := h.svc.Dashboard(r.Context(), userID, displayCurrency(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// GetStock handles GET /stocks/{ticker}
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]

	info, ok, err := h.svc.StockQuote(r.Context(), ticker, r.URL.Query().Get("exchange"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !ok {
		http.Error(w, "market data unavailable", http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// GetStockHistory handles GET /stocks/{ticker}/history
func (h *Handler) GetStockHistory(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]
	q := r.URL.Query()

	bars, err := h.svc.StockHistory(r.Context(), ticker, q.Get("exchange"), q.Get("period"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bars)
}

// ToggleCurrency handles GET /currency/toggle and returns the other
// display currency
func (h *Handler) ToggleCurrency(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"currency": currency.Toggle(displayCurrency(r))})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			h.log.Error().Err(err).Msg("Health check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// respondError maps service and store errors to status codes
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrAccessDenied):
		http.Error(w, "access denied", http.StatusForbidden)
	case errors.Is(err, database.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg("Request failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.Header.Get(UserHeader))
	if err != nil || id <= 0 {
		http.Error(w, "missing or invalid "+UserHeader+" header", http.StatusUnauthorized)
		return 0, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func decodePosition(w http.ResponseWriter, r *http.Request) (service.PositionInput, bool) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return service.PositionInput{}, false
	}
	in, err := req.input()
	if err != nil {
		http.Error(w, "buy_date must be YYYY-MM-DD", http.StatusBadRequest)
		return service.PositionInput{}, false
	}
	return in, true
}

func displayCurrency(r *http.Request) string {
	return currency.ParseDisplay(r.URL.Query().Get("currency"))
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
