package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trogers1052/virfolio/internal/database"
	"github.com/trogers1052/virfolio/internal/marketdata"
	"github.com/trogers1052/virfolio/internal/models"
)

// mockStore is an in-memory Store
type mockStore struct {
	mu         sync.Mutex
	nextID     int
	users      map[int]*models.User
	portfolios map[int]*models.Portfolio
	positions  map[int]*models.Position
	history    map[string][]models.PriceDataDaily

	priceUpdates [][]*models.Position
	updateErr    error
}

func newMockStore() *mockStore {
	return &mockStore{
		users:      map[int]*models.User{},
		portfolios: map[int]*models.Portfolio{},
		positions:  map[int]*models.Position{},
		history:    map[string][]models.PriceDataDaily{},
	}
}

func (m *mockStore) id() int {
	m.nextID++
	return m.nextID
}

func (m *mockStore) CreateUser(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.id()
	m.users[u.ID] = u
	return nil
}

func (m *mockStore) GetUserByEmail(email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *mockStore) DeleteUser(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return database.ErrNotFound
	}
	for pid, p := range m.portfolios {
		if p.UserID == id {
			m.deletePortfolioLocked(pid)
		}
	}
	delete(m.users, id)
	return nil
}

func (m *mockStore) CreatePortfolio(p *models.Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	stored := *p
	m.portfolios[p.ID] = &stored
	return nil
}

// loadLocked returns a copy of the portfolio with its positions attached
func (m *mockStore) loadLocked(p *models.Portfolio) *models.Portfolio {
	out := *p
	out.Positions = []*models.Position{}
	var ids []int
	for id, pos := range m.positions {
		if pos.PortfolioID == p.ID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	for _, id := range ids {
		out.Positions = append(out.Positions, m.positions[id])
	}
	return &out
}

func (m *mockStore) GetPortfolioByID(id int) (*models.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.portfolios[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return m.loadLocked(p), nil
}

func (m *mockStore) GetPortfoliosByUser(userID int) ([]*models.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for id, p := range m.portfolios {
		if p.UserID == userID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	var out []*models.Portfolio
	for _, id := range ids {
		out = append(out, m.loadLocked(m.portfolios[id]))
	}
	return out, nil
}

func (m *mockStore) UpdatePortfolio(p *models.Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.portfolios[p.ID]; !ok {
		return database.ErrNotFound
	}
	stored := *p
	stored.Positions = nil
	m.portfolios[p.ID] = &stored
	return nil
}

func (m *mockStore) DeletePortfolio(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.portfolios[id]; !ok {
		return database.ErrNotFound
	}
	m.deletePortfolioLocked(id)
	return nil
}

func (m *mockStore) deletePortfolioLocked(id int) {
	for pid, pos := range m.positions {
		if pos.PortfolioID == id {
			delete(m.positions, pid)
		}
	}
	delete(m.portfolios, id)
}

func (m *mockStore) CreatePosition(p *models.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	m.positions[p.ID] = p
	return nil
}

func (m *mockStore) GetPositionByID(id int) (*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return p, nil
}

func (m *mockStore) UpdatePosition(p *models.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[p.ID]; !ok {
		return database.ErrNotFound
	}
	m.positions[p.ID] = p
	return nil
}

func (m *mockStore) UpdatePositionPrices(positions []*models.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priceUpdates = append(m.priceUpdates, positions)
	return m.updateErr
}

func (m *mockStore) DeletePosition(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.positions, id)
	return nil
}

func (m *mockStore) SavePriceHistory(prices []models.PriceDataDaily) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range prices {
		m.history[p.Symbol] = append(m.history[p.Symbol], p)
	}
	return nil
}

func (m *mockStore) GetPriceHistory(symbol string, since time.Time) ([]models.PriceDataDaily, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PriceDataDaily{}
	for _, p := range m.history[symbol] {
		if !p.Date.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

// mockMarket serves fixed prices and sectors per qualified symbol
type mockMarket struct {
	mu      sync.Mutex
	prices  map[string]float64
	sectors map[string]string
	bars    map[string][]models.PriceDataDaily
	down    bool
}

func newMockMarket() *mockMarket {
	return &mockMarket{
		prices:  map[string]float64{},
		sectors: map[string]string{},
		bars:    map[string][]models.PriceDataDaily{},
	}
}

func (m *mockMarket) GetCurrentPrice(ctx context.Context, ticker, exchange string) (decimal.Decimal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return decimal.Zero, false
	}
	price, ok := m.prices[marketdata.QualifiedSymbol(ticker, exchange)]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(price), true
}

func (m *mockMarket) GetStockInfo(ctx context.Context, ticker, exchange string) (*models.StockInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, false
	}
	symbol := marketdata.QualifiedSymbol(ticker, exchange)
	sector := m.sectors[symbol]
	if sector == "" {
		sector = models.SectorUnknown
	}
	return &models.StockInfo{Symbol: symbol, Name: ticker, Sector: sector, Industry: models.SectorUnknown, Currency: "USD"}, true
}

func (m *mockMarket) GetHistoricalData(ctx context.Context, ticker, exchange, period string) []models.PriceDataDaily {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return []models.PriceDataDaily{}
	}
	return m.bars[marketdata.QualifiedSymbol(ticker, exchange)]
}

func (m *mockMarket) RefreshPrices(ctx context.Context, positions []*models.Position) []*models.Position {
	var updated []*models.Position
	for _, p := range positions {
		if price, ok := m.GetCurrentPrice(ctx, p.Ticker, p.Exchange); ok {
			p.SetCurrentPrice(price, time.Now())
			updated = append(updated, p)
		}
	}
	return updated
}

var errStore = errors.New("store unavailable")
