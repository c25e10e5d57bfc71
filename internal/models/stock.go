package models

import "time"

// Price event type constants
const (
	EventPriceUpdated     = "PRICE_UPDATED"
	EventRefreshRequested = "REFRESH_REQUESTED"
)

// StockInfo is descriptive metadata for a stock as reported by the market
// data provider. Missing fields carry their documented defaults.
type StockInfo struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Sector       string  `json:"sector"`
	Industry     string  `json:"industry"`
	Currency     string  `json:"currency"`
	CurrentPrice float64 `json:"current_price"`
	DayHigh      float64 `json:"day_high"`
	DayLow       float64 `json:"day_low"`
	Volume       int64   `json:"volume"`
	MarketCap    int64   `json:"market_cap"`
	PERatio      float64 `json:"pe_ratio"`
	Week52High   float64 `json:"week_52_high"`
	Week52Low    float64 `json:"week_52_low"`
}

// PriceEvent is published to Kafka when a position's price was refreshed
type PriceEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	Symbol      string    `json:"symbol"`
	Ticker      string    `json:"ticker"`
	Exchange    string    `json:"exchange"`
	PositionID  int       `json:"position_id"`
	PortfolioID int       `json:"portfolio_id"`
	Price       string    `json:"price"`
	Currency    string    `json:"currency"`
	Timestamp   time.Time `json:"timestamp"`
}

// RefreshRequest asks the service to refresh prices of one portfolio
type RefreshRequest struct {
	EventType   string    `json:"event_type"`
	UserID      int       `json:"user_id"`
	PortfolioID int       `json:"portfolio_id"`
	Timestamp   time.Time `json:"timestamp"`
}
