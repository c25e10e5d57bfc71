package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/virfolio/internal/models"
)

// SavePriceHistory upserts a series of daily bars in one transaction
func (db *DB) SavePriceHistory(prices []models.PriceDataDaily) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO price_data_daily (symbol, date, open, high, low, close, volume, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range prices {
		_, err := stmt.Exec(p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, now)
		if err != nil {
			return fmt.Errorf("failed to insert price data for %s: %w", p.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPriceHistory retrieves stored bars for a symbol since the given date,
// oldest first
func (db *DB) GetPriceHistory(symbol string, since time.Time) ([]models.PriceDataDaily, error) {
	query := `
		SELECT id, symbol, date, open, high, low, close, volume, created_at
		FROM price_data_daily
		WHERE symbol = $1 AND date >= $2
		ORDER BY date ASC
	`
	rows, err := db.conn.Query(query, symbol, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get price data: %w", err)
	}
	defer rows.Close()

	prices := []models.PriceDataDaily{}
	for rows.Next() {
		p, err := scanPriceData(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price data: %w", err)
		}
		prices = append(prices, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price data: %w", err)
	}
	return prices, nil
}

// GetLatestPriceData retrieves the most recent stored bar for a symbol
func (db *DB) GetLatestPriceData(symbol string) (*models.PriceDataDaily, error) {
	query := `
		SELECT id, symbol, date, open, high, low, close, volume, created_at
		FROM price_data_daily
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT 1
	`
	p, err := scanPriceData(db.conn.QueryRow(query, symbol))
	if err == sql.ErrNoRows {
		return nil, notFound("price data", symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price data: %w", err)
	}
	return p, nil
}

// DeletePriceDataOlderThan removes bars dated before the cutoff
func (db *DB) DeletePriceDataOlderThan(date time.Time) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM price_data_daily WHERE date < $1`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old price data: %w", err)
	}
	return result.RowsAffected()
}

func scanPriceData(row rowScanner) (*models.PriceDataDaily, error) {
	var p models.PriceDataDaily
	var open, high, low decimal.NullDecimal

	err := row.Scan(&p.ID, &p.Symbol, &p.Date, &open, &high, &low, &p.Close, &p.Volume, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.Open = open.Decimal
	p.High = high.Decimal
	p.Low = low.Decimal
	return &p, nil
}
