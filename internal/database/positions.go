package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/virfolio/internal/models"
)

const positionColumns = `id, portfolio_id, ticker, exchange, quantity, buy_price, buy_date,
		current_price, last_updated, sector, notes, created_at, updated_at`

// CreatePosition inserts a new position
func (db *DB) CreatePosition(p *models.Position) error {
	query := `
		INSERT INTO positions (
			portfolio_id, ticker, exchange, quantity, buy_price, buy_date,
			current_price, last_updated, sector, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	now := time.Now()

	err := db.conn.QueryRow(query,
		p.PortfolioID, p.Ticker, p.Exchange, p.Quantity, p.BuyPrice, p.BuyDate,
		p.CurrentPrice, p.LastUpdated, nullString(p.Sector), nullString(p.Notes), now, now,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetPositionByID retrieves a position by ID
func (db *DB) GetPositionByID(id int) (*models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`

	p, err := scanPosition(db.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, notFound("position", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return p, nil
}

// GetPositionsByPortfolio retrieves all positions of a portfolio in insertion order
func (db *DB) GetPositionsByPortfolio(portfolioID int) ([]*models.Position, error) {
	return db.scanPositions(db.conn.Query(`
		SELECT `+positionColumns+`
		FROM positions
		WHERE portfolio_id = $1
		ORDER BY id ASC
	`, portfolioID))
}

// UpdatePosition updates the user-editable fields of a position
func (db *DB) UpdatePosition(p *models.Position) error {
	query := `
		UPDATE positions SET
			ticker = $2, exchange = $3, quantity = $4, buy_price = $5, buy_date = $6,
			current_price = $7, last_updated = $8, sector = $9, notes = $10, updated_at = $11
		WHERE id = $1
	`
	p.UpdatedAt = time.Now()
	result, err := db.conn.Exec(query,
		p.ID, p.Ticker, p.Exchange, p.Quantity, p.BuyPrice, p.BuyDate,
		p.CurrentPrice, p.LastUpdated, nullString(p.Sector), nullString(p.Notes), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return notFound("position", p.ID)
	}
	return nil
}

// UpdatePositionPrices writes refreshed prices for a batch of positions in a
// single transaction. Positions without a live price are skipped.
func (db *DB) UpdatePositionPrices(positions []*models.Position) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		UPDATE positions SET current_price = $2, last_updated = $3, updated_at = $4
		WHERE id = $1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range positions {
		if !p.HasLivePrice() {
			continue
		}
		lastUpdated := now
		if p.LastUpdated != nil {
			lastUpdated = *p.LastUpdated
		}
		if _, err := stmt.Exec(p.ID, p.CurrentPrice, lastUpdated, now); err != nil {
			return fmt.Errorf("failed to update price for position %d: %w", p.ID, err)
		}
		p.UpdatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeletePosition removes a position by ID
func (db *DB) DeletePosition(id int) error {
	result, err := db.conn.Exec(`DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return notFound("position", id)
	}
	return nil
}

func (db *DB) scanPositions(rows *sql.Rows, err error) ([]*models.Position, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := []*models.Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}
	return positions, nil
}

func scanPosition(row rowScanner) (*models.Position, error) {
	var p models.Position
	var lastUpdated sql.NullTime
	var sector, notes sql.NullString

	err := row.Scan(
		&p.ID, &p.PortfolioID, &p.Ticker, &p.Exchange, &p.Quantity, &p.BuyPrice, &p.BuyDate,
		&p.CurrentPrice, &lastUpdated, &sector, &notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastUpdated.Valid {
		p.LastUpdated = &lastUpdated.Time
	}
	if sector.Valid {
		p.Sector = sector.String
	}
	if notes.Valid {
		p.Notes = notes.String
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
