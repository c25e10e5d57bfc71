package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/trogers1052/virfolio/internal/models"
)

// CreatePortfolio inserts a new portfolio
func (db *DB) CreatePortfolio(p *models.Portfolio) error {
	query := `
		INSERT INTO portfolios (user_id, name, base_currency, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	now := time.Now()

	err := db.conn.QueryRow(query, p.UserID, p.Name, p.BaseCurrency, p.Description, now, now).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetPortfolioByID retrieves a portfolio with its positions
func (db *DB) GetPortfolioByID(id int) (*models.Portfolio, error) {
	query := `
		SELECT id, user_id, name, base_currency, description, created_at, updated_at
		FROM portfolios
		WHERE id = $1
	`
	p, err := scanPortfolio(db.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, notFound("portfolio", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	positions, err := db.GetPositionsByPortfolio(p.ID)
	if err != nil {
		return nil, err
	}
	p.Positions = positions
	return p, nil
}

// GetPortfoliosByUser retrieves all portfolios of a user with their positions
func (db *DB) GetPortfoliosByUser(userID int) ([]*models.Portfolio, error) {
	query := `
		SELECT id, user_id, name, base_currency, description, created_at, updated_at
		FROM portfolios
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := db.conn.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []*models.Portfolio
	byID := make(map[int]*models.Portfolio)
	var ids []int64
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		p.Positions = []*models.Position{}
		portfolios = append(portfolios, p)
		byID[p.ID] = p
		ids = append(ids, int64(p.ID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate portfolios: %w", err)
	}
	if len(ids) == 0 {
		return portfolios, nil
	}

	positions, err := db.scanPositions(db.conn.Query(`
		SELECT `+positionColumns+`
		FROM positions
		WHERE portfolio_id = ANY($1)
		ORDER BY id ASC
	`, pq.Array(ids)))
	if err != nil {
		return nil, err
	}
	for _, pos := range positions {
		if p, ok := byID[pos.PortfolioID]; ok {
			p.Positions = append(p.Positions, pos)
		}
	}
	return portfolios, nil
}

// UpdatePortfolio updates name, base currency and description
func (db *DB) UpdatePortfolio(p *models.Portfolio) error {
	query := `
		UPDATE portfolios SET
			name = $2, base_currency = $3, description = $4, updated_at = $5
		WHERE id = $1
	`
	p.UpdatedAt = time.Now()
	result, err := db.conn.Exec(query, p.ID, p.Name, p.BaseCurrency, p.Description, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update portfolio: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return notFound("portfolio", p.ID)
	}
	return nil
}

// DeletePortfolio removes a portfolio and its positions in one transaction
func (db *DB) DeletePortfolio(id int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM positions WHERE portfolio_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete portfolio positions: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return notFound("portfolio", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPortfolio(row rowScanner) (*models.Portfolio, error) {
	var p models.Portfolio
	var description sql.NullString

	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.BaseCurrency, &description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		p.Description = description.String
	}
	return &p, nil
}
