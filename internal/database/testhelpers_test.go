package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/trogers1052/virfolio/internal/models"
)

// TestDB wraps a test database connection with cleanup
type TestDB struct {
	*DB
	container testcontainers.Container
	connStr   string
}

// SetupTestDB creates a new PostgreSQL container and returns a migrated DB
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := New(connStr)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	testDB := &TestDB{
		DB:        db,
		container: pgContainer,
		connStr:   connStr,
	}

	if err := testDB.RunMigrations(migrationsDir()); err != nil {
		testDB.Cleanup(t)
		t.Fatalf("failed to run migrations: %v", err)
	}

	return testDB
}

// migrationsDir resolves db/migrations relative to this file
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "db", "migrations")
}

// Cleanup closes the database connection and terminates the container
func (tdb *TestDB) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if tdb.DB != nil {
		tdb.DB.Close()
	}

	if tdb.container != nil {
		if err := tdb.container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}
}

// TruncateAll truncates all tables for test isolation
func (tdb *TestDB) TruncateAll(t *testing.T) {
	t.Helper()

	tables := []string{
		"positions",
		"portfolios",
		"users",
		"price_data_daily",
	}

	for _, table := range tables {
		_, err := tdb.conn.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table))
		if err != nil {
			t.Fatalf("failed to truncate table %s: %v", table, err)
		}
	}
}

// GetRawConn returns the underlying sql.DB for direct queries in tests
func (tdb *TestDB) GetRawConn() *sql.DB {
	return tdb.conn
}

// seedUser creates a user with a throwaway password hash
func (tdb *TestDB) seedUser(t *testing.T, email string) *models.User {
	t.Helper()

	u := &models.User{Email: email, Username: email, PasswordHash: "x"}
	if err := tdb.CreateUser(u); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return u
}

// seedPortfolio creates a portfolio owned by userID
func (tdb *TestDB) seedPortfolio(t *testing.T, userID int, name, base string) *models.Portfolio {
	t.Helper()

	p := &models.Portfolio{UserID: userID, Name: name, BaseCurrency: base}
	if err := tdb.CreatePortfolio(p); err != nil {
		t.Fatalf("failed to seed portfolio: %v", err)
	}
	return p
}

// seedPosition creates a position without a live price
func (tdb *TestDB) seedPosition(t *testing.T, portfolioID int, ticker, exchange string, qty, buy float64) *models.Position {
	t.Helper()

	p := &models.Position{
		PortfolioID: portfolioID,
		Ticker:      ticker,
		Exchange:    exchange,
		Quantity:    decimal.NewFromFloat(qty),
		BuyPrice:    decimal.NewFromFloat(buy),
		BuyDate:     time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := tdb.CreatePosition(p); err != nil {
		t.Fatalf("failed to seed position: %v", err)
	}
	return p
}
