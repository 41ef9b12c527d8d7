// Package sqlstore reads shop data from the relational schema used by the
// point-of-sale application: customers, invoices, invoice_details, products,
// repair_orders and employees. PostgreSQL, SQLite and MySQL are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"watchshop/backend/internal/domain"
	"watchshop/backend/internal/store"
)

const dayLayout = "2006-01-02"

type Store struct {
	db      *sql.DB
	dialect dialect
	log     zerolog.Logger
}

var _ store.Reader = (*Store)(nil)

func New(ctx context.Context, driver string, databaseURL string, log zerolog.Logger) (*Store, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}
	dsn, err := d.dsn(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, err
	}

	if d.name == "sqlite" {
		// every sqlite connection to :memory: is its own database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxIdleConns(8)
		db.SetMaxOpenConns(30)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:      db,
		dialect: d,
		log:     log.With().Str("component", "sqlstore").Str("dialect", d.name).Logger(),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Dialect() string {
	return s.dialect.name
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time) ([]domain.SaleTransaction, error) {
	firstDay, lastDay := dayBounds(from, to)
	rows, err := s.query(ctx, `
		SELECT id, customer_id, total_amount, created_date
		FROM invoices
		WHERE created_date >= ? AND SUBSTR(created_date, 1, 10) <= ?
		ORDER BY created_date, id
	`, firstDay, lastDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanSales(rows)
}

func (s *Store) ListCustomerSales(ctx context.Context) ([]domain.SaleTransaction, error) {
	rows, err := s.query(ctx, `
		SELECT id, customer_id, total_amount, created_date
		FROM invoices
		WHERE customer_id IS NOT NULL
		ORDER BY created_date, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanSales(rows)
}

func (s *Store) scanSales(rows *sql.Rows) ([]domain.SaleTransaction, error) {
	sales := make([]domain.SaleTransaction, 0, 128)
	for rows.Next() {
		var (
			sale       domain.SaleTransaction
			customerID sql.NullInt64
			created    string
		)
		if err := rows.Scan(&sale.ID, &customerID, &sale.Amount, &created); err != nil {
			return nil, err
		}
		day, ok := s.parseDay("invoice", sale.ID, created)
		if !ok {
			continue
		}
		sale.OccurredOn = day
		if customerID.Valid {
			id := customerID.Int64
			sale.CustomerID = &id
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) ListRepairs(ctx context.Context, from time.Time, to time.Time) ([]domain.RepairTransaction, error) {
	firstDay, lastDay := dayBounds(from, to)
	rows, err := s.query(ctx, `
		SELECT id, customer_id, actual_cost, created_date, COALESCE(status, '')
		FROM repair_orders
		WHERE created_date >= ? AND SUBSTR(created_date, 1, 10) <= ?
		ORDER BY created_date, id
	`, firstDay, lastDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	repairs := make([]domain.RepairTransaction, 0, 64)
	for rows.Next() {
		var (
			repair     domain.RepairTransaction
			customerID sql.NullInt64
			cost       decimal.NullDecimal
			created    string
			status     string
		)
		if err := rows.Scan(&repair.ID, &customerID, &cost, &created, &status); err != nil {
			return nil, err
		}
		day, ok := s.parseDay("repair_order", repair.ID, created)
		if !ok {
			continue
		}
		repair.OccurredOn = day
		repair.Cost = decimal.Zero
		if cost.Valid {
			repair.Cost = cost.Decimal
		}
		if customerID.Valid {
			id := customerID.Int64
			repair.CustomerID = &id
		}
		// unknown labels pass through and are rejected by the aggregators
		repair.Status, _ = domain.ParseRepairStatus(status)
		repairs = append(repairs, repair)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return repairs, nil
}

func (s *Store) CountCustomers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ListSaleLines(ctx context.Context, from time.Time, to time.Time) ([]domain.ProductSaleLine, error) {
	firstDay, lastDay := dayBounds(from, to)
	rows, err := s.query(ctx, `
		SELECT d.invoice_id, d.product_id, p.name, d.quantity, d.price, i.created_date
		FROM invoice_details d
		JOIN invoices i ON i.id = d.invoice_id
		JOIN products p ON p.id = d.product_id
		WHERE i.created_date >= ? AND SUBSTR(i.created_date, 1, 10) <= ?
		ORDER BY i.created_date, d.invoice_id, d.product_id
	`, firstDay, lastDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.ProductSaleLine, 0, 256)
	for rows.Next() {
		var (
			line    domain.ProductSaleLine
			created string
		)
		if err := rows.Scan(&line.SaleTransactionID, &line.ProductID, &line.ProductName, &line.Quantity, &line.UnitPrice, &created); err != nil {
			return nil, err
		}
		day, ok := s.parseDay("invoice_detail", line.SaleTransactionID, created)
		if !ok {
			continue
		}
		line.OccurredOn = day
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.query(ctx, `
		SELECT id, password, full_name, vaitro
		FROM employees
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0, 16)
	for rows.Next() {
		var (
			account domain.Account
			role    int
		)
		if err := rows.Scan(&account.Username, &account.PasswordHash, &account.FullName, &role); err != nil {
			return nil, err
		}
		account.Role = domain.RoleEmployee
		if role == 1 {
			account.Role = domain.RoleManager
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// dayBounds turns the half-open range [from, to) into inclusive first and last
// days. The last day of 9999 is the latest that still formats as YYYY-MM-DD.
func dayBounds(from time.Time, to time.Time) (string, string) {
	return from.Format(dayLayout), to.AddDate(0, 0, -1).Format(dayLayout)
}

var dayLayouts = []string{
	dayLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	time.RFC3339Nano,
}

// parseDay accepts the date shapes found in created_date columns. Rows whose
// date cannot be read are skipped with a warning.
func (s *Store) parseDay(table string, id string, raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return domain.Day(t), true
		}
	}
	s.log.Warn().Str("table", table).Str("id", id).Str("created_date", raw).Msg("skipping row with unreadable date")
	return time.Time{}, false
}

// EnsureSchema creates the tables read by the store when they are missing.
// The column types are the common subset of the three dialects.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY,
		name VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id VARCHAR(64) PRIMARY KEY,
		password VARCHAR(255) NOT NULL,
		full_name VARCHAR(255) NOT NULL,
		vaitro INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id VARCHAR(64) PRIMARY KEY,
		customer_id INTEGER,
		employee_id VARCHAR(64),
		total_amount DOUBLE PRECISION NOT NULL,
		created_date VARCHAR(32) NOT NULL,
		status VARCHAR(64) DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS invoice_details (
		id INTEGER PRIMARY KEY,
		invoice_id VARCHAR(64),
		product_id INTEGER,
		quantity INTEGER NOT NULL,
		price DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS repair_orders (
		id INTEGER PRIMARY KEY,
		customer_id INTEGER,
		employee_id VARCHAR(64),
		actual_cost DOUBLE PRECISION DEFAULT 0,
		created_date VARCHAR(32) NOT NULL,
		status VARCHAR(64) DEFAULT 'pending'
	)`,
}
