package sqlstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"watchshop/backend/internal/domain"
)

func TestPostgresReadsInvoicesAndRepairs(t *testing.T) {
	databaseURL := os.Getenv("WATCHSHOP_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set WATCHSHOP_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, "postgres", databaseURL, zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	stamp := time.Now().UnixNano()
	invoiceID := fmt.Sprintf("HD-IT-%d", stamp)
	repairID := stamp % 1_000_000_000
	customerID := stamp % 1_000_000_007

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, invoiceID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM repair_orders WHERE id = $1`, repairID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, customerID)
	})

	if _, err := s.db.ExecContext(ctx, `INSERT INTO customers (id, name) VALUES ($1, 'Khach IT')`, customerID); err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (id, customer_id, total_amount, created_date)
		VALUES ($1, $2, 1250000, '1999-07-04')
	`, invoiceID, customerID); err != nil {
		t.Fatalf("insert invoice: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO repair_orders (id, customer_id, actual_cost, created_date, status)
		VALUES ($1, $2, 500000, '1999-07-05', 'Hoàn thành')
	`, repairID, customerID); err != nil {
		t.Fatalf("insert repair: %v", err)
	}

	from, to := domain.PeriodSelector{Year: 1999, Month: 7}.Range()

	sales, err := s.ListSales(ctx, from, to)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	found := false
	for _, sale := range sales {
		if sale.ID == invoiceID {
			found = true
			if !sale.Amount.Equal(decimal.NewFromInt(1250000)) || sale.CustomerID == nil || *sale.CustomerID != customerID {
				t.Fatalf("unexpected invoice %+v", sale)
			}
		}
	}
	if !found {
		t.Fatalf("invoice %s not returned", invoiceID)
	}

	repairs, err := s.ListRepairs(ctx, from, to)
	if err != nil {
		t.Fatalf("list repairs: %v", err)
	}
	found = false
	for _, repair := range repairs {
		if repair.ID == fmt.Sprint(repairID) {
			found = true
			if repair.Status != domain.RepairStatusCompleted {
				t.Fatalf("expected completed repair, got %s", repair.Status)
			}
		}
	}
	if !found {
		t.Fatalf("repair %d not returned", repairID)
	}
}
