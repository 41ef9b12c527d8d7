package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"watchshop/backend/internal/domain"
)

func TestListSalesHonoursHalfOpenRange(t *testing.T) {
	s := New()
	s.AddSale(domain.SaleTransaction{ID: "HD002", Amount: decimal.NewFromInt(20), OccurredOn: domain.Date(2024, time.March, 1)})
	s.AddSale(domain.SaleTransaction{ID: "HD001", Amount: decimal.NewFromInt(10), OccurredOn: domain.Date(2024, time.February, 29)})
	s.AddSale(domain.SaleTransaction{ID: "HD000", Amount: decimal.NewFromInt(5), OccurredOn: domain.Date(2024, time.January, 31)})

	sales, err := s.ListSales(context.Background(), domain.Date(2024, time.February, 1), domain.Date(2024, time.March, 1))
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 || sales[0].ID != "HD001" {
		t.Fatalf("expected only HD001, got %+v", sales)
	}
}

func TestSaleLinesInheritSaleIDAndDate(t *testing.T) {
	s := New()
	day := domain.Date(2024, time.April, 9)
	s.AddSale(
		domain.SaleTransaction{ID: "HD009", Amount: decimal.NewFromInt(300), OccurredOn: day},
		domain.ProductSaleLine{ProductID: 1, ProductName: "Seiko 5 Sports", Quantity: 2, UnitPrice: decimal.NewFromInt(150)},
	)

	lines, err := s.ListSaleLines(context.Background(), day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list lines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].SaleTransactionID != "HD009" || !lines[0].OccurredOn.Equal(day) {
		t.Fatalf("line not linked to its sale: %+v", lines[0])
	}
}

func TestListCustomerSalesSkipsWalkIns(t *testing.T) {
	s := New()
	id := int64(1)
	s.AddSale(domain.SaleTransaction{ID: "HD001", CustomerID: &id, Amount: decimal.NewFromInt(1), OccurredOn: domain.Date(2020, time.May, 1)})
	s.AddSale(domain.SaleTransaction{ID: "HD002", Amount: decimal.NewFromInt(1), OccurredOn: domain.Date(2024, time.May, 1)})

	sales, err := s.ListCustomerSales(context.Background())
	if err != nil {
		t.Fatalf("list customer sales: %v", err)
	}
	if len(sales) != 1 || sales[0].ID != "HD001" {
		t.Fatalf("expected only the customer sale, got %+v", sales)
	}
}

func TestSeededStoreHasDemoData(t *testing.T) {
	t.Setenv("SEED_MANAGER_PASSWORD", "manager-secret")
	t.Setenv("SEED_EMPLOYEE_PASSWORD", "employee-secret")
	s := NewSeeded()
	ctx := context.Background()

	count, err := s.CountCustomers(ctx)
	if err != nil {
		t.Fatalf("count customers: %v", err)
	}
	if count != 6 {
		t.Fatalf("expected 6 seeded customers, got %d", count)
	}

	repairs, err := s.ListRepairs(ctx, domain.Date(2024, time.February, 1), domain.Date(2024, time.March, 1))
	if err != nil {
		t.Fatalf("list repairs: %v", err)
	}
	if len(repairs) != 1 || repairs[0].Status != domain.RepairStatusCompleted || !repairs[0].Cost.Equal(decimal.NewFromInt(500000)) {
		t.Fatalf("unexpected february repairs: %+v", repairs)
	}

	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(accounts) != 2 || accounts[0].Role != domain.RoleManager {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(accounts[0].PasswordHash), []byte("manager-secret")); err != nil {
		t.Fatalf("seed password not applied: %v", err)
	}
}

func TestCancelledContextFailsReads(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.ListSales(ctx, time.Time{}, time.Now()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := s.CountCustomers(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
