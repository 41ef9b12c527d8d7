package memory

import (
	"context"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"watchshop/backend/internal/domain"
	"watchshop/backend/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	customers map[int64]domain.Customer
	sales     []domain.SaleTransaction
	lines     []domain.ProductSaleLine
	repairs   []domain.RepairTransaction
	accounts  map[string]domain.Account
}

var _ store.Reader = (*Store)(nil)

func New() *Store {
	return &Store{
		customers: make(map[int64]domain.Customer),
		accounts:  make(map[string]domain.Account),
	}
}

// seedAccounts builds the demo staff logins. Passwords come from
// SEED_MANAGER_PASSWORD and SEED_EMPLOYEE_PASSWORD; without them dev
// defaults are used and a warning is logged.
func seedAccounts() []domain.Account {
	managerPwd := envOr("SEED_MANAGER_PASSWORD", "manager123")
	employeePwd := envOr("SEED_EMPLOYEE_PASSWORD", "employee123")
	if os.Getenv("SEED_MANAGER_PASSWORD") == "" || os.Getenv("SEED_EMPLOYEE_PASSWORD") == "" {
		log.Warn().Str("component", "memory-store").Msg("using default dev credentials, set SEED_MANAGER_PASSWORD and SEED_EMPLOYEE_PASSWORD to override")
	}

	accounts := make([]domain.Account, 0, 2)
	for _, a := range []struct {
		username string
		password string
		fullName string
		role     string
	}{
		{"NV001", managerPwd, "Quản lý cửa hàng", domain.RoleManager},
		{"NV002", employeePwd, "Nhân viên bán hàng", domain.RoleEmployee},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("username", a.username).Msg("failed to hash seed password")
		}
		accounts = append(accounts, domain.Account{
			Username:     a.username,
			PasswordHash: string(hash),
			FullName:     a.fullName,
			Role:         a.role,
		})
	}
	return accounts
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type seedLine struct {
	productID int64
	qty       int
}

// NewSeeded returns a store holding a small demo shop: a handful of customers,
// invoices spread over 2024 and early 2025, walk-in sales and repair orders.
func NewSeeded() *Store {
	s := New()

	for _, c := range []domain.Customer{
		{ID: 1, Name: "Nguyễn Văn An"},
		{ID: 2, Name: "Trần Thị Bình"},
		{ID: 3, Name: "Lê Hoàng Cường"},
		{ID: 4, Name: "Phạm Minh Dũng"},
		{ID: 5, Name: "Võ Thị Em"},
		{ID: 6, Name: "Đặng Quốc Phong"},
	} {
		s.AddCustomer(c)
	}

	products := map[int64]struct {
		name  string
		price int64
	}{
		1: {"Rolex Submariner", 250000000},
		2: {"Omega Speedmaster", 150000000},
		3: {"Casio G-Shock GA-2100", 3500000},
		4: {"Seiko 5 Sports", 7200000},
		5: {"Tissot PRX", 16500000},
		6: {"Citizen Eco-Drive", 9800000},
	}

	invoices := []struct {
		id       string
		customer int64
		day      time.Time
		lines    []seedLine
	}{
		{"HD001", 1, domain.Date(2024, time.January, 15), []seedLine{{3, 1}}},
		{"HD002", 2, domain.Date(2024, time.January, 22), []seedLine{{4, 1}, {3, 1}}},
		{"HD003", 0, domain.Date(2024, time.February, 3), []seedLine{{3, 2}}},
		{"HD004", 1, domain.Date(2024, time.March, 10), []seedLine{{5, 1}}},
		{"HD005", 3, domain.Date(2024, time.March, 10), []seedLine{{6, 1}}},
		{"HD006", 4, domain.Date(2024, time.May, 5), []seedLine{{2, 1}}},
		{"HD007", 2, domain.Date(2024, time.June, 18), []seedLine{{4, 2}}},
		{"HD008", 0, domain.Date(2024, time.August, 30), []seedLine{{3, 1}, {6, 1}}},
		{"HD009", 5, domain.Date(2024, time.November, 11), []seedLine{{1, 1}}},
		{"HD010", 3, domain.Date(2024, time.December, 24), []seedLine{{5, 1}, {3, 1}}},
		{"HD011", 6, domain.Date(2025, time.January, 8), []seedLine{{4, 1}}},
		{"HD012", 1, domain.Date(2025, time.February, 14), []seedLine{{2, 1}}},
	}
	for _, inv := range invoices {
		total := decimal.Zero
		lines := make([]domain.ProductSaleLine, 0, len(inv.lines))
		for _, l := range inv.lines {
			p := products[l.productID]
			price := decimal.NewFromInt(p.price)
			total = total.Add(price.Mul(decimal.NewFromInt(int64(l.qty))))
			lines = append(lines, domain.ProductSaleLine{
				ProductID:   l.productID,
				ProductName: p.name,
				Quantity:    l.qty,
				UnitPrice:   price,
			})
		}
		sale := domain.SaleTransaction{ID: inv.id, Amount: total, OccurredOn: inv.day}
		if inv.customer != 0 {
			id := inv.customer
			sale.CustomerID = &id
		}
		s.AddSale(sale, lines...)
	}

	repairs := []struct {
		customer int64
		cost     int64
		status   domain.RepairStatus
		day      time.Time
	}{
		{1, 500000, domain.RepairStatusCompleted, domain.Date(2024, time.February, 5)},
		{3, 1200000, domain.RepairStatusCompleted, domain.Date(2024, time.April, 2)},
		{0, 0, domain.RepairStatusPending, domain.Date(2024, time.December, 27)},
		{4, 350000, domain.RepairStatusCancelled, domain.Date(2024, time.July, 19)},
		{2, 800000, domain.RepairStatusCompleted, domain.Date(2025, time.January, 20)},
	}
	for i, r := range repairs {
		repair := domain.RepairTransaction{
			ID:         strconv.Itoa(i + 1),
			Cost:       decimal.NewFromInt(r.cost),
			Status:     r.status,
			OccurredOn: r.day,
		}
		if r.customer != 0 {
			id := r.customer
			repair.CustomerID = &id
		}
		s.AddRepair(repair)
	}

	for _, a := range seedAccounts() {
		s.AddAccount(a)
	}
	return s
}

func (s *Store) AddCustomer(c domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

// AddSale records a sale and its product lines. Lines inherit the sale's id and date.
func (s *Store) AddSale(sale domain.SaleTransaction, lines ...domain.ProductSaleLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, sale)
	for _, line := range lines {
		line.SaleTransactionID = sale.ID
		line.OccurredOn = sale.OccurredOn
		s.lines = append(s.lines, line)
	}
}

func (s *Store) AddRepair(repair domain.RepairTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repairs = append(s.repairs, repair)
}

func (s *Store) AddAccount(account domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.Username] = account
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time) ([]domain.SaleTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SaleTransaction, 0, len(s.sales))
	for _, sale := range s.sales {
		if inRange(sale.OccurredOn, from, to) {
			out = append(out, sale)
		}
	}
	sortByDay(out, func(sale domain.SaleTransaction) time.Time { return sale.OccurredOn })
	return out, nil
}

func (s *Store) ListRepairs(ctx context.Context, from time.Time, to time.Time) ([]domain.RepairTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RepairTransaction, 0, len(s.repairs))
	for _, repair := range s.repairs {
		if inRange(repair.OccurredOn, from, to) {
			out = append(out, repair)
		}
	}
	sortByDay(out, func(repair domain.RepairTransaction) time.Time { return repair.OccurredOn })
	return out, nil
}

func (s *Store) ListCustomerSales(ctx context.Context) ([]domain.SaleTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SaleTransaction, 0, len(s.sales))
	for _, sale := range s.sales {
		if !sale.WalkIn() {
			out = append(out, sale)
		}
	}
	sortByDay(out, func(sale domain.SaleTransaction) time.Time { return sale.OccurredOn })
	return out, nil
}

func (s *Store) CountCustomers(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.customers), nil
}

func (s *Store) ListSaleLines(ctx context.Context, from time.Time, to time.Time) ([]domain.ProductSaleLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ProductSaleLine, 0, len(s.lines))
	for _, line := range s.lines {
		if inRange(line.OccurredOn, from, to) {
			out = append(out, line)
		}
	}
	sortByDay(out, func(line domain.ProductSaleLine) time.Time { return line.OccurredOn })
	return out, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, account)
	}
	slices.SortFunc(out, func(a, b domain.Account) int {
		return strings.Compare(a.Username, b.Username)
	})
	return out, nil
}

func inRange(day time.Time, from time.Time, to time.Time) bool {
	return !day.Before(from) && day.Before(to)
}

func sortByDay[T any](items []T, day func(T) time.Time) {
	slices.SortStableFunc(items, func(a, b T) int {
		return day(a).Compare(day(b))
	})
}
