package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const AllMonths = "All"

type RepairStatus string

const (
	RepairStatusPending   RepairStatus = "pending"
	RepairStatusCompleted RepairStatus = "completed"
	RepairStatusCancelled RepairStatus = "cancelled"
)

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
)

type SaleTransaction struct {
	ID         string          `json:"id"`
	CustomerID *int64          `json:"customer_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredOn time.Time       `json:"occurred_on"`
}

// WalkIn reports whether the sale has no customer record attached.
func (s SaleTransaction) WalkIn() bool {
	return s.CustomerID == nil
}

type RepairTransaction struct {
	ID         string          `json:"id"`
	CustomerID *int64          `json:"customer_id,omitempty"`
	Cost       decimal.Decimal `json:"cost"`
	Status     RepairStatus    `json:"status"`
	OccurredOn time.Time       `json:"occurred_on"`
}

type Customer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ProductSaleLine struct {
	ProductID         int64           `json:"product_id"`
	ProductName       string          `json:"product_name"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	SaleTransactionID string          `json:"sale_transaction_id"`
	OccurredOn        time.Time       `json:"occurred_on"`
}

// PeriodSelector picks the reporting window. Month 0 selects the whole year.
type PeriodSelector struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (p PeriodSelector) WholeYear() bool {
	return p.Month == 0
}

// Range returns the half-open date range [from, to) covered by the period.
func (p PeriodSelector) Range() (time.Time, time.Time) {
	if p.WholeYear() {
		from := Date(p.Year, time.January, 1)
		return from, from.AddDate(1, 0, 0)
	}
	from := Date(p.Year, time.Month(p.Month), 1)
	return from, from.AddDate(0, 1, 0)
}

func (p PeriodSelector) Contains(day time.Time) bool {
	from, to := p.Range()
	return !day.Before(from) && day.Before(to)
}

func (p PeriodSelector) String() string {
	if p.WholeYear() {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%02d/%04d", p.Month, p.Year)
}

type RevenueSummary struct {
	Period               PeriodSelector  `json:"period"`
	SalesRevenue         decimal.Decimal `json:"sales_revenue"`
	SalesCount           int             `json:"sales_count"`
	RepairRevenue        decimal.Decimal `json:"repair_revenue"`
	RepairCount          int             `json:"repair_count"`
	CompletedRepairCount int             `json:"completed_repair_count"`
}

type RevenuePoint struct {
	Bucket        string          `json:"bucket"`
	SalesRevenue  decimal.Decimal `json:"sales_revenue"`
	RepairRevenue decimal.Decimal `json:"repair_revenue"`
}

type CustomerSummary struct {
	Period          PeriodSelector `json:"period"`
	TotalCustomers  int            `json:"total_customers"`
	RepeatCustomers int            `json:"repeat_customers"`
	NewCustomers    int            `json:"new_customers"`
}

type CustomerTrendPoint struct {
	Bucket          string `json:"bucket"`
	NewCustomers    int    `json:"new_customer_count"`
	RepeatCustomers int    `json:"repeat_customer_count"`
}

type ProductRanking struct {
	ProductName  string `json:"product_name"`
	QuantitySold int    `json:"quantity_sold"`
}

type Dashboard struct {
	Period           PeriodSelector       `json:"period"`
	Granularity      string               `json:"granularity"`
	Revenue          RevenueSummary       `json:"revenue"`
	Customers        CustomerSummary      `json:"customers"`
	RevenueBreakdown []RevenuePoint       `json:"revenue_breakdown"`
	CustomerTrends   []CustomerTrendPoint `json:"customer_trends"`
	TopProducts      []ProductRanking     `json:"top_products"`
	GeneratedAt      time.Time            `json:"generated_at"`
}

// Account is a staff login as read from the employees table.
type Account struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
}

type Actor struct {
	Username string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// Date returns the calendar date as midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Day truncates t to its calendar date, keeping the wall-clock date of t's location.
func Day(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// ParseRepairStatus maps a stored status label onto a RepairStatus. Labels are
// accepted in English and in the shop's Vietnamese UI wording; an empty label is
// the schema default, pending.
func ParseRepairStatus(raw string) (RepairStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "pending", "chờ xử lý":
		return RepairStatusPending, true
	case "completed", "hoàn thành":
		return RepairStatusCompleted, true
	case "cancelled", "canceled", "đã hủy":
		return RepairStatusCancelled, true
	}
	return RepairStatus(raw), false
}
