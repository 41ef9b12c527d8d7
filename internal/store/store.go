package store

import (
	"context"
	"errors"
	"time"

	"watchshop/backend/internal/domain"
)

var (
	ErrUnsupportedDriver  = errors.New("unsupported database driver")
	ErrMissingDatabaseURL = errors.New("database url is empty")
)

// Reader is the read-only view of the shop data the report engine consumes.
// Date ranges are half-open: from is inclusive, to is exclusive.
type Reader interface {
	ListSales(ctx context.Context, from time.Time, to time.Time) ([]domain.SaleTransaction, error)
	ListRepairs(ctx context.Context, from time.Time, to time.Time) ([]domain.RepairTransaction, error)
	// ListCustomerSales returns every sale attached to a customer, over all time.
	ListCustomerSales(ctx context.Context) ([]domain.SaleTransaction, error)
	CountCustomers(ctx context.Context) (int, error)
	ListSaleLines(ctx context.Context, from time.Time, to time.Time) ([]domain.ProductSaleLine, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
}
