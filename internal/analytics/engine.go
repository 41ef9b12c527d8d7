// Package analytics turns transaction snapshots into bucketed business metrics.
// Everything here is pure computation over records already read from storage;
// records that break an invariant are skipped and reported through the logger.
package analytics

import (
	"time"

	"github.com/rs/zerolog"

	"watchshop/backend/internal/domain"
)

type Engine struct {
	log zerolog.Logger
}

func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "analytics").Logger()}
}

// RevenueRecords are the sales and repairs of one period that passed
// validation. Dates are truncated to the calendar day they were recorded on.
type RevenueRecords struct {
	Period  domain.PeriodSelector
	Sales   []domain.SaleTransaction
	Repairs []domain.RepairTransaction
}

// PrepareRevenue validates a raw snapshot once. Each anomaly is logged here and
// nowhere else, so the records can feed several reports.
func (e *Engine) PrepareRevenue(period domain.PeriodSelector, sales []domain.SaleTransaction, repairs []domain.RepairTransaction) RevenueRecords {
	records := RevenueRecords{
		Period:  period,
		Sales:   make([]domain.SaleTransaction, 0, len(sales)),
		Repairs: make([]domain.RepairTransaction, 0, len(repairs)),
	}
	for _, sale := range sales {
		sale.OccurredOn = domain.Day(sale.OccurredOn)
		if e.validSale(period, sale) {
			records.Sales = append(records.Sales, sale)
		}
	}
	for _, repair := range repairs {
		repair.OccurredOn = domain.Day(repair.OccurredOn)
		if e.validRepair(period, repair) {
			records.Repairs = append(records.Repairs, repair)
		}
	}
	return records
}

func (e *Engine) validSale(period domain.PeriodSelector, sale domain.SaleTransaction) bool {
	if sale.Amount.IsNegative() {
		e.anomaly("sale", sale.ID, sale.OccurredOn, "negative amount")
		return false
	}
	if !period.Contains(sale.OccurredOn) {
		e.anomaly("sale", sale.ID, sale.OccurredOn, "date outside requested period")
		return false
	}
	return true
}

func (e *Engine) validRepair(period domain.PeriodSelector, repair domain.RepairTransaction) bool {
	if repair.Cost.IsNegative() {
		e.anomaly("repair", repair.ID, repair.OccurredOn, "negative cost")
		return false
	}
	switch repair.Status {
	case domain.RepairStatusPending, domain.RepairStatusCompleted, domain.RepairStatusCancelled:
	default:
		e.anomaly("repair", repair.ID, repair.OccurredOn, "unknown status "+string(repair.Status))
		return false
	}
	if !period.Contains(repair.OccurredOn) {
		e.anomaly("repair", repair.ID, repair.OccurredOn, "date outside requested period")
		return false
	}
	return true
}

func (e *Engine) anomaly(kind string, id string, day time.Time, reason string) {
	e.log.Warn().
		Str("record", kind).
		Str("id", id).
		Time("occurred_on", day).
		Str("reason", reason).
		Msg("skipping record")
}
