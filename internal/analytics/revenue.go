package analytics

import (
	"github.com/shopspring/decimal"

	"watchshop/backend/internal/calendar"
	"watchshop/backend/internal/domain"
)

// SummarizeRevenue totals sales and repairs over the whole period. Repairs count
// towards revenue whatever their status; only CompletedRepairCount looks at it.
func (e *Engine) SummarizeRevenue(records RevenueRecords) domain.RevenueSummary {
	summary := domain.RevenueSummary{
		Period:        records.Period,
		SalesRevenue:  decimal.Zero,
		RepairRevenue: decimal.Zero,
	}

	for _, sale := range records.Sales {
		summary.SalesRevenue = summary.SalesRevenue.Add(sale.Amount)
		summary.SalesCount++
	}

	for _, repair := range records.Repairs {
		summary.RepairRevenue = summary.RepairRevenue.Add(repair.Cost)
		summary.RepairCount++
		if repair.Status == domain.RepairStatusCompleted {
			summary.CompletedRepairCount++
		}
	}

	return summary
}

// RevenueBreakdown sums each stream into the bucket whose range holds the
// record's day. Every bucket is emitted, so empty ones come out as zero.
func (e *Engine) RevenueBreakdown(buckets []calendar.Bucket, records RevenueRecords) []domain.RevenuePoint {
	points := make([]domain.RevenuePoint, len(buckets))
	for i, bucket := range buckets {
		points[i] = domain.RevenuePoint{
			Bucket:        bucket.Key,
			SalesRevenue:  decimal.Zero,
			RepairRevenue: decimal.Zero,
		}
	}

	for _, sale := range records.Sales {
		i, ok := calendar.Locate(buckets, sale.OccurredOn)
		if !ok {
			e.anomaly("sale", sale.ID, sale.OccurredOn, "no bucket for date")
			continue
		}
		points[i].SalesRevenue = points[i].SalesRevenue.Add(sale.Amount)
	}

	for _, repair := range records.Repairs {
		i, ok := calendar.Locate(buckets, repair.OccurredOn)
		if !ok {
			e.anomaly("repair", repair.ID, repair.OccurredOn, "no bucket for date")
			continue
		}
		points[i].RepairRevenue = points[i].RepairRevenue.Add(repair.Cost)
	}
	return points
}
