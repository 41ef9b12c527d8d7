package analytics

import (
	"cmp"
	"slices"

	"watchshop/backend/internal/domain"
)

const DefaultTopProductsLimit = 5

// TopProducts sums sold quantity per product name and ranks by quantity
// descending, then name ascending. At most limit rows are returned.
func (e *Engine) TopProducts(period domain.PeriodSelector, lines []domain.ProductSaleLine, limit int) []domain.ProductRanking {
	if limit < 1 {
		limit = DefaultTopProductsLimit
	}

	byName := make(map[string]int)
	for _, line := range lines {
		line.OccurredOn = domain.Day(line.OccurredOn)
		if line.Quantity < 0 {
			e.anomaly("sale_line", line.SaleTransactionID, line.OccurredOn, "negative quantity")
			continue
		}
		if !period.Contains(line.OccurredOn) {
			e.anomaly("sale_line", line.SaleTransactionID, line.OccurredOn, "date outside requested period")
			continue
		}
		byName[line.ProductName] += line.Quantity
	}

	ranking := make([]domain.ProductRanking, 0, len(byName))
	for name, qty := range byName {
		ranking = append(ranking, domain.ProductRanking{ProductName: name, QuantitySold: qty})
	}
	slices.SortFunc(ranking, func(a, b domain.ProductRanking) int {
		if a.QuantitySold != b.QuantitySold {
			return cmp.Compare(b.QuantitySold, a.QuantitySold)
		}
		return cmp.Compare(a.ProductName, b.ProductName)
	})

	if len(ranking) > limit {
		ranking = ranking[:limit]
	}
	return ranking
}
