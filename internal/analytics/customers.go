package analytics

import (
	"slices"
	"sort"
	"time"

	"watchshop/backend/internal/calendar"
	"watchshop/backend/internal/domain"
)

// CustomerProfile holds the whole-history facts of one customer.
type CustomerProfile struct {
	CustomerID       int64
	FirstTransaction time.Time
	LifetimeCount    int
	days             []time.Time
}

func (p *CustomerProfile) transactedIn(bucket calendar.Bucket) bool {
	i := sort.Search(len(p.days), func(i int) bool {
		return !p.days[i].Before(bucket.Start)
	})
	return i < len(p.days) && p.days[i].Before(bucket.End)
}

type Classification struct {
	IsNew    bool
	IsRepeat bool
}

// Classifier answers new/repeat questions from profiles built once per report.
//
// A customer is new in the bucket holding their first-ever purchase. They are
// repeat in a bucket when they bought in it, have more than one purchase in
// total, and the bucket lies strictly after the bucket of their first purchase.
// The first-purchase bucket is therefore only ever "new".
type Classifier struct {
	profiles map[int64]*CustomerProfile
	ids      []int64
}

// NewClassifier builds profiles from the complete, unfiltered sales history.
// Walk-in sales carry no customer and never count.
func (e *Engine) NewClassifier(history []domain.SaleTransaction) *Classifier {
	profiles := make(map[int64]*CustomerProfile)
	for _, sale := range history {
		if sale.WalkIn() {
			continue
		}
		sale.OccurredOn = domain.Day(sale.OccurredOn)
		if sale.Amount.IsNegative() {
			e.anomaly("sale", sale.ID, sale.OccurredOn, "negative amount")
			continue
		}
		id := *sale.CustomerID
		profile := profiles[id]
		if profile == nil {
			profile = &CustomerProfile{CustomerID: id, FirstTransaction: sale.OccurredOn}
			profiles[id] = profile
		}
		profile.LifetimeCount++
		profile.days = append(profile.days, sale.OccurredOn)
		if sale.OccurredOn.Before(profile.FirstTransaction) {
			profile.FirstTransaction = sale.OccurredOn
		}
	}

	ids := make([]int64, 0, len(profiles))
	for id, profile := range profiles {
		slices.SortFunc(profile.days, func(a, b time.Time) int {
			return a.Compare(b)
		})
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return &Classifier{profiles: profiles, ids: ids}
}

func (c *Classifier) Profile(customerID int64) (CustomerProfile, bool) {
	profile, ok := c.profiles[customerID]
	if !ok {
		return CustomerProfile{}, false
	}
	return *profile, true
}

// CustomerIDs lists classified customers in ascending id order.
func (c *Classifier) CustomerIDs() []int64 {
	return slices.Clone(c.ids)
}

func (c *Classifier) Classify(customerID int64, bucket calendar.Bucket) Classification {
	profile, ok := c.profiles[customerID]
	if !ok {
		return Classification{}
	}
	return Classification{
		IsNew: bucket.Contains(profile.FirstTransaction),
		IsRepeat: profile.LifetimeCount > 1 &&
			profile.FirstTransaction.Before(bucket.Start) &&
			profile.transactedIn(bucket),
	}
}

// SummarizeCustomers reports the record count, customers with more than one
// lifetime purchase, and customers whose first purchase falls inside period.
func (e *Engine) SummarizeCustomers(period domain.PeriodSelector, totalCustomers int, classifier *Classifier) domain.CustomerSummary {
	summary := domain.CustomerSummary{
		Period:         period,
		TotalCustomers: totalCustomers,
	}
	for _, id := range classifier.ids {
		profile := classifier.profiles[id]
		if profile.LifetimeCount > 1 {
			summary.RepeatCustomers++
		}
		if period.Contains(profile.FirstTransaction) {
			summary.NewCustomers++
		}
	}
	return summary
}

// CustomerTrends classifies every customer against every bucket. A customer is
// counted as repeat once per bucket they buy in.
func (e *Engine) CustomerTrends(buckets []calendar.Bucket, classifier *Classifier) []domain.CustomerTrendPoint {
	points := make([]domain.CustomerTrendPoint, len(buckets))
	for i, bucket := range buckets {
		points[i].Bucket = bucket.Key
	}
	for _, id := range classifier.ids {
		for i, bucket := range buckets {
			class := classifier.Classify(id, bucket)
			if class.IsNew {
				points[i].NewCustomers++
			}
			if class.IsRepeat {
				points[i].RepeatCustomers++
			}
		}
	}
	return points
}
