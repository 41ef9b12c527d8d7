// Package calendar maps report periods onto dense, ordered time buckets.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"watchshop/backend/internal/domain"
)

var ErrMonthOutOfRange = errors.New("month must be between 1 and 12")

type Granularity string

const (
	MonthOfYear Granularity = "month"
	DayOfMonth  Granularity = "day"
)

// Bucket is one slot of a dense series covering the half-open range [Start, End).
type Bucket struct {
	Key   string
	Start time.Time
	End   time.Time
}

func (b Bucket) Contains(day time.Time) bool {
	return !day.Before(b.Start) && day.Before(b.End)
}

// MonthlyBuckets returns the twelve buckets "01".."12" of year.
func MonthlyBuckets(year int) []Bucket {
	buckets := make([]Bucket, 0, 12)
	for m := time.January; m <= time.December; m++ {
		start := domain.Date(year, m, 1)
		buckets = append(buckets, Bucket{
			Key:   monthKey(m),
			Start: start,
			End:   start.AddDate(0, 1, 0),
		})
	}
	return buckets
}

// DailyBuckets returns one bucket per calendar day of month in year.
func DailyBuckets(month int, year int) ([]Bucket, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: got %d", ErrMonthOutOfRange, month)
	}
	days := DaysIn(time.Month(month), year)
	buckets := make([]Bucket, 0, days)
	for d := 1; d <= days; d++ {
		start := domain.Date(year, time.Month(month), d)
		buckets = append(buckets, Bucket{
			Key:   dayKey(d),
			Start: start,
			End:   start.AddDate(0, 0, 1),
		})
	}
	return buckets, nil
}

// DaysIn is leap-year aware: day 0 of the next month normalises to the last day of month.
func DaysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func GranularityOf(period domain.PeriodSelector) Granularity {
	if period.WholeYear() {
		return MonthOfYear
	}
	return DayOfMonth
}

// ForPeriod picks month-of-year buckets for a whole year and day-of-month buckets otherwise.
func ForPeriod(period domain.PeriodSelector) ([]Bucket, error) {
	if period.WholeYear() {
		return MonthlyBuckets(period.Year), nil
	}
	return DailyBuckets(period.Month, period.Year)
}

// Locate returns the index of the bucket holding day. Buckets must be ordered
// and contiguous, as built by ForPeriod.
func Locate(buckets []Bucket, day time.Time) (int, bool) {
	i := sort.Search(len(buckets), func(i int) bool {
		return day.Before(buckets[i].End)
	})
	if i < len(buckets) && buckets[i].Contains(day) {
		return i, true
	}
	return -1, false
}

func monthKey(m time.Month) string {
	return fmt.Sprintf("%02d", int(m))
}

func dayKey(d int) string {
	return fmt.Sprintf("%02d", d)
}
