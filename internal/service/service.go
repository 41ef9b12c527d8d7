package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"watchshop/backend/internal/analytics"
	"watchshop/backend/internal/calendar"
	"watchshop/backend/internal/domain"
	"watchshop/backend/internal/store"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
)

const (
	minYear = 1
	maxYear = 9999

	// allMonthsLabel is the whole-year choice shown by the shop's month picker.
	allMonthsLabel = "Tất cả"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service is the report facade. Every operation validates its period first,
// then reads a fresh snapshot from the reader and recomputes from scratch.
type Service struct {
	reader       store.Reader
	baseLog      zerolog.Logger
	log          zerolog.Logger
	defaultLimit int
	now          func() time.Time
}

func New(reader store.Reader, log zerolog.Logger, defaultLimit int) *Service {
	if defaultLimit < 1 {
		defaultLimit = analytics.DefaultTopProductsLimit
	}
	return &Service{
		reader:       reader,
		baseLog:      log,
		log:          log.With().Str("component", "reports").Logger(),
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// withActor tags log with the requesting staff member, when ctx carries one.
func withActor(ctx context.Context, log zerolog.Logger) zerolog.Logger {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return log
	}
	return log.With().Str("actor", actor.Username).Str("role", actor.Role).Logger()
}

// engine returns an analytics engine whose anomaly warnings name the actor.
func (s *Service) engine(ctx context.Context) *analytics.Engine {
	return analytics.NewEngine(withActor(ctx, s.baseLog))
}

// ParsePeriod reads a year and a month given as text. The month may be 1..12,
// or "All"/"Tất cả" (or empty) for the whole year.
func ParsePeriod(year string, month string) (domain.PeriodSelector, error) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return domain.PeriodSelector{}, fmt.Errorf("%w: year %q is not a number", ErrValidation, year)
	}

	period := domain.PeriodSelector{Year: y}
	month = strings.TrimSpace(month)
	if month != "" && !strings.EqualFold(month, domain.AllMonths) && month != allMonthsLabel {
		m, err := strconv.Atoi(month)
		if err != nil {
			return domain.PeriodSelector{}, fmt.Errorf("%w: month %q must be 1-12 or %s", ErrValidation, month, domain.AllMonths)
		}
		if m == 0 {
			return domain.PeriodSelector{}, fmt.Errorf("%w: month must be between 1 and 12", ErrValidation)
		}
		period.Month = m
	}

	if err := ValidatePeriod(period); err != nil {
		return domain.PeriodSelector{}, err
	}
	return period, nil
}

// ValidatePeriod rejects years outside 1..9999 and months outside 0..12,
// where 0 stands for the whole year.
func ValidatePeriod(period domain.PeriodSelector) error {
	if period.Year < minYear || period.Year > maxYear {
		return fmt.Errorf("%w: year must be between %d and %d", ErrValidation, minYear, maxYear)
	}
	if period.Month < 0 || period.Month > 12 {
		return fmt.Errorf("%w: month must be between 1 and 12", ErrValidation)
	}
	return nil
}

func (s *Service) normalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return s.defaultLimit, nil
	}
	if limit < 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrValidation)
	}
	return limit, nil
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func (s *Service) RevenueSummary(ctx context.Context, period domain.PeriodSelector) (domain.RevenueSummary, error) {
	if err := ValidatePeriod(period); err != nil {
		return domain.RevenueSummary{}, err
	}
	sales, repairs, err := s.readRevenue(ctx, period)
	if err != nil {
		return domain.RevenueSummary{}, err
	}
	engine := s.engine(ctx)
	return engine.SummarizeRevenue(engine.PrepareRevenue(period, sales, repairs)), nil
}

func (s *Service) RevenueBreakdown(ctx context.Context, period domain.PeriodSelector) ([]domain.RevenuePoint, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}
	buckets, err := calendar.ForPeriod(period)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	sales, repairs, err := s.readRevenue(ctx, period)
	if err != nil {
		return nil, err
	}
	engine := s.engine(ctx)
	return engine.RevenueBreakdown(buckets, engine.PrepareRevenue(period, sales, repairs)), nil
}

// MonthlyRevenueBreakdown is the twelve-bucket breakdown of a whole year.
func (s *Service) MonthlyRevenueBreakdown(ctx context.Context, year int) ([]domain.RevenuePoint, error) {
	return s.RevenueBreakdown(ctx, domain.PeriodSelector{Year: year})
}

func (s *Service) CustomerSummary(ctx context.Context, period domain.PeriodSelector) (domain.CustomerSummary, error) {
	if err := ValidatePeriod(period); err != nil {
		return domain.CustomerSummary{}, err
	}
	engine := s.engine(ctx)
	total, classifier, err := s.readCustomers(ctx, engine)
	if err != nil {
		return domain.CustomerSummary{}, err
	}
	return engine.SummarizeCustomers(period, total, classifier), nil
}

func (s *Service) CustomerTrends(ctx context.Context, period domain.PeriodSelector) ([]domain.CustomerTrendPoint, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}
	buckets, err := calendar.ForPeriod(period)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	history, err := s.reader.ListCustomerSales(ctx)
	if err != nil {
		return nil, storageError("list customer sales", err)
	}
	engine := s.engine(ctx)
	return engine.CustomerTrends(buckets, engine.NewClassifier(history)), nil
}

// MonthlyCustomerTrends is the twelve-bucket customer trend of a whole year.
func (s *Service) MonthlyCustomerTrends(ctx context.Context, year int) ([]domain.CustomerTrendPoint, error) {
	return s.CustomerTrends(ctx, domain.PeriodSelector{Year: year})
}

// TopProducts ranks products by quantity sold. A zero limit means the
// configured default; negative limits are rejected.
func (s *Service) TopProducts(ctx context.Context, period domain.PeriodSelector, limit int) ([]domain.ProductRanking, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}
	limit, err := s.normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	from, to := period.Range()
	lines, err := s.reader.ListSaleLines(ctx, from, to)
	if err != nil {
		return nil, storageError("list sale lines", err)
	}
	return s.engine(ctx).TopProducts(period, lines, limit), nil
}

// Dashboard builds every report for one period. Each source is read once and
// shared between the reports that need it; separate sources are read one after
// another without a common snapshot.
func (s *Service) Dashboard(ctx context.Context, period domain.PeriodSelector, limit int) (domain.Dashboard, error) {
	if err := ValidatePeriod(period); err != nil {
		return domain.Dashboard{}, err
	}
	limit, err := s.normalizeLimit(limit)
	if err != nil {
		return domain.Dashboard{}, err
	}
	buckets, err := calendar.ForPeriod(period)
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	sales, repairs, err := s.readRevenue(ctx, period)
	if err != nil {
		return domain.Dashboard{}, err
	}
	engine := s.engine(ctx)
	total, classifier, err := s.readCustomers(ctx, engine)
	if err != nil {
		return domain.Dashboard{}, err
	}
	from, to := period.Range()
	lines, err := s.reader.ListSaleLines(ctx, from, to)
	if err != nil {
		return domain.Dashboard{}, storageError("list sale lines", err)
	}

	revenue := engine.PrepareRevenue(period, sales, repairs)
	dashboard := domain.Dashboard{
		Period:           period,
		Granularity:      string(calendar.GranularityOf(period)),
		Revenue:          engine.SummarizeRevenue(revenue),
		Customers:        engine.SummarizeCustomers(period, total, classifier),
		RevenueBreakdown: engine.RevenueBreakdown(buckets, revenue),
		CustomerTrends:   engine.CustomerTrends(buckets, classifier),
		TopProducts:      engine.TopProducts(period, lines, limit),
		GeneratedAt:      s.now().UTC(),
	}
	log := withActor(ctx, s.log)
	log.Debug().
		Str("period", period.String()).
		Int("sales", len(sales)).
		Int("repairs", len(repairs)).
		Int("sale_lines", len(lines)).
		Msg("dashboard built")
	return dashboard, nil
}

func (s *Service) readRevenue(ctx context.Context, period domain.PeriodSelector) ([]domain.SaleTransaction, []domain.RepairTransaction, error) {
	from, to := period.Range()
	sales, err := s.reader.ListSales(ctx, from, to)
	if err != nil {
		return nil, nil, storageError("list sales", err)
	}
	repairs, err := s.reader.ListRepairs(ctx, from, to)
	if err != nil {
		return nil, nil, storageError("list repairs", err)
	}
	return sales, repairs, nil
}

func (s *Service) readCustomers(ctx context.Context, engine *analytics.Engine) (int, *analytics.Classifier, error) {
	total, err := s.reader.CountCustomers(ctx)
	if err != nil {
		return 0, nil, storageError("count customers", err)
	}
	history, err := s.reader.ListCustomerSales(ctx)
	if err != nil {
		return 0, nil, storageError("list customer sales", err)
	}
	return total, engine.NewClassifier(history), nil
}
