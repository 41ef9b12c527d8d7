// Command reportctl prints dashboard reports for one or more years from the
// shop database, or from the seeded demo data when DATABASE_URL is unset.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"watchshop/backend/internal/config"
	"watchshop/backend/internal/domain"
	"watchshop/backend/internal/export"
	"watchshop/backend/internal/logger"
	"watchshop/backend/internal/service"
	"watchshop/backend/internal/store"
	"watchshop/backend/internal/store/memory"
	"watchshop/backend/internal/store/sqlstore"
)

const maxYearSpan = 50

type options struct {
	year        int
	toYear      int
	month       string
	limit       int
	format      string
	driver      string
	databaseURL string
}

func main() {
	cfg := config.Load()
	// Reports go to stdout, so logs and the progress bar stay on stderr.
	log := logger.NewWithWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(logger.ParseLevel(cfg.LogLevel))
	zlog.Logger = log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Error().Err(err).Msg("reportctl failed")
		os.Exit(1)
	}
}

func parseArgs(cfg config.Config, args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("reportctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.IntVar(&opts.year, "year", 0, "first report year (required)")
	fs.IntVar(&opts.toYear, "to-year", 0, "last report year, inclusive (defaults to -year)")
	fs.StringVar(&opts.month, "month", domain.AllMonths, "month 1-12, or All for the whole year")
	fs.IntVar(&opts.limit, "limit", cfg.TopProductsLimit, "number of top products")
	fs.StringVar(&opts.format, "format", "table", "output format: table or csv")
	fs.StringVar(&opts.driver, "driver", cfg.DatabaseDriver, "database driver: postgres, sqlite or mysql")
	fs.StringVar(&opts.databaseURL, "database-url", cfg.DatabaseURL, "database URL; demo data is used when empty")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.year == 0 {
		return options{}, fmt.Errorf("-year is required")
	}
	if opts.toYear == 0 {
		opts.toYear = opts.year
	}
	if opts.toYear < opts.year {
		return options{}, fmt.Errorf("-to-year %d is before -year %d", opts.toYear, opts.year)
	}
	if opts.toYear-opts.year >= maxYearSpan {
		return options{}, fmt.Errorf("at most %d years per run", maxYearSpan)
	}
	opts.format = strings.ToLower(strings.TrimSpace(opts.format))
	if opts.format != "table" && opts.format != "csv" {
		return options{}, fmt.Errorf("unsupported format %q", opts.format)
	}
	return opts, nil
}

// periods expands the year range into one selector per year, all sharing the
// requested month.
func (o options) periods() ([]domain.PeriodSelector, error) {
	out := make([]domain.PeriodSelector, 0, o.toYear-o.year+1)
	for y := o.year; y <= o.toYear; y++ {
		period, err := service.ParsePeriod(strconv.Itoa(y), o.month)
		if err != nil {
			return nil, err
		}
		out = append(out, period)
	}
	return out, nil
}

func run(ctx context.Context, cfg config.Config, args []string, stdout io.Writer, stderr io.Writer) error {
	opts, err := parseArgs(cfg, args, stderr)
	if err != nil {
		return err
	}
	periods, err := opts.periods()
	if err != nil {
		return err
	}

	log := zlog.Logger
	var reader store.Reader
	if opts.databaseURL == "" {
		log.Warn().Msg("no database URL, reporting on seeded demo data")
		reader = memory.NewSeeded()
	} else {
		repo, err := sqlstore.New(ctx, opts.driver, opts.databaseURL, log)
		if err != nil {
			return err
		}
		defer repo.Close()
		reader = repo
	}

	svc := service.New(reader, log, cfg.TopProductsLimit)
	bar := progressbar.NewOptions(len(periods),
		progressbar.OptionSetWriter(stderr),
		progressbar.OptionSetDescription("building reports"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	dashboards := make([]domain.Dashboard, 0, len(periods))
	for _, period := range periods {
		d, err := svc.Dashboard(ctx, period, opts.limit)
		if err != nil {
			return fmt.Errorf("report %s: %w", period, err)
		}
		dashboards = append(dashboards, d)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	for i, d := range dashboards {
		if opts.format == "csv" {
			err = export.WriteCSV(stdout, d)
		} else {
			if i > 0 {
				fmt.Fprintln(stdout)
			}
			err = export.WriteTable(stdout, d)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
