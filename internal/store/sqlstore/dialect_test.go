package sqlstore

import (
	"errors"
	"testing"

	"watchshop/backend/internal/domain"
	"watchshop/backend/internal/store"
)

func TestLookupDialect(t *testing.T) {
	cases := map[string]string{
		"postgres":   "pgx",
		"PostgreSQL": "pgx",
		"sqlite":     "sqlite3",
		"sqlite3":    "sqlite3",
		"mysql":      "mysql",
		"mariadb":    "mysql",
	}
	for driver, want := range cases {
		d, err := lookupDialect(driver)
		if err != nil {
			t.Fatalf("lookup %q: %v", driver, err)
		}
		if d.driverName != want {
			t.Fatalf("lookup %q: expected driver %q, got %q", driver, want, d.driverName)
		}
	}

	if _, err := lookupDialect("oracle"); !errors.Is(err, store.ErrUnsupportedDriver) {
		t.Fatalf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestRebindNumbersPlaceholdersForPostgres(t *testing.T) {
	query := `SELECT id FROM invoices WHERE created_date >= ? AND created_date < ?`

	pg, _ := lookupDialect("postgres")
	if got := pg.rebind(query); got != `SELECT id FROM invoices WHERE created_date >= $1 AND created_date < $2` {
		t.Fatalf("unexpected postgres query %q", got)
	}

	lite, _ := lookupDialect("sqlite")
	if got := lite.rebind(query); got != query {
		t.Fatalf("sqlite query must be unchanged, got %q", got)
	}
}

func TestMySQLURLConversion(t *testing.T) {
	got, err := toMySQLDSN("mariadb://shop:secret@db:3306/watches")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := "shop:secret@tcp(db:3306)/watches?parseTime=true&loc=UTC&interpolateParams=true"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	native := "shop:secret@tcp(db:3306)/watches"
	if got, err := toMySQLDSN(native); err != nil || got != native {
		t.Fatalf("native dsn must pass through, got %q, %v", got, err)
	}

	if _, err := toMySQLDSN("mysql://db:3306/watches"); err == nil {
		t.Fatalf("expected error for url without user")
	}
}

func TestEmptyDatabaseURLRejected(t *testing.T) {
	d, _ := lookupDialect("postgres")
	if _, err := d.dsn(""); !errors.Is(err, store.ErrMissingDatabaseURL) {
		t.Fatalf("expected ErrMissingDatabaseURL, got %v", err)
	}
}

func TestDayBoundsAreInclusiveDays(t *testing.T) {
	from, to := domain.PeriodSelector{Year: 9999}.Range()
	first, last := dayBounds(from, to)
	if first != "9999-01-01" || last != "9999-12-31" {
		t.Fatalf("unexpected bounds %q..%q", first, last)
	}

	from, to = domain.PeriodSelector{Year: 2024, Month: 2}.Range()
	first, last = dayBounds(from, to)
	if first != "2024-02-01" || last != "2024-02-29" {
		t.Fatalf("unexpected bounds %q..%q", first, last)
	}
}
