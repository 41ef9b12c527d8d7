package sqlstore

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"watchshop/backend/internal/store"
)

type dialect struct {
	name       string
	driverName string
	numbered   bool
}

var dialects = map[string]dialect{
	"postgres": {name: "postgres", driverName: "pgx", numbered: true},
	"sqlite":   {name: "sqlite", driverName: "sqlite3"},
	"mysql":    {name: "mysql", driverName: "mysql"},
}

func lookupDialect(driver string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pgx":
		return dialects["postgres"], nil
	case "sqlite", "sqlite3":
		return dialects["sqlite"], nil
	case "mysql", "mariadb":
		return dialects["mysql"], nil
	}
	return dialect{}, fmt.Errorf("%w: %q", store.ErrUnsupportedDriver, driver)
}

// rebind rewrites "?" placeholders to "$1".."$n" for drivers that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// dsn turns the configured URL into what the driver expects. MySQL and MariaDB
// accept mysql:// and mariadb:// URLs on top of the native DSN form.
func (d dialect) dsn(databaseURL string) (string, error) {
	if databaseURL == "" {
		return "", store.ErrMissingDatabaseURL
	}
	switch d.name {
	case "mysql":
		return toMySQLDSN(databaseURL)
	case "sqlite":
		return strings.TrimPrefix(databaseURL, "sqlite://"), nil
	}
	return databaseURL, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mariadb://") && !strings.HasPrefix(dsn, "mysql://") {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	user, pass := "", ""
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	host := u.Host
	db := strings.TrimPrefix(u.Path, "/")
	if user == "" || host == "" || db == "" {
		return "", fmt.Errorf("incomplete mysql url: user, host and database are required")
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true", user, pass, host, db), nil
}
