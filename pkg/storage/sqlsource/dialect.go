package sqlsource

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between supported engines.
type Dialect struct {
	// Name is the database/sql driver name
	Name string

	// numbered reports whether placeholders are $1, $2... instead of ?
	numbered bool

	// subqueryDistinct selects the COUNT over SELECT DISTINCT form, for engines
	// that handle it better than COUNT(DISTINCT col)
	subqueryDistinct bool
}

var (
	// Postgres is the PostgreSQL dialect (lib/pq)
	Postgres = Dialect{Name: "postgres", numbered: true}

	// SQLite is the SQLite dialect (mattn/go-sqlite3)
	SQLite = Dialect{Name: "sqlite3", subqueryDistinct: true}
)

// DialectFor returns the dialect for a driver name
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Placeholder returns the n-th (1-based) bind placeholder
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// CountDistinct builds a query counting distinct values of col in table rows
// matching where. where uses placeholders from Placeholder.
func (d Dialect) CountDistinct(col, table, where string) string {
	if d.subqueryDistinct {
		return fmt.Sprintf("SELECT COUNT(%s) FROM (SELECT DISTINCT %s FROM %s WHERE %s)", col, col, table, where)
	}
	return fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s WHERE %s", col, table, where)
}
