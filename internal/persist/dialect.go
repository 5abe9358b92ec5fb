package persist

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/orphanage/pkg/types"
)

// Dialect captures the differences between supported engines that matter to
// the statements this package issues.
type Dialect struct {
	Name   string
	Driver string

	// numbered placeholders ($1, $2, ...) instead of ?.
	numbered bool
}

var (
	SQLiteDialect   = Dialect{Name: types.BackendSQLite, Driver: "sqlite"}
	PostgresDialect = Dialect{Name: types.BackendPostgres, Driver: "pgx", numbered: true}
)

// DialectFor returns the dialect for a backend name.
func DialectFor(backend string) (Dialect, error) {
	switch backend {
	case types.BackendSQLite:
		return SQLiteDialect, nil
	case types.BackendPostgres:
		return PostgresDialect, nil
	default:
		return Dialect{}, fmt.Errorf("%w: %q", types.ErrBackendUnknown, backend)
	}
}

// Rebind rewrites ? placeholders for dialects that number them. Queries are
// built internally and never contain a literal question mark.
func (d Dialect) Rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			sb.WriteRune(r)
			continue
		}
		n++
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(n))
	}
	return sb.String()
}

// Placeholders returns n comma-separated ? placeholders for an IN list.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
