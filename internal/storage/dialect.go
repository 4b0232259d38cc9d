package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dialect hides the few places where the supported databases disagree.
type dialect struct {
	driver Driver
}

// rebind rewrites ? placeholders into $n for postgres.
func (d dialect) rebind(query string) string {
	if d.driver != DriverPostgres {
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

// ignoreSeedConflict is appended to seeding inserts so that a row already
// holding the same (user_id, seed_key) is left untouched.
func (d dialect) ignoreSeedConflict() string {
	if d.driver == DriverMySQL {
		return " ON DUPLICATE KEY UPDATE seed_key = seed_key"
	}
	return " ON CONFLICT (user_id, seed_key) DO NOTHING"
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertID runs an INSERT and returns the generated key in idColumn.
func (d dialect) insertID(ctx context.Context, db execQuerier, query, idColumn string, args ...any) (int64, error) {
	if d.driver == DriverPostgres {
		var id int64
		err := db.QueryRowContext(ctx, d.rebind(query)+" RETURNING "+idColumn, args...).Scan(&id)
		return id, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// isUniqueViolation reports whether err is a unique constraint failure.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
			strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}
