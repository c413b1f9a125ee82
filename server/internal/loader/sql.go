package loader

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"time"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLSource reads tables from a database.
type SQLSource struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens a database handle for driver ("postgres" or "sqlite3").
func OpenSQL(driver, dsn string) (*SQLSource, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return NewSQLSource(db, driver), nil
}

// NewSQLSource wraps an open handle.
func NewSQLSource(db *sql.DB, driver string) *SQLSource {
	return &SQLSource{db: db, driver: driver}
}

func (s *SQLSource) String() string { return "sql:" + s.driver }

// Close closes the underlying handle.
func (s *SQLSource) Close() error { return s.db.Close() }

// Ping checks the database is reachable.
func (s *SQLSource) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLSource) exists(ctx context.Context, name string) (bool, error) {
	q := `SELECT count(*) FROM information_schema.tables WHERE table_name = $1`
	if s.driver == "sqlite3" {
		q = `SELECT count(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`
	}
	var n int
	if err := s.db.QueryRowContext(ctx, q, name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Fetch reads every row of the named table or view.
func (s *SQLSource) Fetch(ctx context.Context, name string) (*table.Frame, error) {
	if !identRe.MatchString(name) {
		return nil, fmt.Errorf("invalid table name %q", name)
	}
	ok, err := s.exists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup table %q: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, s)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+name)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", name, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %q: %w", name, err)
	}
	cols := make([]*rawColumn, len(names))
	for i, n := range names {
		cols[i] = &rawColumn{name: n}
	}
	vals := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %q: %w", name, err)
		}
		for i, v := range vals {
			text, ok := cellText(v)
			cols[i].append(text, ok)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %q: %w", name, err)
	}
	return buildFrame(cols)
}

// cellText renders a driver value as text; NULL reports false.
func cellText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return x.Format("2006-01-02"), true
	default:
		return fmt.Sprint(x), true
	}
}
