package sqlops

import (
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// SQLiteDriverName is the database/sql driver registered with a REGEXP
// function so the tag filter runs unchanged on SQLite.
const SQLiteDriverName = "sqlite3_regexp"

var (
	registerOnce sync.Once
	patterns     sync.Map
)

// RegisterSQLite registers SQLiteDriverName. Safe to call repeatedly.
func RegisterSQLite() string {
	registerOnce.Do(func() {
		sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("regexp", regexpMatch, true)
			},
		})
	})
	return SQLiteDriverName
}

// regexpMatch backs `X REGEXP Y`, which SQLite evaluates as regexp(Y, X).
// NULL operands never match.
func regexpMatch(pattern, value any) (bool, error) {
	expr, ok := asString(pattern)
	if !ok {
		return false, nil
	}
	subject, ok := asString(value)
	if !ok {
		return false, nil
	}
	re, err := compiled(expr)
	if err != nil {
		return false, err
	}
	return re.MatchString(subject), nil
}

func compiled(expr string) (*regexp.Regexp, error) {
	if cached, ok := patterns.Load(expr); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("sqlops: regexp %q: %w", expr, err)
	}
	patterns.Store(expr, re)
	return re, nil
}

func asString(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return fmt.Sprint(v), true
	}
}
