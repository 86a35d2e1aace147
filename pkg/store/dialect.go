package store

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"salesetl/pkg/config"
	"salesetl/pkg/schema"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name string
	// driver is the database/sql driver name registered by the import above.
	driver string
}

var (
	Postgres = Dialect{Name: "postgres", driver: "postgres"}
	MySQL    = Dialect{Name: "mysql", driver: "mysql"}
	SQLite   = Dialect{Name: "sqlite", driver: "sqlite"}
)

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
}

// Quote quotes an identifier.
func (d Dialect) Quote(ident string) string {
	if d.Name == MySQL.Name {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Placeholder returns the bind marker for the n-th (1-based) parameter.
func (d Dialect) Placeholder(n int) string {
	if d.Name == Postgres.Name {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// ColumnType maps a column kind to a column definition type.
func (d Dialect) ColumnType(k schema.Kind) string {
	switch k {
	case schema.KindInt:
		if d.Name == SQLite.Name {
			return "INTEGER"
		}
		return "BIGINT"
	case schema.KindFloat:
		switch d.Name {
		case Postgres.Name:
			return "DOUBLE PRECISION"
		case MySQL.Name:
			return "DOUBLE"
		default:
			return "REAL"
		}
	case schema.KindDate:
		return "DATE"
	default:
		return "TEXT"
	}
}

// maxParams is a conservative bind parameter limit per statement.
func (d Dialect) maxParams() int {
	if d.Name == SQLite.Name {
		return 32766
	}
	return 65535
}

// DSN builds the driver-specific data source name for a connection.
func DSN(c config.DatabaseConfig) (string, error) {
	d, err := DialectFor(c.Driver)
	if err != nil {
		return "", err
	}
	switch d.Name {
	case Postgres.Name:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
			Path:   "/" + c.Database,
		}
		if c.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
		}
		return u.String(), nil
	case MySQL.Name:
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		mc.DBName = c.Database
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	default:
		return c.Database, nil
	}
}

// Open opens a handle for the connection. No network round trip happens
// until the handle is first used.
func Open(c config.DatabaseConfig) (*sql.DB, Dialect, error) {
	d, err := DialectFor(c.Driver)
	if err != nil {
		return nil, Dialect{}, err
	}
	dsn, err := DSN(c)
	if err != nil {
		return nil, Dialect{}, err
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("failed to open %s connection: %w", d.Name, err)
	}
	return db, d, nil
}
