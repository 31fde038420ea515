package sqldb

import (
	"fmt"
	"github.com/ValentinKolb/crund/lib/db"
	"github.com/go-sql-driver/mysql"
	"strconv"
	"strings"
)

// Dialect selects the SQL flavour and driver
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// dialect holds the statements of one SQL flavour.
// Statements use ? placeholders and /*T*/ for the table name.
type dialect struct {
	driver      string
	impl        db.Implementation
	createTable string
	upsert      string
	insertNew   string
	placeholder func(string) string
}

var dialects = map[Dialect]dialect{
	DialectSQLite: {
		driver:      "sqlite",
		impl:        db.ImplSQLite,
		createTable: `CREATE TABLE IF NOT EXISTS /*T*/ (k BLOB NOT NULL PRIMARY KEY, v BLOB NOT NULL)`,
		upsert:      `REPLACE INTO /*T*/ (k, v) VALUES (?, ?)`,
		insertNew:   `INSERT OR IGNORE INTO /*T*/ (k, v) VALUES (?, ?)`,
	},
	DialectMySQL: {
		driver:      "mysql",
		impl:        db.ImplMySQL,
		createTable: `CREATE TABLE IF NOT EXISTS /*T*/ (k VARBINARY(255) NOT NULL PRIMARY KEY, v LONGBLOB NOT NULL) ENGINE=/*ENGINE*/`,
		upsert:      `REPLACE INTO /*T*/ (k, v) VALUES (?, ?)`,
		insertNew:   `INSERT IGNORE INTO /*T*/ (k, v) VALUES (?, ?)`,
	},
	DialectPostgres: {
		driver:      "postgres",
		impl:        db.ImplPostgres,
		createTable: `CREATE TABLE IF NOT EXISTS /*T*/ (k BYTEA NOT NULL PRIMARY KEY, v BYTEA NOT NULL)`,
		upsert:      `INSERT INTO /*T*/ (k, v) VALUES (?, ?) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v`,
		insertNew:   `INSERT INTO /*T*/ (k, v) VALUES (?, ?) ON CONFLICT (k) DO NOTHING`,
		placeholder: numberedPlaceholders,
	},
}

// numberedPlaceholders rewrites ? placeholders to $1, $2, ...
func numberedPlaceholders(query string) string {
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// queries are the prepared statement texts of one database
type queries struct {
	createTable string
	upsert      string
	insertNew   string
	get         string
	has         string
	del         string
	scanFrom    string
	scanRange   string
	info        string
}

func (d dialect) queries(table, mysqlEngine string) queries {
	r := strings.NewReplacer("/*T*/", table, "/*ENGINE*/", mysqlEngine)
	q := func(stmt string) string {
		stmt = r.Replace(stmt)
		if d.placeholder != nil {
			stmt = d.placeholder(stmt)
		}
		return stmt
	}
	return queries{
		createTable: q(d.createTable),
		upsert:      q(d.upsert),
		insertNew:   q(d.insertNew),
		get:         q(`SELECT v FROM /*T*/ WHERE k = ?`),
		has:         q(`SELECT 1 FROM /*T*/ WHERE k = ?`),
		del:         q(`DELETE FROM /*T*/ WHERE k = ?`),
		scanFrom:    q(`SELECT k, v FROM /*T*/ WHERE k >= ? ORDER BY k`),
		scanRange:   q(`SELECT k, v FROM /*T*/ WHERE k >= ? AND k < ? ORDER BY k`),
		info:        q(`SELECT COUNT(*), COALESCE(SUM(LENGTH(k) + LENGTH(v)), 0) FROM /*T*/`),
	}
}

// MySQLDSN builds a go-sql-driver DSN from connection properties
func MySQLDSN(user, password, addr, database string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.DBName = database
	if addr != "" {
		cfg.Net = "tcp"
		cfg.Addr = addr
		if !strings.Contains(addr, ":") {
			cfg.Addr = addr + ":3306"
		}
	}
	return cfg.FormatDSN()
}

// sqliteDSN adds the pragmas for concurrent readers to a sqlite file path
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
}
