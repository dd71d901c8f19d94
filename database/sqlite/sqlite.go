package sqlite

import (
	"errors"
	"strings"

	"github.com/aquilax/sitetree/database/sqldb"
	"github.com/aquilax/sitetree/migrations"
	"github.com/aquilax/sitetree/node"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLite keeps a single connection open. Write transactions are therefore
// serialized, which is the per scope locking the node store needs.
type SQLite struct {
	*sqldb.Store
}

var dialect = sqldb.Dialect{
	TranslateError: translateError,
}

func New() *SQLite {
	return &SQLite{}
}

func (m *SQLite) Open(database, DSN string) error {
	db, err := sqlx.Open(database, withPragmas(DSN))
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)
	if err := migrations.UpSQLite(db.DB); err != nil {
		db.Close()
		return err
	}
	m.Store = sqldb.New(db, dialect)
	return nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}

func translateError(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return sqldb.Classify(err, node.ErrConflict)
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return sqldb.Classify(err, node.ErrAlreadyExists)
	}
	// primary result code only
	if sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE") {
		return sqldb.Classify(err, node.ErrAlreadyExists)
	}
	return err
}
