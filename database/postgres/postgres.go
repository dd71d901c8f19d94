package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aquilax/sitetree/database/sqldb"
	"github.com/aquilax/sitetree/migrations"
	"github.com/aquilax/sitetree/node"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres runs every write transaction at serializable isolation and locks
// the rows it reads with FOR UPDATE, so concurrent deletes and reparents on
// the same node or scope either wait or fail with node.ErrConflict.
type Postgres struct {
	*sqldb.Store
}

var dialect = sqldb.Dialect{
	ForUpdate:      " FOR UPDATE",
	TxOptions:      &sql.TxOptions{Isolation: sql.LevelSerializable},
	TranslateError: translateError,
}

func New() *Postgres {
	return &Postgres{}
}

// Open connects with the lib/pq driver and applies pending migrations. The
// dsn must be a postgres:// URL.
func (m *Postgres) Open(database, DSN string) error {
	db, err := sqlx.Open(database, DSN)
	if err != nil {
		return err
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrations.UpPostgres(DSN); err != nil {
		db.Close()
		return err
	}
	m.Store = sqldb.New(db, dialect)
	return nil
}

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return sqldb.Classify(err, node.ErrConflict)
	case codeUniqueViolation:
		return sqldb.Classify(err, node.ErrAlreadyExists)
	}
	return err
}
