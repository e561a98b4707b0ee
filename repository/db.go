package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	auth "github.com/pulseapp/pulse-auth"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Dialect names the SQL backend behind a DSN.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DialectFromDSN picks the backend from the DSN scheme. Anything that is not
// a postgres URL is treated as a sqlite path.
func DialectFromDSN(dsn string) Dialect {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open connects to dsn and wraps the connection with the matching bun dialect.
func Open(dsn string) (*bun.DB, Dialect, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, "", goerrors.New("database dsn is required", goerrors.CategoryBadInput)
	}

	dialect := DialectFromDSN(dsn)
	switch dialect {
	case DialectPostgres:
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "open postgres")
		}
		return bun.NewDB(sqldb, pgdialect.New()), dialect, nil
	default:
		path := strings.TrimPrefix(dsn, "sqlite://")
		sqldb, err := sql.Open(sqliteshim.ShimName, path)
		if err != nil {
			return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "open sqlite")
		}
		// sqlite serializes writers, one connection also keeps :memory: shared
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), dialect, nil
	}
}

// Migrate applies the embedded migrations for dialect.
func Migrate(ctx context.Context, db *bun.DB, dialect Dialect, logger auth.Logger) error {
	if db == nil {
		return goerrors.New("nil database provided", goerrors.CategoryBadInput)
	}

	gooseDialect, dir := "sqlite3", "data/sql/migrations/sqlite"
	if dialect == DialectPostgres {
		gooseDialect, dir = "postgres", "data/sql/migrations/postgres"
	}

	goose.SetBaseFS(auth.GetMigrationsFS())
	if logger != nil {
		goose.SetLogger(gooseLogger{logger})
	} else {
		goose.SetLogger(goose.NopLogger())
	}

	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}

	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

type gooseLogger struct {
	logger auth.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
