package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb" // registers "sqlserver"
	_ "modernc.org/sqlite"              // registers "sqlite"
)

// ErrNoSuchTable is the MySQL error number for a missing table.
const ErrNoSuchTable = 1146

// IsMySQLError reports whether err is a MySQL server error with number.
func IsMySQLError(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}

// OpenMySQL connects to MySQL or MariaDB.
func OpenMySQL(ctx context.Context, cfg *mysql.Config, opts ...Option) (*DB, error) {
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql config: %w", err)
	}
	defaults := []Option{WithEscaper(EscapeMySQL)}
	return open(ctx, "mysql", sql.OpenDB(connector), append(defaults, opts...))
}

// OpenPostgres connects to PostgreSQL through pgx.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	defaults := []Option{WithPlaceholder(Dollar)}
	return open(ctx, "postgres", stdlib.OpenDB(*cfg), append(defaults, opts...))
}

// OpenSQLite opens a SQLite database file, or ":memory:". The pool is
// limited to one connection so an in-memory database is shared.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	return open(ctx, "sqlite", db, opts)
}

// OpenSQLServer connects to SQL Server.
func OpenSQLServer(ctx context.Context, dsn string, opts ...Option) (*DB, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlserver open: %w", err)
	}
	defaults := []Option{WithPlaceholder(AtP)}
	return open(ctx, "mssql", db, append(defaults, opts...))
}

func open(ctx context.Context, name string, db *sql.DB, opts []Option) (*DB, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s ping: %w", name, err)
	}
	return New(name, db, opts...), nil
}
