package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dailypy/mediaflow/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	sqldblogger "github.com/simukti/sqldb-logger"
	_ "modernc.org/sqlite"
)

const (
	DialectPostgres = "postgres"
	DialectSqlite   = "sqlite"

	postgresConnectionString = "host=%s user=%s password=%s dbname=%s port=%s sslmode=%s"
)

var (
	//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
	migrations embed.FS

	dbLogger = logger.Get("DB")

	// goose keeps its dialect and base FS as package globals
	gooseMutex sync.Mutex

	ErrNotConnected = errors.New("DB manager has not yet connected")
)

type (
	// DatabaseConfig is a subset of the configuration focusing solely
	// on database connection items
	DatabaseConfig struct {
		Dialect  string `yaml:"dialect" env:"DB_DIALECT" env-default:"postgres" validate:"oneof=postgres sqlite"`
		User     string `yaml:"username" env:"DB_USERNAME" validate:"required_if=Dialect postgres"`
		Password string `yaml:"password" env:"DB_PASSWORD"`
		Name     string `yaml:"name" env:"DB_NAME" env-default:"mediaflow"`
		Host     string `yaml:"host" env:"DB_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
		SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
		// Path is the location of the database file when using the sqlite dialect
		Path string `yaml:"path" env:"DB_PATH" validate:"required_if=Dialect sqlite"`
		// DSN, if provided, is used verbatim instead of the individual fields above
		DSN string `yaml:"dsn" env:"DB_DSN"`
		// ConnectAttempts is the number of times a connection is attempted before giving up.
		ConnectAttempts int `yaml:"connect_attempts" env:"DB_CONNECT_ATTEMPTS" env-default:"5"`
	}

	SqlLogger struct {
		logger logger.Logger
	}

	// Queryable is satisfied by both *sqlx.DB and *sqlx.Tx, allowing
	// stores to be used inside and outside of a transaction.
	Queryable interface {
		sqlx.Ext
		Get(dest any, query string, args ...any) error
		Select(dest any, query string, args ...any) error
		NamedExec(query string, arg any) (sql.Result, error)
	}

	Manager interface {
		Connect(DatabaseConfig) error
		Migrate() error
		MigrationVersion() (int64, error)
		GetSqlxDb() *sqlx.DB
		WrapTx(func(*sqlx.Tx) error) error
		Close() error
	}

	manager struct {
		rawDb   *sql.DB
		db      *sqlx.DB
		dialect string
	}
)

func New() *manager {
	return &manager{}
}

// Validate checks the config using its 'validate' struct tags.
func (config DatabaseConfig) Validate() error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}

	return nil
}

// ConnectionString returns the driver name and DSN for the config provided.
func (config DatabaseConfig) ConnectionString() (string, string, error) {
	switch config.Dialect {
	case DialectPostgres, "":
		if config.DSN != "" {
			return "postgres", config.DSN, nil
		}

		sslMode := config.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return "postgres", fmt.Sprintf(postgresConnectionString, config.Host, config.User, config.Password, config.Name, config.Port, sslMode), nil
	case DialectSqlite:
		if config.DSN != "" {
			return "sqlite", config.DSN, nil
		}
		if config.Path == "" {
			return "", "", errors.New("sqlite dialect requires a database path")
		}

		return "sqlite", fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", config.Path), nil
	default:
		return "", "", fmt.Errorf("unsupported database dialect '%s'", config.Dialect)
	}
}

// Connect opens the database described by the config, retrying the initial
// ping for databases which may still be starting. Every statement executed
// against the connection is logged via the DB logger at VERBOSE/DEBUG level.
func (db *manager) Connect(config DatabaseConfig) error {
	driverName, dsn, err := config.ConnectionString()
	if err != nil {
		return err
	}

	raw, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driverName, err)
	}

	conn := sqldblogger.OpenDriver(dsn, raw.Driver(), &SqlLogger{dbLogger})
	raw.Close()
	if driverName == "sqlite" {
		// sqlite only permits a single writer
		conn.SetMaxOpenConns(1)
	}

	attempts := config.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := conn.Ping()
		if err == nil {
			break
		}

		if attempt >= attempts {
			dbLogger.Emit(logger.ERROR, "All attempts FAILED!\n")
			conn.Close()
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		dbLogger.Emit(logger.WARNING, "Attempt (%v/%v) failed... Retrying in 3s\n", attempt, attempts)
		time.Sleep(time.Second * 3)
	}

	db.rawDb = conn
	db.dialect = driverName
	if driverName == "sqlite" {
		// sqlx uses the driver name to select the bind variable style
		db.db = sqlx.NewDb(conn, "sqlite3")
	} else {
		db.db = sqlx.NewDb(conn, driverName)
	}

	dbLogger.Emit(logger.SUCCESS, "Database connection complete! (%s)\n", driverName)
	return nil
}

// Migrate uses the comp-time embedded SQL migrations for the connected dialect and
// runs them against the current DB instance.
func (db *manager) Migrate() error {
	if db.rawDb == nil {
		return fmt.Errorf("cannot execute migrations: %w", ErrNotConnected)
	}

	gooseMutex.Lock()
	defer gooseMutex.Unlock()

	dir := "migrations/" + db.dialect
	gooseDialect := db.dialect
	if gooseDialect == "sqlite" {
		gooseDialect = "sqlite3"
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(dbLogger)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("failed to set dialect for DB migration: %w", err)
	}

	dbLogger.Emit(logger.INFO, "Checking for pending DB migrations...\n")
	if err := goose.Up(db.rawDb, dir); err != nil {
		return fmt.Errorf("failed to migrate DB: %w", err)
	}

	dbLogger.Emit(logger.SUCCESS, "DB Goose migration complete!\n")
	return nil
}

// MigrationVersion returns the current goose version of the connected database.
func (db *manager) MigrationVersion() (int64, error) {
	if db.rawDb == nil {
		return 0, ErrNotConnected
	}

	gooseMutex.Lock()
	defer gooseMutex.Unlock()

	return goose.GetDBVersion(db.rawDb)
}

// GetSqlxDb returns the sqlx database connection if
// one has been opened using 'Connect'. Otherwise, nil is returned
func (db *manager) GetSqlxDb() *sqlx.DB {
	return db.db
}

// WrapTx is a convinience method around the top-level WrapTx, which simply
// uses the managers DB instance as the first argument.
func (db *manager) WrapTx(f func(tx *sqlx.Tx) error) error {
	if db.db == nil {
		return ErrNotConnected
	}

	return WrapTx(db.db, f)
}

func (db *manager) Close() error {
	if db.rawDb == nil {
		return nil
	}

	err := db.rawDb.Close()
	db.rawDb, db.db = nil, nil
	return err
}

func (l *SqlLogger) Log(_ context.Context, level sqldblogger.Level, msg string, data map[string]any) {
	template := "%s - %v\n"
	switch level {
	case sqldblogger.LevelTrace:
		l.logger.Verbosef(template, msg, data)
	case sqldblogger.LevelDebug, sqldblogger.LevelInfo:
		duration := data["duration"]
		if query, ok := data["query"]; ok {
			l.logger.Debugf("%s [%.2fms] -- %s\n", msg, duration, query)
		} else {
			l.logger.Debugf("%s [%.2fms]\n", msg, duration)
		}
	case sqldblogger.LevelError:
		l.logger.Errorf(template, msg, data)
	}
}

// WrapTx starts a transaction against the provided DB, and then calls the user
// provided function. If this function errors, the transaction is rolled back - otherwise
// the transaction is committed.
func WrapTx(db *sqlx.DB, f func(tx *sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := f(tx); err != nil {
		dbLogger.Errorf("Transaction failed... rolling back. Error: %s\n", err.Error())
		return err
	}

	return tx.Commit()
}
