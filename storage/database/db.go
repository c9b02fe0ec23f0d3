package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/grupka/grupka/core"
	appfs "github.com/grupka/grupka/fs"
)

const (
	driverName    = "postgres"
	migrationsDir = "migrations"
)

var pingMaxAttempts = 30

func dsn(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, dsn(dbName, admin, conf))
	if err != nil {
		return nil, err
	}
	if conf.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(conf.Database.MaxOpenConns)
	}
	if conf.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(conf.Database.MaxIdleConns)
	}
	if conf.Database.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(conf.Database.ConnMaxLifetime)
	}
	return db, nil
}

// Open opens the application database and waits for it to be ready.
func Open(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Ping waits for the database to be ready. Waits 100ms longer between each attempt.
func Ping(ctx context.Context, db interface{ PingContext(context.Context) error }) error {
	var err error
	for attempts := 1; attempts <= pingMaxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping cancelled")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func exists(ctx context.Context, db *sqlx.DB, query, name string) (bool, error) {
	var found bool
	err := db.GetContext(ctx, &found, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return found, err
}

func createAppUser(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}
	found, err := exists(ctx, db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s",
			pq.QuoteIdentifier(conf.Database.User), pq.QuoteLiteral(conf.Database.Password))
		if _, err = db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	found, err := exists(ctx, db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the application role and database using the admin credentials.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	adminDB, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = adminDB.Close() }()

	if err = Ping(ctx, adminDB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(ctx, adminDB, conf); err != nil {
		return err
	}

	// create DB as app user
	appDB, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()
	return createDB(ctx, appDB, conf)
}

func init() {
	goose.SetBaseFS(appfs.FS)
}

// Migrate applies all pending migrations.
func Migrate(db *sql.DB) error {
	if err := goose.SetDialect(driverName); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	if err := goose.Up(db, migrationsDir); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// RunMigrations runs any goose command (up, down, status, ...) on the embedded migrations.
func RunMigrations(db *sql.DB, command string, args ...string) error {
	if err := goose.SetDialect(driverName); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	return goose.Run(command, db, migrationsDir, args...)
}

// MigrationsDir is the directory of the embedded migrations.
func MigrationsDir() string { return migrationsDir }
