// Package store selects the SQL dialect once at start-up and bundles the
// repositories behind the domain interfaces.
package store

import (
	"database/sql"
	"fmt"

	"campusmarket/internal/domain"
	"campusmarket/internal/store/postgres"
	"campusmarket/internal/store/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Repositories is every repository the services need.
type Repositories struct {
	Users     domain.UserRepository
	Listings  domain.ListingRepository
	Favorites domain.FavoriteRepository
	Reports   domain.ReportRepository
	Threads   domain.ThreadRepository
	Messages  domain.MessageRepository
}

// Open opens the database for driver and runs its migrations.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres:
		db, err := postgres.Open(dsn)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case DriverSQLite:
		db, err := sqlite.Open(dsn)
		if err != nil {
			return nil, err
		}
		if err := sqlite.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

// New wires the repositories of driver against db.
func New(driver string, db *sql.DB) (*Repositories, error) {
	switch driver {
	case DriverPostgres:
		return &Repositories{
			Users:     postgres.NewUserRepo(db),
			Listings:  postgres.NewListingRepo(db),
			Favorites: postgres.NewFavoriteRepo(db),
			Reports:   postgres.NewReportRepo(db),
			Threads:   postgres.NewThreadRepo(db),
			Messages:  postgres.NewMessageRepo(db),
		}, nil
	case DriverSQLite:
		return &Repositories{
			Users:     sqlite.NewUserRepo(db),
			Listings:  sqlite.NewListingRepo(db),
			Favorites: sqlite.NewFavoriteRepo(db),
			Reports:   sqlite.NewReportRepo(db),
			Threads:   sqlite.NewThreadRepo(db),
			Messages:  sqlite.NewMessageRepo(db),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}
