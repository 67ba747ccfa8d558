package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/conduitapi/conduit/internal/config"
	"github.com/mdobak/go-xerrors"

	// Both supported drivers register themselves here so that the DSN alone
	// selects the engine.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func Open(cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, xerrors.New(err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, xerrors.New(err)
	}

	return db, nil
}
