package startup

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kpressOrg/user-service/shared/events"
)

// DBConnector opens a usable database handle or fails. It is called once per
// attempt of the database phase.
type DBConnector func(ctx context.Context) (*sql.DB, error)

// BrokerConnector dials the message broker. It must honour ctx cancellation
// where the underlying client allows it.
type BrokerConnector func(ctx context.Context) (events.Publisher, error)

// SQLConnector opens driverName/dsn, pings it and runs prepare (usually the
// schema migration) against it. The handle is closed if any step fails.
func SQLConnector(driverName, dsn string, prepare func(context.Context, *sql.DB) error) DBConnector {
	return func(ctx context.Context) (*sql.DB, error) {
		db, err := sql.Open(driverName, dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(30 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		if prepare != nil {
			if err := prepare(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return db, nil
	}
}

// BrokerDialer connects to the broker named by rawURL.
func BrokerDialer(rawURL string) BrokerConnector {
	return func(ctx context.Context) (events.Publisher, error) {
		return events.Dial(ctx, rawURL)
	}
}
