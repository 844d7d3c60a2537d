// Package postgres implements the domain store interfaces on database/sql.
// The payment confirmation paths take row-level locks so concurrent webhook
// deliveries for one reference serialize at the database, whatever process
// they land on.
package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Open connects to the database and verifies the connection.
func Open(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres db: %w", err)
	}
	return db, nil
}
