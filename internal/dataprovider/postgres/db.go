package postgres

import (
	"database/sql"

	_ "github.com/lib/pq" // Import the PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// Driver - for now we only support postgres
const Driver = "postgres"

// NewDb creates a new database connection using the dbUrl
// It returns the *sql.DB object representing the connection.
func NewDb(connStr string, skipMigration bool) *sql.DB {
	db, err := sql.Open(Driver, connStr)
	if err != nil {
		log.Fatal().Err(err).Str("c", "postgres").Msg("could not open postgres connection")
	}
	// Bodies are held in memory until stored, so many parallel uploads
	// should not also pile up connections.
	db.SetMaxOpenConns(50)
	if err = db.Ping(); err != nil {
		log.Fatal().Err(err).Str("c", "postgres").Msg("ping failed")
	}
	if !skipMigration {
		if err = Migrate(db); err != nil {
			log.Fatal().Err(err).Str("c", "postgres").Msg("failed to execute migration")
		}
	}
	return db
}
