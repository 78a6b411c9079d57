package postgres

import (
	"database/sql"

	"github.com/rs/zerolog/log"
)

type migration struct {
	ID int
	Up []string
}

var migrations = []migration{
	{
		ID: 1,
		Up: []string{
			`CREATE TABLE IF NOT EXISTS body
			(
			    id           VARCHAR(64) PRIMARY KEY,
			    content_type VARCHAR(255),
			    encoding     VARCHAR(64),
			    size         BIGINT    NOT NULL DEFAULT 0,
			    data         BYTEA     NOT NULL,
			    ctime        TIMESTAMP NOT NULL DEFAULT NOW()
			);`,
			`CREATE INDEX IF NOT EXISTS idx_body_ctime ON body (ctime);`,
		},
	},
}

// Migrate applies the pending migrations in a single transaction.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err = tx.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (id INTEGER PRIMARY KEY, applied TIMESTAMP NOT NULL DEFAULT NOW());`); err != nil {
		return err
	}
	// serialize concurrent migrators
	if _, err = tx.Exec(`LOCK TABLE schema_migrations IN EXCLUSIVE MODE;`); err != nil {
		return err
	}

	for _, m := range migrations {
		var applied bool
		if err = tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE id = $1);`, m.ID).Scan(&applied); err != nil {
			return err
		}
		if applied {
			continue
		}
		for _, q := range m.Up {
			if _, err = tx.Exec(q); err != nil {
				return err
			}
		}
		if _, err = tx.Exec(`INSERT INTO schema_migrations (id) VALUES ($1);`, m.ID); err != nil {
			return err
		}
		log.Info().Str("c", "postgres").Int("id", m.ID).Msg("applied migration")
	}
	return tx.Commit()
}
