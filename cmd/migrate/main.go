package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	zl "github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/forscht/rawbody/internal/dataprovider/postgres"
)

// migrate applies the postgres schema without starting the server, for
// deployments where the service role may not alter tables.
func main() {
	dbURL := flag.String("db-url", "", "Postgres database url")
	flag.Parse()

	if *dbURL == "" {
		fmt.Println("Error: flag --db-url must be provided")
		flag.Usage()
		os.Exit(1)
	}

	// Setup logger
	log.Logger = zl.New(zl.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	zl.SetGlobalLevel(zl.DebugLevel)

	db, err := sql.Open(postgres.Driver, *dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("could not open postgres connection")
	}
	defer db.Close()
	if err = db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("postgres db ping failed")
	}
	log.Info().Msg("connected with postgres")

	if err = postgres.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("schema is up to date")
}
