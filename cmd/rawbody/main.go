package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	zl "github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	dp "github.com/forscht/rawbody/internal/dataprovider"
	"github.com/forscht/rawbody/internal/dataprovider/boltdb"
	"github.com/forscht/rawbody/internal/dataprovider/postgres"
	"github.com/forscht/rawbody/internal/ftp"
	"github.com/forscht/rawbody/internal/http"
	"github.com/forscht/rawbody/pkg/bytesize"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	showVersion = flag.Bool("version", false, "print version information and exit")
	debugMode   = flag.Bool("debug", false, "enable debug logs")
	configFile  = flag.String("config", "", "path to rawbody configuration file")
)

func main() {
	flag.Parse()

	// Check if a version flag is set
	if *showVersion {
		fmt.Printf("rawbody: %s\n", version)
		os.Exit(0)
	}

	// Set the maximum number of operating system threads to use.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Setup logger
	log.Logger = zl.New(zl.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	zl.SetGlobalLevel(zl.InfoLevel)
	if *debugMode {
		zl.SetGlobalLevel(zl.DebugLevel)
	}

	// Load config file
	config, err := loadConfig(*configFile)
	if err != nil {
		log.Fatal().Str("c", "config").Err(err).Msg("failed to load config")
	}
	limit := "unbounded"
	if config.Rawbody.Limit != "" {
		n, _ := bytesize.Parse(config.Rawbody.Limit)
		limit = bytesize.Format(n)
	}
	log.Info().Str("c", "main").Str("limit", limit).Str("encoding", config.Rawbody.Encoding).Msg("body limits loaded")

	// Load data provider
	var provider dp.DataProvider
	if config.Dataprovider.Bolt.DbPath != "" {
		provider = boltdb.New(&config.Dataprovider.Bolt)
	}
	if provider == nil && config.Dataprovider.Postgres.DbURL != "" {
		provider = postgres.New(&config.Dataprovider.Postgres)
	}
	if provider == nil {
		log.Fatal().Str("c", "main").Msg("dataprovider config is missing")
	}
	dp.Load(provider)
	defer dp.Close()

	errCh := make(chan error)
	// Create and start ftp server
	go func() { errCh <- ftp.Serv(&config.Frontend.FTP, config.Rawbody) }()
	// Create and start http server
	go func() { errCh <- http.Serv(&config.Frontend.HTTP, config.Rawbody) }()

	// ftp.Serv returns nil right away when it is not configured
	for err = range errCh {
		if err != nil {
			log.Error().Str("c", "main").Err(err).Msg("rawbody crashed")
			break
		}
	}
}
