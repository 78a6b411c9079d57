package main

import (
	"github.com/spf13/viper"

	"github.com/forscht/rawbody/internal/dataprovider/boltdb"
	"github.com/forscht/rawbody/internal/dataprovider/postgres"
	"github.com/forscht/rawbody/internal/ftp"
	"github.com/forscht/rawbody/internal/http"
	"github.com/forscht/rawbody/pkg/rawbody"
	"github.com/forscht/rawbody/pkg/validator"
)

// Config represents the entire configuration as defined in the YAML file.
type Config struct {
	Rawbody rawbody.Config `mapstructure:"rawbody"`

	Dataprovider struct {
		Bolt     boltdb.Config   `mapstructure:"boltdb" validate:"-"`
		Postgres postgres.Config `mapstructure:"postgres" validate:"-"`
	} `mapstructure:"dataprovider"`

	Frontend struct {
		FTP  ftp.Config  `mapstructure:"ftp"`
		HTTP http.Config `mapstructure:"http"`
	} `mapstructure:"frontend"`
}

var envBindings = map[string]string{
	"rawbody.limit":    "RAWBODY_LIMIT",
	"rawbody.encoding": "RAWBODY_ENCODING",

	"dataprovider.boltdb.db_path":   "BOLTDB_DB_PATH",
	"dataprovider.postgres.db_url": "POSTGRES_DB_URL",

	"frontend.ftp.addr":           "FTP_ADDR",
	"frontend.ftp.username":       "FTP_USERNAME",
	"frontend.ftp.password":       "FTP_PASSWORD",
	"frontend.ftp.port_range":     "FTP_PORT_RANGE",
	"frontend.http.addr":          "HTTP_ADDR",
	"frontend.http.username":      "HTTP_USERNAME",
	"frontend.http.password":      "HTTP_PASSWORD",
	"frontend.http.guest_mode":    "HTTP_GUEST_MODE",
	"frontend.http.https_addr":    "HTTPS_ADDR",
	"frontend.http.https_crtpath": "HTTPS_CRTPATH",
	"frontend.http.https_keypath": "HTTPS_KEYPATH",
}

// loadConfig reads config.yaml from the working directory or
// $HOME/.config/rawbody, or file when set, and overlays the environment.
func loadConfig(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/rawbody/")
	if file != "" {
		v.SetConfigFile(file)
	}
	v.SetDefault("rawbody.limit", "1mb")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	config := new(Config)
	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, err
	}
	return config, nil
}
