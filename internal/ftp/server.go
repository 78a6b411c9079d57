package ftp

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fclairamb/ftpserverlib"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/forscht/rawbody/internal/filesystem"
	"github.com/forscht/rawbody/pkg/rawbody"
)

const IPResolveURL = "https://ipinfo.io/ip"

var (
	ErrNoTLS                 = errors.New("TLS is not configured")
	ErrBadUserNameOrPassword = errors.New("bad username or password")
	ErrBadPortRange          = errors.New("bad port range")
)

type Config struct {
	Addr      string `mapstructure:"addr"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	PortRange string `mapstructure:"port_range" validate:"omitempty,regex=^[0-9]+-[0-9]+$"`
}

// Serv serves stored bodies over FTP. Uploads are buffered with bodyCfg.
func Serv(cfg *Config, bodyCfg rawbody.Config) error {
	// If Addr not provided, do not start FTP server
	if cfg.Addr == "" {
		return nil
	}
	driver, err := NewDriver(cfg, filesystem.New(bodyCfg))
	if err != nil {
		return err
	}

	server := ftpserver.NewFtpServer(driver)
	log.Info().Str("c", "ftp").Str("addr", cfg.Addr).Msg("starting ftp server")

	return server.ListenAndServe()
}

// NewDriver builds the FTP driver serving fs.
func NewDriver(cfg *Config, fs afero.Fs) (*Driver, error) {
	portRange, err := parsePortRange(cfg.PortRange)
	if err != nil {
		return nil, err
	}
	driver := &Driver{
		Fs:       fs,
		username: cfg.Username,
		password: cfg.Password,
		Settings: &ftpserver.Settings{
			ListenAddr:          cfg.Addr,
			DefaultTransferType: ftpserver.TransferTypeBinary,
			// bodies are small, a client idle for an hour is gone
			IdleTimeout: 3600,
		},
	}

	// Enable PASV mode if portRange is supplied
	if portRange != nil {
		driver.Settings.PassiveTransferPortRange = portRange
		driver.Settings.PublicIPResolver = resolvePublicIP
	}
	return driver, nil
}

func parsePortRange(s string) (*ftpserver.PortRange, error) {
	if s == "" {
		return nil, nil
	}
	portRange := &ftpserver.PortRange{}
	if _, err := fmt.Sscanf(s, "%d-%d", &portRange.Start, &portRange.End); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrBadPortRange, s, err)
	}
	if portRange.Start <= 0 || portRange.End > 65535 || portRange.Start > portRange.End {
		return nil, fmt.Errorf("%w %q", ErrBadPortRange, s)
	}
	return portRange, nil
}

func resolvePublicIP(_ ftpserver.ClientContext) (string, error) {
	resp, err := http.Get(IPResolveURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	ip, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(ip)), nil
}

// Driver is the FTP server driver implementation.
type Driver struct {
	Fs       afero.Fs
	Settings *ftpserver.Settings
	username string
	password string
}

// ClientConnected is called when a client is connected to the FTP server.
func (d *Driver) ClientConnected(cc ftpserver.ClientContext) (string, error) {
	log.Info().Str("c", "ftpserver").Str("addr", cc.RemoteAddr().String()).
		Str("client", cc.GetClientVersion()).Uint32("id", cc.ID()).Msg("client connected")
	return "rawbody FTP Server", nil
}

// ClientDisconnected is called when a client is disconnected from the FTP server.
func (d *Driver) ClientDisconnected(cc ftpserver.ClientContext) {
	log.Info().Str("c", "ftpserver").Str("addr", cc.RemoteAddr().String()).
		Str("client", cc.GetClientVersion()).Uint32("id", cc.ID()).Msg("client disconnected")
}

// AuthUser authenticates a user during the FTP server login process.
func (d *Driver) AuthUser(cc ftpserver.ClientContext, user, pass string) (ftpserver.ClientDriver, error) {
	if !d.authorized(user, pass) {
		log.Info().Str("c", "ftpserver").Str("addr", cc.RemoteAddr().String()).Uint32("id", cc.ID()).
			Str("user", user).Err(ErrBadUserNameOrPassword).Msg("authentication failed")
		return nil, ErrBadUserNameOrPassword
	}
	return d.Fs, nil
}

func (d *Driver) authorized(user, pass string) bool {
	if d.username != "" && d.username != user {
		return false
	}
	return d.password == "" || d.password == pass
}

// GetSettings returns the FTP server settings.
func (d *Driver) GetSettings() (*ftpserver.Settings, error) { return d.Settings, nil }

// GetTLSConfig returns the TLS configuration for the FTP server.
func (d *Driver) GetTLSConfig() (*tls.Config, error) { return nil, ErrNoTLS }
