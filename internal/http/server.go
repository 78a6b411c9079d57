package http

import (
	"errors"

	fzl "github.com/gofiber/contrib/fiberzerolog"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"

	"github.com/forscht/rawbody/internal/http/api"
	"github.com/forscht/rawbody/pkg/rawbody"
	"github.com/forscht/rawbody/pkg/stream"
)

type Config struct {
	Addr         string `mapstructure:"addr"`
	HTTPSAddr    string `mapstructure:"https_addr"`
	HTTPSKeyPath string `mapstructure:"https_keypath"`
	HTTPSCrtPath string `mapstructure:"https_crtpath"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	GuestMode    bool   `mapstructure:"guest_mode"`
}

// New builds the fiber app serving the body API.
func New(cfg *Config, bodyCfg rawbody.Config) *fiber.App {
	fconfig := fiber.Config{
		DisablePreParseMultipartForm: true, // https://github.com/gofiber/fiber/issues/1838
		StreamRequestBody:            true,
		DisableStartupMessage:        true,
		ErrorHandler:                 ErrorHandler,
	}

	// Initialize fiber app
	app := fiber.New(fconfig)

	// Setup config vars
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("username", cfg.Username)
		c.Locals("password", cfg.Password)
		c.Locals("guestmode", cfg.GuestMode)
		return c.Next()
	})

	// Enable logger
	logger := log.With().Str("c", "httpserver").Logger()
	app.Use(fzl.New(fzl.Config{Logger: &logger}))

	// Enable cors
	app.Use(cors.New())

	// Register API routes
	api.Load(app, bodyCfg)

	return app
}

// ErrorHandler writes err as a JSON response. Collection errors keep their
// status, an aborted upload is a bad request and every other 500 is masked.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	if ctx.BaseURL() == "http://" || ctx.BaseURL() == "https://" {
		return nil
	}
	code := rawbody.StatusCode(err) // defaults to 500
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	if errors.Is(err, stream.ErrAborted) {
		code = fiber.StatusBadRequest
	}

	var typed interface{ Type() string }
	errType := ""
	if errors.As(err, &typed) {
		errType = typed.Type()
	}

	if code >= fiber.StatusInternalServerError {
		log.Error().Str("c", "httpserver").Err(err).Str("path", ctx.Path()).Msg("request failed")
		return ctx.Status(code).JSON(api.Response{Message: "internal server error"})
	}
	if rawbody.IsClientError(err) {
		log.Warn().Str("c", "httpserver").Err(err).Str("path", ctx.Path()).Str("type", errType).Msg("body rejected")
	}
	return ctx.Status(code).JSON(api.Response{Message: err.Error(), Type: errType})
}

func Serv(cfg *Config, bodyCfg rawbody.Config) error {
	app := New(cfg, bodyCfg)

	// Error channel to capture any listen errors
	errChan := make(chan error)

	// Listen on HTTP
	go func() {
		if cfg.Addr != "" {
			log.Info().Str("c", "http").Str("addr", cfg.Addr).Msg("starting http server")
			errChan <- app.Listen(cfg.Addr)
		}
	}()

	// Listen on HTTPS
	go func() {
		if cfg.HTTPSAddr != "" && cfg.HTTPSCrtPath != "" && cfg.HTTPSKeyPath != "" {
			log.Info().Str("c", "http").Str("addr", cfg.HTTPSAddr).Msg("starting https server")
			errChan <- app.ListenTLS(cfg.HTTPSAddr, cfg.HTTPSCrtPath, cfg.HTTPSKeyPath)
		}
	}()

	// Return the first error received
	return <-errChan
}
