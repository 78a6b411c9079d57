package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/forscht/rawbody/pkg/rawbody"
	"github.com/forscht/rawbody/pkg/validator"
)

var validate = validator.New()

func Load(app *fiber.App, cfg rawbody.Config) {

	// create api API group
	api := app.Group("/api")

	// public route for public login
	api.Post("/user/login", LoginHandler())

	// returns auth and body limits config
	api.Get("/config", AuthConfigHandler(cfg))

	// setup auth middleware
	api.Use(AuthHandler())

	// verify JWT token (required on a page load)
	api.Get("/check_token", CheckTokenHandler())

	api.Post("/bodies", CheckIdHandler(), BufferBody(cfg), CreateBodyHandler())
	api.Get("/bodies", ListBodiesHandler())
	api.Get("/bodies/:id", GetBodyHandler())
	api.Delete("/bodies/:id", DelBodyHandler())

	// Raw payloads are not authorized so that they can be fetched by any
	// client that knows the id.
	app.Get("/bodies/:id", DownloadBodyHandler())
}
