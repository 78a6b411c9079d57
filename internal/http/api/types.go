package api

import (
	"github.com/gofiber/fiber/v2"
)

const (
	StatusOk                  = fiber.StatusOK
	StatusRangeNotSatisfiable = fiber.StatusRequestedRangeNotSatisfiable
	StatusPartialContent      = fiber.StatusPartialContent
	StatusBadRequest          = fiber.StatusBadRequest
	StatusNotFound            = fiber.StatusNotFound
	StatusConflict            = fiber.StatusConflict
	StatusUnauthorized        = fiber.StatusUnauthorized
	StatusCreated             = fiber.StatusCreated
)

const (
	ErrBadRequest          = "bad request body"
	ErrBadContentType      = "malformed content type"
	ErrUnauthorized        = "authorization failed"
	ErrBadUsernamePassword = "invalid username or password"
)

// BodyKey is the fiber.Ctx local holding the *rawbody.Body read by BufferBody.
const BodyKey = "rawbody"

type Response struct {
	Message string      `json:"message"`
	Type    string      `json:"type,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Page struct {
	Limit  int `query:"limit" validate:"gte=0,lte=1000"`
	Offset int `query:"offset" validate:"gte=0"`
}
