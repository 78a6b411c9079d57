package api

import (
	"bytes"
	"io"
	"mime"

	"github.com/gofiber/fiber/v2"

	"github.com/forscht/rawbody/pkg/rawbody"
)

// BufferBody reads the request body into memory and stores it under BodyKey
// for the next handler. The limit and default encoding come from cfg, the
// declared length from Content-Length and the encoding from the charset
// parameter of Content-Type. Collection errors are returned to the error
// handler unchanged.
func BufferBody(cfg rawbody.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		opts := cfg.Options()
		if n := c.Request().Header.ContentLength(); n >= 0 {
			opts = append(opts, rawbody.WithLength(int64(n)))
		}
		if ct := string(c.Request().Header.ContentType()); ct != "" {
			_, params, err := mime.ParseMediaType(ct)
			if err != nil {
				return fiber.NewError(StatusBadRequest, ErrBadContentType)
			}
			if cs := params["charset"]; cs != "" {
				opts = append(opts, rawbody.WithEncoding(cs))
			}
		}

		body, err := rawbody.ReadAll(c.UserContext(), requestBody(c), opts...)
		if err != nil {
			return err
		}
		c.Locals(BodyKey, body)
		return c.Next()
	}
}

// requestBody returns the streamed request body. fasthttp only streams
// bodies that did not fit its read buffer; the rest are already in memory.
func requestBody(c *fiber.Ctx) io.Reader {
	if r := c.Context().RequestBodyStream(); r != nil {
		return r
	}
	return bytes.NewReader(c.Body())
}
