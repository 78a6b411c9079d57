package api

import (
	"errors"
	"mime"

	"github.com/gofiber/fiber/v2"

	dp "github.com/forscht/rawbody/internal/dataprovider"
	"github.com/forscht/rawbody/pkg/httprange"
	"github.com/forscht/rawbody/pkg/ns"
	"github.com/forscht/rawbody/pkg/rawbody"
)

// CheckIdHandler rejects a malformed ?id= before the body is read.
func CheckIdHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := validate.Struct(dp.Body{Id: c.Query("id")}); err != nil {
			return fiber.NewError(StatusBadRequest, err.Error())
		}
		return c.Next()
	}
}

func CreateBodyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		buffered, ok := c.Locals(BodyKey).(*rawbody.Body)
		if !ok {
			return fiber.NewError(StatusBadRequest, ErrBadRequest)
		}

		body := &dp.Body{
			Id:          c.Query("id"),
			ContentType: ns.NullString(contentType(string(c.Request().Header.ContentType()), buffered)),
			Encoding:    ns.NullString(buffered.Encoding()),
			Data:        buffered.Bytes(),
		}
		body, err := dp.Create(body)
		if err != nil {
			if errors.Is(err, dp.ErrExist) {
				return fiber.NewError(StatusConflict, err.Error())
			}
			return err
		}
		return c.Status(StatusCreated).
			JSON(Response{Message: "body created", Data: body})
	}
}

// contentType returns the stored media type. Decoded bodies are stored as
// UTF-8, so their charset parameter is rewritten.
func contentType(ct string, body *rawbody.Body) string {
	if ct == "" || !body.Decoded() {
		return ct
	}
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return ct
	}
	params["charset"] = "utf-8"
	return mime.FormatMediaType(mediaType, params)
}

func ListBodiesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := new(Page)
		if err := c.QueryParser(page); err != nil {
			return fiber.NewError(StatusBadRequest, err.Error())
		}
		if err := validate.Struct(page); err != nil {
			return fiber.NewError(StatusBadRequest, err.Error())
		}
		bodies, err := dp.Ls(page.Limit, page.Offset)
		if err != nil {
			return err
		}
		return c.Status(StatusOk).
			JSON(Response{Message: "bodies retrieved", Data: bodies})
	}
}

func GetBodyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := dp.Get(c.Params("id"))
		if err != nil {
			if errors.Is(err, dp.ErrNotExist) {
				return fiber.NewError(StatusNotFound, err.Error())
			}
			return err
		}
		return c.Status(StatusOk).
			JSON(Response{Message: "body retrieved", Data: body})
	}
}

func DelBodyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := dp.Delete(c.Params("id")); err != nil {
			if errors.Is(err, dp.ErrNotExist) {
				return fiber.NewError(StatusNotFound, err.Error())
			}
			return err
		}
		return c.Status(StatusOk).
			JSON(Response{Message: "body deleted"})
	}
}

func DownloadBodyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		body, err := dp.Get(id)
		if err != nil {
			if errors.Is(err, dp.ErrNotExist) {
				return fiber.NewError(StatusNotFound, err.Error())
			}
			return err
		}
		data, err := dp.Data(id)
		if err != nil {
			return err
		}

		ct := string(body.ContentType)
		if ct == "" {
			ct = fiber.MIMEOctetStream
		}
		c.Set(fiber.HeaderContentType, ct)

		if header := c.Get(fiber.HeaderRange); header != "" {
			r, err := httprange.Parse(header, int64(len(data)))
			if err != nil {
				return fiber.NewError(StatusRangeNotSatisfiable, err.Error())
			}
			c.Set(fiber.HeaderContentRange, r.Header)
			return c.Status(StatusPartialContent).Send(data[r.Start : r.Start+r.Length])
		}

		c.Set(fiber.HeaderAcceptRanges, "bytes")
		return c.Status(StatusOk).Send(data)
	}
}
