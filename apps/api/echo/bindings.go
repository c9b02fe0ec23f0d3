package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/grupka/grupka/core"
)

// bindPage reads the `limit` and `offset` query params.
func bindPage(ctx echo.Context) (core.Page, error) {
	return core.ParsePage(ctx.QueryParam("limit"), ctx.QueryParam("offset"))
}

// bindBody decodes the JSON request body into dst.
func bindBody(ctx echo.Context, dst interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(ctx, dst); err != nil {
		return errors.Wrap(err, "binding request body")
	}
	return nil
}

func respond(ctx echo.Context, status int, data interface{}) error {
	return ctx.JSON(status, dataResponse{Data: data})
}

func ok(ctx echo.Context, data interface{}) error {
	return respond(ctx, http.StatusOK, data)
}

func created(ctx echo.Context, data interface{}) error {
	return respond(ctx, http.StatusCreated, data)
}

func noContent(ctx echo.Context) error {
	return ctx.NoContent(http.StatusNoContent)
}

func (d *Deps) recordEvent(kind string) {
	if d.Metrics != nil {
		d.Metrics.RecordDomainEvent(kind)
	}
}

// list keeps empty collections serialized as `[]`.
func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
