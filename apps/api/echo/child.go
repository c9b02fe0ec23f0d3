package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/grupka/grupka/core/child"
	metricsvc "github.com/grupka/grupka/services/metrics"
)

type childApi struct {
	*Deps
}

func registerChildAPI(g *echo.Group, auth, limit echo.MiddlewareFunc, deps *Deps) {
	api := childApi{deps}

	g.GET("/groups/:groupId/children", api.query, auth)
	g.POST("/groups/:groupId/children", api.create, auth)

	cg := g.Group("/children/:childId", auth)
	cg.GET("", api.retrieve)
	cg.PATCH("", api.update)
	cg.DELETE("", api.destroy)
	cg.POST("/bio", api.generateBio, limit)
}

func (api *childApi) query(ctx echo.Context) error {
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	children, err := api.ChildSvc.Query(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId"), page)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	return ok(ctx, list(children))
}

func (api *childApi) create(ctx echo.Context) error {
	var data child.NewChild
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	c, err := api.ChildSvc.Create(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId"), data)
	if err != nil {
		return errors.Wrap(err, "creating child")
	}
	api.recordEvent(metricsvc.ChildCreated)
	return created(ctx, c)
}

func (api *childApi) retrieve(ctx echo.Context) error {
	c, err := api.ChildSvc.Get(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("childId"))
	if err != nil {
		return errors.Wrap(err, "getting child")
	}
	return ok(ctx, c)
}

func (api *childApi) update(ctx echo.Context) error {
	var data child.UpdateChild
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	c, err := api.ChildSvc.Update(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("childId"), data)
	if err != nil {
		return errors.Wrap(err, "updating child")
	}
	return ok(ctx, c)
}

func (api *childApi) destroy(ctx echo.Context) error {
	if err := api.ChildSvc.Delete(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("childId")); err != nil {
		return errors.Wrap(err, "deleting child")
	}
	return noContent(ctx)
}

func (api *childApi) generateBio(ctx echo.Context) error {
	var data child.BioRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	bio, err := api.ChildSvc.GenerateBio(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("childId"), data)
	if api.Metrics != nil && (err == nil || errors.Is(err, child.ErrBioUnavailable)) {
		api.Metrics.RecordBioRequest(err == nil)
	}
	if err != nil {
		return errors.Wrap(err, "generating bio")
	}
	return ok(ctx, bio)
}
