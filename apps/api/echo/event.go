package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/event"
	metricsvc "github.com/grupka/grupka/services/metrics"
)

type eventApi struct {
	*Deps
}

func registerEventAPI(g *echo.Group, auth echo.MiddlewareFunc, deps *Deps) {
	api := eventApi{deps}

	g.GET("/groups/:groupId/events", api.query, auth)
	g.POST("/groups/:groupId/events", api.create, auth)

	eg := g.Group("/events/:eventId", auth)
	eg.GET("", api.retrieve)
	eg.PATCH("", api.update)
	eg.DELETE("", api.destroy)
	eg.GET("/comments", api.queryComments)
	eg.POST("/comments", api.addComment)
	eg.DELETE("/comments/:commentId", api.deleteComment)
}

func bindEventFilter(ctx echo.Context) (event.QueryFilter, error) {
	var filter event.QueryFilter
	if s := core.CleanString(ctx.QueryParam("upcoming")); s != "" {
		upcoming, err := strconv.ParseBool(s)
		if err != nil {
			return filter, core.NewValidationError(nil, core.FieldError{Field: "upcoming", Error: "must be a boolean"})
		}
		filter.Upcoming = upcoming
	}
	return filter, nil
}

func (api *eventApi) query(ctx echo.Context) error {
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	filter, err := bindEventFilter(ctx)
	if err != nil {
		return err
	}
	events, err := api.EventSvc.Query(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId"), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	return ok(ctx, list(events))
}

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	e, err := api.EventSvc.Create(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId"), data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	api.recordEvent(metricsvc.EventCreated)
	return created(ctx, e)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	e, err := api.EventSvc.Get(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("eventId"))
	if err != nil {
		return errors.Wrap(err, "getting event")
	}
	return ok(ctx, e)
}

func (api *eventApi) update(ctx echo.Context) error {
	var data event.UpdateEvent
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	e, err := api.EventSvc.Update(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("eventId"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ok(ctx, e)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	if err := api.EventSvc.Delete(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("eventId")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return noContent(ctx)
}

func (api *eventApi) queryComments(ctx echo.Context) error {
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	comments, err := api.EventSvc.QueryComments(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("eventId"), page)
	if err != nil {
		return errors.Wrap(err, "querying comments")
	}
	return ok(ctx, list(comments))
}

func (api *eventApi) addComment(ctx echo.Context) error {
	var data event.NewComment
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	c, err := api.EventSvc.AddComment(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("eventId"), data)
	if err != nil {
		return errors.Wrap(err, "adding comment")
	}
	api.recordEvent(metricsvc.CommentAdded)
	return created(ctx, c)
}

func (api *eventApi) deleteComment(ctx echo.Context) error {
	err := api.EventSvc.DeleteComment(
		ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("eventId"), ctx.Param("commentId"),
	)
	if err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	return noContent(ctx)
}
