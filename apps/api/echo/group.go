package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/grupka/grupka/core/group"
	metricsvc "github.com/grupka/grupka/services/metrics"
)

type groupApi struct {
	*Deps
}

func registerGroupAPI(g *echo.Group, auth, limit echo.MiddlewareFunc, deps *Deps) {
	api := groupApi{deps}

	gg := g.Group("/groups", auth)
	gg.GET("", api.query)
	gg.POST("", api.create)
	gg.GET("/:groupId", api.retrieve)
	gg.PATCH("/:groupId", api.update)
	gg.DELETE("/:groupId", api.destroy)

	gg.GET("/:groupId/members", api.queryMembers)
	gg.PATCH("/:groupId/members/:userId", api.updateMember)
	gg.DELETE("/:groupId/members/:userId", api.removeMember)
	gg.GET("/:groupId/admin-contact", api.adminContact)

	gg.GET("/:groupId/invites", api.queryInvites)
	gg.POST("/:groupId/invites", api.createInvite)
	gg.POST("/:groupId/invites/email", api.sendInvites, limit)
	gg.DELETE("/:groupId/invites/:code", api.revokeInvite)

	ig := g.Group("/invites", auth)
	ig.GET("/:code", api.previewInvite)
	ig.POST("/join", api.join, limit)
}

func (api *groupApi) query(ctx echo.Context) error {
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	groups, err := api.GroupSvc.QueryForUser(ctx.Request().Context(), contextUser(ctx).ID, page)
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	return ok(ctx, list(groups))
}

func (api *groupApi) create(ctx echo.Context) error {
	var data group.NewGroup
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	grp, err := api.GroupSvc.Create(ctx.Request().Context(), contextUser(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	api.recordEvent(metricsvc.GroupCreated)
	return created(ctx, grp)
}

func (api *groupApi) retrieve(ctx echo.Context) error {
	grp, err := api.GroupSvc.Get(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId"))
	if err != nil {
		return errors.Wrap(err, "getting group")
	}
	return ok(ctx, grp)
}

func (api *groupApi) update(ctx echo.Context) error {
	var data group.UpdateGroup
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	grp, err := api.GroupSvc.Update(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId"), data)
	if err != nil {
		return errors.Wrap(err, "updating group")
	}
	return ok(ctx, grp)
}

func (api *groupApi) destroy(ctx echo.Context) error {
	if err := api.GroupSvc.Delete(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId")); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return noContent(ctx)
}

func (api *groupApi) queryMembers(ctx echo.Context) error {
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	members, err := api.GroupSvc.QueryMembers(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId"), page)
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	return ok(ctx, list(members))
}

func (api *groupApi) updateMember(ctx echo.Context) error {
	var data group.UpdateMember
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	m, err := api.GroupSvc.UpdateMemberRole(
		ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId"), ctx.Param("userId"), data,
	)
	if err != nil {
		return errors.Wrap(err, "updating member role")
	}
	return ok(ctx, m)
}

func (api *groupApi) removeMember(ctx echo.Context) error {
	err := api.GroupSvc.RemoveMember(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId"), ctx.Param("userId"))
	if err != nil {
		return errors.Wrap(err, "removing member")
	}
	api.recordEvent(metricsvc.MemberRemoved)
	return noContent(ctx)
}

func (api *groupApi) adminContact(ctx echo.Context) error {
	contacts, err := api.GroupSvc.AdminContacts(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId"))
	if err != nil {
		return errors.Wrap(err, "getting admin contacts")
	}
	return ok(ctx, list(contacts))
}

func (api *groupApi) queryInvites(ctx echo.Context) error {
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	invites, err := api.GroupSvc.QueryInvites(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId"), page)
	if err != nil {
		return errors.Wrap(err, "querying invites")
	}
	return ok(ctx, list(invites))
}

func (api *groupApi) createInvite(ctx echo.Context) error {
	inv, err := api.GroupSvc.CreateInvite(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId"))
	if err != nil {
		return errors.Wrap(err, "creating invite")
	}
	return created(ctx, inv)
}

func (api *groupApi) sendInvites(ctx echo.Context) error {
	var data group.SendInvites
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	inv, err := api.GroupSvc.SendInvites(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId"), data)
	if err != nil {
		return errors.Wrap(err, "sending invites")
	}
	api.recordEvent(metricsvc.InvitesSent)
	return created(ctx, inv)
}

func (api *groupApi) revokeInvite(ctx echo.Context) error {
	err := api.GroupSvc.RevokeInvite(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("groupId"), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "revoking invite")
	}
	return noContent(ctx)
}

func (api *groupApi) previewInvite(ctx echo.Context) error {
	preview, err := api.GroupSvc.PreviewInvite(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "previewing invite")
	}
	return ok(ctx, preview)
}

func (api *groupApi) join(ctx echo.Context) error {
	var data group.JoinGroup
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	grp, err := api.GroupSvc.Join(ctx.Request().Context(), contextUser(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "joining group")
	}
	api.recordEvent(metricsvc.MemberJoined)
	return ok(ctx, grp)
}
